package models

import "strings"

// Editor namespaces that own free-text input.
const (
	EditorShifts    = "shifts"
	EditorReminders = "reminders"
	EditorTimezone  = "timezone"
	EditorTemplates = "templates"
)

// Awaiting describes the single piece of free text a chat is expected to send
// next. The set of implementations is closed.
type Awaiting interface {
	// Editor is the namespace of the editor that receives the text.
	Editor() string
	// Token is the stable string form stored with the session.
	Token() string
	awaiting()
}

type AwaitStartTime struct{ Shift ShiftID }
type AwaitEndTime struct{ Shift ShiftID }
type AwaitCustomReminder struct{}
type AwaitTimezoneName struct{}
type AwaitTemplateBody struct{ Shift ShiftID }
type AwaitCustomTemplateName struct{}

// AwaitCustomTemplateBody carries the name entered in the previous step.
type AwaitCustomTemplateBody struct{ Name string }

func (AwaitStartTime) Editor() string          { return EditorShifts }
func (AwaitEndTime) Editor() string            { return EditorShifts }
func (AwaitCustomReminder) Editor() string     { return EditorReminders }
func (AwaitTimezoneName) Editor() string       { return EditorTimezone }
func (AwaitTemplateBody) Editor() string       { return EditorTemplates }
func (AwaitCustomTemplateName) Editor() string { return EditorTemplates }
func (AwaitCustomTemplateBody) Editor() string { return EditorTemplates }

func (a AwaitStartTime) Token() string        { return "start_time_" + string(a.Shift) }
func (a AwaitEndTime) Token() string          { return "end_time_" + string(a.Shift) }
func (AwaitCustomReminder) Token() string     { return "reminder_custom" }
func (AwaitTimezoneName) Token() string       { return "timezone_name" }
func (a AwaitTemplateBody) Token() string     { return "template_edit_" + string(a.Shift) }
func (AwaitCustomTemplateName) Token() string { return "template_custom_name" }
func (AwaitCustomTemplateBody) Token() string { return "template_custom_content" }

func (AwaitStartTime) awaiting()          {}
func (AwaitEndTime) awaiting()            {}
func (AwaitCustomReminder) awaiting()     {}
func (AwaitTimezoneName) awaiting()       {}
func (AwaitTemplateBody) awaiting()       {}
func (AwaitCustomTemplateName) awaiting() {}
func (AwaitCustomTemplateBody) awaiting() {}

// ParseAwaiting restores a value written by Token. arg carries the payload of
// variants that need one. Unknown tokens yield nil.
func ParseAwaiting(token, arg string) Awaiting {
	shiftOf := func(prefix string) (ShiftID, bool) {
		id := ShiftID(strings.TrimPrefix(token, prefix))
		return id, strings.HasPrefix(token, prefix) && id.Valid()
	}
	switch token {
	case "":
		return nil
	case "reminder_custom":
		return AwaitCustomReminder{}
	case "timezone_name":
		return AwaitTimezoneName{}
	case "template_custom_name":
		return AwaitCustomTemplateName{}
	case "template_custom_content":
		return AwaitCustomTemplateBody{Name: arg}
	}
	if id, ok := shiftOf("start_time_"); ok {
		return AwaitStartTime{Shift: id}
	}
	if id, ok := shiftOf("end_time_"); ok {
		return AwaitEndTime{Shift: id}
	}
	if id, ok := shiftOf("template_edit_"); ok {
		return AwaitTemplateBody{Shift: id}
	}
	return nil
}

// AwaitingArg returns the payload ParseAwaiting needs alongside the token.
func AwaitingArg(a Awaiting) string {
	if b, ok := a.(AwaitCustomTemplateBody); ok {
		return b.Name
	}
	return ""
}
