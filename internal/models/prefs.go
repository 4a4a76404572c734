package models

// ReminderSet is the reminder configuration.
type ReminderSet struct {
	Enabled      bool  `json:"enabled"`
	SoundEnabled bool  `json:"sound_enabled"`
	BeforeShift  []int `json:"before_shift"` // minutes, ascending, distinct
}

// Reminder lead-time bounds in minutes.
const (
	MinReminder = 1
	MaxReminder = 30 * 24 * 60
)

// Template is a parameterised description pattern.
type Template struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// CustomTemplate is a user-defined template.
type CustomTemplate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

// TemplateSet holds one built-in template per shift window plus custom ones.
type TemplateSet struct {
	Builtin map[ShiftID]Template
	Custom  []CustomTemplate
}

// TemplateVariables lists the placeholders the bot fills in.
var TemplateVariables = []string{
	"start_time", "end_time", "date", "location", "notes",
	"shift_type", "duration", "day_name",
}
