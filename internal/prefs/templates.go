package prefs

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"shifts-bot/internal/models"
)

const (
	maxTemplateName = 64
	maxTemplateBody = 1024
)

// DefaultTemplates returns the built-in template per shift window.
func DefaultTemplates() map[models.ShiftID]models.Template {
	body := func(title string) string {
		return title + "\n{start_time}-{end_time}\n📍 {location}\n📝 {notes}"
	}
	return map[models.ShiftID]models.Template{
		models.ShiftMorning: {Name: "Morning shift", Template: body("Morning shift 🌅")},
		models.ShiftNoon:    {Name: "Noon shift", Template: body("Noon shift 🌇")},
		models.ShiftEvening: {Name: "Evening shift", Template: body("Evening shift 🌆")},
	}
}

// TemplateStore keeps built-in and custom templates in a JSON file.
type TemplateStore struct {
	mu  sync.RWMutex
	doc document
	set models.TemplateSet
	// newID is swapped in tests.
	newID func() string
}

func NewTemplateStore(path string) *TemplateStore {
	return &TemplateStore{
		doc:   document{path: path},
		set:   models.TemplateSet{Builtin: DefaultTemplates()},
		newID: func() string { return uuid.NewString() },
	}
}

func (s *TemplateStore) Load() error {
	fields, _, err := s.doc.read()
	set := models.TemplateSet{Builtin: DefaultTemplates()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.set = set
		return &PersistenceError{Path: s.doc.path, Err: err}
	}

	for _, id := range models.ShiftOrder {
		var stored map[string]json.RawMessage
		if !field(fields, string(id), &stored) {
			continue
		}
		t := set.Builtin[id]
		var v string
		if field(stored, "template", &v) && validBody(v) == nil {
			t.Template = v
		}
		set.Builtin[id] = t
	}

	var custom []models.CustomTemplate
	if field(fields, "custom", &custom) {
		for _, c := range custom {
			if validName(c.Name) != nil || validBody(c.Template) != nil {
				continue
			}
			if c.ID == "" {
				c.ID = s.newID()
			}
			set.Custom = append(set.Custom, c)
		}
	}
	s.set = set
	return s.doc.write(s.document())
}

// Get returns a copy of the template set.
func (s *TemplateStore) Get() models.TemplateSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTemplates(s.set)
}

// Builtin returns the built-in template of a shift window.
func (s *TemplateStore) Builtin(id models.ShiftID) (models.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.set.Builtin[id]
	return t, ok
}

// SetBuiltin replaces the pattern of a built-in template.
func (s *TemplateStore) SetBuiltin(id models.ShiftID, pattern string) error {
	if err := validBody(pattern); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.set.Builtin[id]
	if !ok {
		return invalid("template", string(id), "unknown shift")
	}
	next := copyTemplates(s.set)
	t.Template = pattern
	next.Builtin[id] = t
	s.set = next
	return s.doc.write(s.document())
}

// AddCustom appends a user template. The returned value carries its new ID
// even when the write fails.
func (s *TemplateStore) AddCustom(name, pattern string) (models.CustomTemplate, error) {
	name = strings.TrimSpace(name)
	if err := validName(name); err != nil {
		return models.CustomTemplate{}, err
	}
	if err := validBody(pattern); err != nil {
		return models.CustomTemplate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.CustomTemplate{ID: s.newID(), Name: name, Template: pattern}
	next := copyTemplates(s.set)
	next.Custom = append(next.Custom, c)
	s.set = next
	return c, s.doc.write(s.document())
}

// RemoveCustom deletes a user template by ID.
func (s *TemplateStore) RemoveCustom(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.set.Custom {
		if c.ID != id {
			continue
		}
		next := copyTemplates(s.set)
		next.Custom = append(next.Custom[:i], next.Custom[i+1:]...)
		s.set = next
		return s.doc.write(s.document())
	}
	return invalid("template", id, "not found")
}

// Custom returns a user template by ID.
func (s *TemplateStore) Custom(id string) (models.CustomTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.set.Custom {
		if c.ID == id {
			return c, true
		}
	}
	return models.CustomTemplate{}, false
}

// Render formats the built-in template of a shift window.
func (s *TemplateStore) Render(id models.ShiftID, vars map[string]string) string {
	t, ok := s.Builtin(id)
	if !ok {
		return ""
	}
	return Format(t.Template, vars)
}

func (s *TemplateStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = models.TemplateSet{Builtin: DefaultTemplates()}
	return s.doc.write(s.document())
}

func (s *TemplateStore) Display() string {
	set := s.Get()
	return fmt.Sprintf("Templates: morning, noon, evening + %d custom", len(set.Custom))
}

func (s *TemplateStore) document() map[string]any {
	doc := make(map[string]any, len(s.set.Builtin)+1)
	for id, t := range s.set.Builtin {
		doc[string(id)] = t
	}
	custom := s.set.Custom
	if custom == nil {
		custom = []models.CustomTemplate{}
	}
	doc["custom"] = custom
	return doc
}

// ValidateTemplateName checks a custom template name before its body is
// asked for.
func ValidateTemplateName(name string) error {
	return validName(strings.TrimSpace(name))
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("template name", name, "empty")
	}
	if utf8.RuneCountInString(name) > maxTemplateName {
		return invalid("template name", name, fmt.Sprintf("longer than %d characters", maxTemplateName))
	}
	return nil
}

func validBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return invalid("template", body, "empty")
	}
	if utf8.RuneCountInString(body) > maxTemplateBody {
		return invalid("template", body[:32]+"…", fmt.Sprintf("longer than %d characters", maxTemplateBody))
	}
	return nil
}

func copyTemplates(set models.TemplateSet) models.TemplateSet {
	out := models.TemplateSet{Builtin: make(map[models.ShiftID]models.Template, len(set.Builtin))}
	for id, t := range set.Builtin {
		out.Builtin[id] = t
	}
	out.Custom = append([]models.CustomTemplate(nil), set.Custom...)
	return out
}
