package prefs

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"shifts-bot/internal/models"
)

// DefaultShifts returns the seeded shift windows in display order.
func DefaultShifts() []models.ShiftWindow {
	return []models.ShiftWindow{
		{ID: models.ShiftMorning, Name: "Morning", Emoji: "🌅", Start: "08:00", End: "16:00"},
		{ID: models.ShiftNoon, Name: "Noon", Emoji: "🌇", Start: "12:00", End: "20:00"},
		{ID: models.ShiftEvening, Name: "Evening", Emoji: "🌆", Start: "16:00", End: "00:00"},
	}
}

// WindowPatch stages new bounds for one window. Empty fields stay unchanged.
type WindowPatch struct {
	Start string
	End   string
}

// ShiftsPatch updates several windows at once.
type ShiftsPatch map[models.ShiftID]WindowPatch

// ShiftStore keeps the shift windows in a JSON file.
type ShiftStore struct {
	mu      sync.RWMutex
	doc     document
	windows []models.ShiftWindow
}

// NewShiftStore returns a store holding the defaults. Call Load to read path.
func NewShiftStore(path string) *ShiftStore {
	return &ShiftStore{doc: document{path: path}, windows: DefaultShifts()}
}

// Load merges the stored start/end values over the defaults, field by field,
// and writes back the merged document.
func (s *ShiftStore) Load() error {
	fields, _, err := s.doc.read()
	windows := DefaultShifts()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.windows = windows
		return &PersistenceError{Path: s.doc.path, Err: err}
	}
	for i, w := range windows {
		windows[i] = mergeWindow(w, fields)
	}
	s.windows = windows
	return s.doc.write(shiftDocument(windows))
}

func mergeWindow(def models.ShiftWindow, fields map[string]json.RawMessage) models.ShiftWindow {
	var stored map[string]json.RawMessage
	if !field(fields, string(def.ID), &stored) {
		return def
	}
	w := def
	var v string
	if field(stored, "start", &v) && models.ValidateTime(v) {
		w.Start = v
	}
	v = ""
	if field(stored, "end", &v) && models.ValidateTime(v) {
		w.End = v
	}
	if w.Start == w.End {
		return def
	}
	return w
}

func shiftDocument(windows []models.ShiftWindow) map[models.ShiftID]models.ShiftWindow {
	doc := make(map[models.ShiftID]models.ShiftWindow, len(windows))
	for _, w := range windows {
		doc[w.ID] = w
	}
	return doc
}

// Get returns a copy of the windows in display order.
func (s *ShiftStore) Get() []models.ShiftWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ShiftWindow(nil), s.windows...)
}

// Window returns one window by id.
func (s *ShiftStore) Window(id models.ShiftID) (models.ShiftWindow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.windows {
		if w.ID == id {
			return w, true
		}
	}
	return models.ShiftWindow{}, false
}

// UpdateShift applies a patch to a single window.
func (s *ShiftStore) UpdateShift(id models.ShiftID, p WindowPatch) error {
	return s.Update(ShiftsPatch{id: p})
}

// Update validates every window in the patch before applying any of them.
func (s *ShiftStore) Update(patch ShiftsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]models.ShiftWindow(nil), s.windows...)
	for id, p := range patch {
		i := indexOf(next, id)
		if i < 0 {
			return invalid("shift", string(id), "unknown shift")
		}
		if p.Start != "" {
			if !models.ValidateTime(p.Start) {
				return invalid("start", p.Start, "expected HH:MM")
			}
			next[i].Start = p.Start
		}
		if p.End != "" {
			if !models.ValidateTime(p.End) {
				return invalid("end", p.End, "expected HH:MM")
			}
			next[i].End = p.End
		}
		if next[i].Start == next[i].End {
			return invalid("end", next[i].End, "shift cannot start and end at the same time")
		}
	}

	s.windows = next
	return s.doc.write(shiftDocument(next))
}

// ResetShift restores one window to its default bounds.
func (s *ShiftStore) ResetShift(id models.ShiftID) error {
	for _, d := range DefaultShifts() {
		if d.ID == id {
			return s.UpdateShift(id, WindowPatch{Start: d.Start, End: d.End})
		}
	}
	return invalid("shift", string(id), "unknown shift")
}

// Reset restores every window.
func (s *ShiftStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = DefaultShifts()
	return s.doc.write(shiftDocument(s.windows))
}

// Display renders one line per window.
func (s *ShiftStore) Display() string {
	lines := make([]string, 0, 3)
	for _, w := range s.Get() {
		lines = append(lines, fmt.Sprintf("• %s %s: %s-%s", w.Emoji, w.Name, w.Start, w.End))
	}
	return strings.Join(lines, "\n")
}

func indexOf(windows []models.ShiftWindow, id models.ShiftID) int {
	for i, w := range windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}
