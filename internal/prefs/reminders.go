package prefs

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"shifts-bot/internal/models"
)

// DefaultReminders returns the seeded reminder configuration.
func DefaultReminders() models.ReminderSet {
	return models.ReminderSet{Enabled: true, SoundEnabled: true, BeforeShift: []int{15, 30}}
}

// ReminderPatch is a partial update. Nil fields stay unchanged.
type ReminderPatch struct {
	Enabled      *bool
	SoundEnabled *bool
	BeforeShift  []int
}

// ReminderStore keeps the reminder set in a JSON file.
type ReminderStore struct {
	mu  sync.RWMutex
	doc document
	set models.ReminderSet
}

func NewReminderStore(path string) *ReminderStore {
	return &ReminderStore{doc: document{path: path}, set: DefaultReminders()}
}

// Load merges the stored document over the defaults.
func (s *ReminderStore) Load() error {
	fields, _, err := s.doc.read()
	set := DefaultReminders()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.set = set
		return &PersistenceError{Path: s.doc.path, Err: err}
	}

	var b bool
	if field(fields, "enabled", &b) {
		set.Enabled = b
	}
	if field(fields, "sound_enabled", &b) {
		set.SoundEnabled = b
	}
	var list []int
	if field(fields, "before_shift", &list) && validateLeadTimes(list) == nil {
		set.BeforeShift = normalizeLeadTimes(list)
	}
	s.set = set
	return s.doc.write(s.set)
}

// Get returns a copy of the reminder set.
func (s *ReminderStore) Get() models.ReminderSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyReminders(s.set)
}

// Update validates the whole patch before applying it.
func (s *ReminderStore) Update(p ReminderPatch) error {
	if p.BeforeShift != nil {
		if err := validateLeadTimes(p.BeforeShift); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyReminders(s.set)
	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if p.SoundEnabled != nil {
		next.SoundEnabled = *p.SoundEnabled
	}
	if p.BeforeShift != nil {
		next.BeforeShift = normalizeLeadTimes(p.BeforeShift)
	}
	s.set = next
	return s.doc.write(s.set)
}

// Add inserts a lead time, rejecting duplicates and out-of-range values.
func (s *ReminderStore) Add(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validateLeadTime(minutes); err != nil {
		return err
	}
	if slices.Contains(s.set.BeforeShift, minutes) {
		return invalid("reminder", strconv.Itoa(minutes), "already set")
	}
	next := copyReminders(s.set)
	next.BeforeShift = normalizeLeadTimes(append(next.BeforeShift, minutes))
	s.set = next
	return s.doc.write(s.set)
}

// Remove deletes a lead time.
func (s *ReminderStore) Remove(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.set.BeforeShift, minutes)
	if i < 0 {
		return invalid("reminder", strconv.Itoa(minutes), "not set")
	}
	next := copyReminders(s.set)
	next.BeforeShift = slices.Delete(next.BeforeShift, i, i+1)
	s.set = next
	return s.doc.write(s.set)
}

// ToggleEnabled flips the enabled flag and returns the new value.
func (s *ReminderStore) ToggleEnabled() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Enabled = !s.set.Enabled
	return s.set.Enabled, s.doc.write(s.set)
}

// ToggleSound flips the sound flag and returns the new value.
func (s *ReminderStore) ToggleSound() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.SoundEnabled = !s.set.SoundEnabled
	return s.set.SoundEnabled, s.doc.write(s.set)
}

func (s *ReminderStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = DefaultReminders()
	return s.doc.write(s.set)
}

// Display summarises the reminder set for menus.
func (s *ReminderStore) Display() string {
	set := s.Get()
	if !set.Enabled {
		return "Reminders: off"
	}
	return "Reminders: " + FormatLeadTimes(set.BeforeShift)
}

// FormatLeadTimes renders lead times ascending, e.g. "15 min, 30 min".
func FormatLeadTimes(list []int) string {
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(list))
	for _, m := range normalizeLeadTimes(list) {
		parts = append(parts, fmt.Sprintf("%d min", m))
	}
	return strings.Join(parts, ", ")
}

func validateLeadTime(m int) error {
	if m < models.MinReminder || m > models.MaxReminder {
		return invalid("reminder", strconv.Itoa(m),
			fmt.Sprintf("must be between %d and %d minutes", models.MinReminder, models.MaxReminder))
	}
	return nil
}

func validateLeadTimes(list []int) error {
	seen := make(map[int]bool, len(list))
	for _, m := range list {
		if err := validateLeadTime(m); err != nil {
			return err
		}
		if seen[m] {
			return invalid("reminder", strconv.Itoa(m), "duplicate")
		}
		seen[m] = true
	}
	return nil
}

func normalizeLeadTimes(list []int) []int {
	out := append([]int{}, list...)
	slices.Sort(out)
	return out
}

func copyReminders(set models.ReminderSet) models.ReminderSet {
	set.BeforeShift = append([]int{}, set.BeforeShift...)
	return set
}
