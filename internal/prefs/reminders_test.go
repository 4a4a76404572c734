package prefs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newReminderStore(t *testing.T) (*ReminderStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_reminders.json")
	s := NewReminderStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, path
}

func TestReminderAddKeepsSortedAndRejectsDuplicates(t *testing.T) {
	s, path := newReminderStore(t)
	if got := s.Get().BeforeShift; !slices.Equal(got, []int{15, 30}) {
		t.Fatalf("defaults = %v", got)
	}

	if err := s.Add(45); err != nil {
		t.Fatalf("Add(45): %v", err)
	}
	if got := s.Get().BeforeShift; !slices.Equal(got, []int{15, 30, 45}) {
		t.Fatalf("after add = %v", got)
	}

	before, _ := os.ReadFile(path)
	err := s.Add(30)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Add(30) err = %v, want ValidationError", err)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) || !slices.Equal(s.Get().BeforeShift, []int{15, 30, 45}) {
		t.Error("duplicate add changed state")
	}
}

func TestReminderBounds(t *testing.T) {
	s, _ := newReminderStore(t)
	for _, m := range []int{0, -5, 43201} {
		if err := s.Add(m); err == nil {
			t.Errorf("Add(%d) accepted", m)
		}
	}
	for _, m := range []int{1, 43200} {
		if err := s.Add(m); err != nil {
			t.Errorf("Add(%d): %v", m, err)
		}
	}
}

func TestReminderRemoveAndToggle(t *testing.T) {
	s, path := newReminderStore(t)
	if err := s.Remove(15); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(15); err == nil {
		t.Error("removing a missing value should fail")
	}
	if on, err := s.ToggleEnabled(); err != nil || on {
		t.Errorf("ToggleEnabled = %v, %v", on, err)
	}
	if on, err := s.ToggleSound(); err != nil || on {
		t.Errorf("ToggleSound = %v, %v", on, err)
	}

	reloaded := NewReminderStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	got := reloaded.Get()
	if got.Enabled || got.SoundEnabled || !slices.Equal(got.BeforeShift, []int{30}) {
		t.Errorf("reloaded = %+v", got)
	}
	if d := reloaded.Display(); d != "Reminders: off" {
		t.Errorf("Display = %q", d)
	}
}

func TestReminderUpdateAllOrNothing(t *testing.T) {
	s, path := newReminderStore(t)
	before, _ := os.ReadFile(path)
	off := false
	err := s.Update(ReminderPatch{Enabled: &off, BeforeShift: []int{10, 10}})
	if err == nil {
		t.Fatal("duplicate list accepted")
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) || !s.Get().Enabled {
		t.Error("rejected update mutated state")
	}

	if err := s.Update(ReminderPatch{Enabled: &off, BeforeShift: []int{60, 5}}); err != nil {
		t.Fatal(err)
	}
	got := s.Get()
	if got.Enabled || !got.SoundEnabled || !slices.Equal(got.BeforeShift, []int{5, 60}) {
		t.Errorf("after update = %+v", got)
	}
}

func TestReminderLoadFallsBackPerField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_reminders.json")
	doc := `{"enabled": false, "sound_enabled": "yes", "before_shift": [10, 10], "extra": 1}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewReminderStore(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	got := s.Get()
	if got.Enabled {
		t.Error("valid enabled field ignored")
	}
	if !got.SoundEnabled {
		t.Error("invalid sound_enabled should fall back to default")
	}
	if !slices.Equal(got.BeforeShift, []int{15, 30}) {
		t.Errorf("invalid before_shift should fall back, got %v", got.BeforeShift)
	}
}

func TestReminderResetIdempotent(t *testing.T) {
	s, path := newReminderStore(t)
	_ = s.Add(90)
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Error("reset not idempotent")
	}
}
