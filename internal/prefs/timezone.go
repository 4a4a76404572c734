package prefs

import (
	"sync"
	"time"
	// Zone names must resolve in slim containers without /usr/share/zoneinfo.
	_ "time/tzdata"
)

// CommonTimezones are offered as one-tap choices, in display order.
var CommonTimezones = []struct{ Zone, Label string }{
	{"Asia/Jerusalem", "Jerusalem (Israel)"},
	{"Europe/London", "London (GMT)"},
	{"Europe/Paris", "Paris (CET)"},
	{"America/New_York", "New York (EST)"},
	{"America/Los_Angeles", "Los Angeles (PST)"},
	{"Asia/Dubai", "Dubai (GST)"},
	{"Asia/Tokyo", "Tokyo (JST)"},
}

// TimezoneStore keeps the user's IANA zone in a JSON file.
type TimezoneStore struct {
	mu       sync.RWMutex
	doc      document
	fallback string
	zone     string
	loc      *time.Location
}

// NewTimezoneStore uses def as the default zone. def must be loadable.
func NewTimezoneStore(path, def string) (*TimezoneStore, error) {
	loc, err := LoadZone(def)
	if err != nil {
		return nil, err
	}
	return &TimezoneStore{doc: document{path: path}, fallback: def, zone: def, loc: loc}, nil
}

// LoadZone validates an IANA zone name. Empty and "Local" are rejected because
// time.LoadLocation maps them to UTC and the host zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, invalid("timezone", name, "not an IANA zone")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, invalid("timezone", name, "unknown zone")
	}
	return loc, nil
}

func (s *TimezoneStore) Load() error {
	fields, _, err := s.doc.read()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone, s.loc = s.fallback, mustZone(s.fallback)
	if err != nil {
		return &PersistenceError{Path: s.doc.path, Err: err}
	}
	var name string
	if field(fields, "timezone", &name) {
		if loc, err := LoadZone(name); err == nil {
			s.zone, s.loc = name, loc
		}
	}
	return s.doc.write(s.document())
}

// Get returns the zone name.
func (s *TimezoneStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zone
}

// Location returns the loaded zone.
func (s *TimezoneStore) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

// Set replaces the zone. Invalid names leave the state untouched.
func (s *TimezoneStore) Set(name string) error {
	loc, err := LoadZone(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone, s.loc = name, loc
	return s.doc.write(s.document())
}

func (s *TimezoneStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone, s.loc = s.fallback, mustZone(s.fallback)
	return s.doc.write(s.document())
}

// Label returns the friendly name of a common zone, or the zone itself.
func Label(zone string) string {
	for _, c := range CommonTimezones {
		if c.Zone == zone {
			return c.Label
		}
	}
	return zone
}

func (s *TimezoneStore) Display() string {
	return "Timezone: " + Label(s.Get())
}

func (s *TimezoneStore) document() map[string]string {
	return map[string]string{"timezone": s.zone}
}

// mustZone is only used on the default, which the constructor validated.
func mustZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
