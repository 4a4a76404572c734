package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shifts-bot/internal/prefs"
)

// Calendar backends.
const (
	BackendGoogle = "google"
	BackendICS    = "ics"
	BackendNone   = "none"
)

// Preference files under DataDir.
const (
	ShiftsFile    = "user_shift_times.json"
	RemindersFile = "user_reminders.json"
	TimezoneFile  = "user_timezone.json"
	TemplatesFile = "user_templates.json"
)

// SecretFile is where Docker mounts the bot token secret.
var SecretFile = "/run/secrets/telegram_bot_token"

type Config struct {
	TelegramToken   string
	DefaultTimeZone string
	Debug           bool
	LogLevel        string

	DataDir        string
	SessionDB      string // empty keeps sessions in memory
	SessionIdleTTL time.Duration

	CalendarBackend       string
	CalendarID            string
	CalendarTimeout       time.Duration
	GoogleCredentialsFile string
	GoogleTokenFile       string
	ICSSource             string
}

// Load reads the environment. Call godotenv first to pick up a .env file.
func Load() (Config, error) {
	c := Config{
		TelegramToken:         botToken(),
		DefaultTimeZone:       env("DEFAULT_TIME_ZONE", "Asia/Jerusalem"),
		LogLevel:              env("LOG_LEVEL", "info"),
		DataDir:               env("DATA_DIR", "."),
		SessionDB:             lookup("SESSION_DB", "sessions.db"),
		CalendarBackend:       strings.ToLower(env("CALENDAR_BACKEND", BackendNone)),
		CalendarID:            env("CALENDAR_ID", "primary"),
		GoogleCredentialsFile: env("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleTokenFile:       env("GOOGLE_TOKEN_FILE", "token.json"),
		ICSSource:             env("ICS_SOURCE", ""),
	}

	var errs []error
	var err error
	if c.Debug, err = boolean("DEBUG"); err != nil {
		errs = append(errs, err)
	}
	if c.SessionIdleTTL, err = duration("SESSION_IDLE_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if c.CalendarTimeout, err = duration("CALENDAR_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.validate())
	return c, errors.Join(errs...)
}

func (c Config) validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("bot token not found: no Docker secret and no TELEGRAM_BOT_TOKEN"))
	}
	if _, err := prefs.LoadZone(c.DefaultTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_TIME_ZONE: %w", err))
	}
	switch c.CalendarBackend {
	case BackendGoogle, BackendNone:
	case BackendICS:
		if c.ICSSource == "" {
			errs = append(errs, errors.New("CALENDAR_BACKEND=ics needs ICS_SOURCE"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_BACKEND %q: want google, ics or none", c.CalendarBackend))
	}
	return errors.Join(errs...)
}

// Path resolves a file name against DataDir. Absolute names are kept.
func (c Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func botToken() string {
	if data, err := os.ReadFile(SecretFile); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// lookup is env for options where an explicitly empty value means "off".
func lookup(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func boolean(key string) (bool, error) {
	v := env(key, "false")
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q: %w", key, v, err)
	}
	return b, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s=%q: %w", key, v, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("%s=%q: must be positive", key, v)
	}
	return d, nil
}
