package utils

import (
	"log/slog"
	"os"
)

// Must stops the process on a start-up error.
func Must(err error) {
	if err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// LogFor logs a non-fatal error and reports whether there was one.
func LogFor(log *slog.Logger, msg string, err error) bool {
	if err == nil {
		return false
	}
	log.Warn(msg, "err", err)
	return true
}
