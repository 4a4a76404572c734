package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepInterval is how often idle sessions are looked for.
const SweepInterval = 10 * time.Minute

// Sessions is the session store side the sweep needs.
type Sessions interface {
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}

// Start runs the idle-session sweep every interval until the scheduler is
// shut down. Sessions untouched for ttl are dropped, along with any prompt
// or pending edit they held.
func Start(sessions Sessions, ttl, interval time.Duration, log *slog.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			Sweep(context.Background(), sessions, time.Now().Add(-ttl), log)
		}),
		gocron.WithName("expire-idle-sessions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}

	s.Start()
	return s, nil
}

// Sweep drops sessions last updated before the cutoff.
func Sweep(ctx context.Context, sessions Sessions, before time.Time, log *slog.Logger) {
	n, err := sessions.DeleteIdle(ctx, before)
	if err != nil {
		log.Error("expire idle sessions", "err", err)
		return
	}
	if n > 0 {
		log.Info("expired idle sessions", "count", n, "before", before.Format(time.RFC3339))
	}
}
