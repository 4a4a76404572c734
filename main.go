package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"shifts-bot/internal/calendar"
	"shifts-bot/internal/config"
	"shifts-bot/internal/handlers"
	"shifts-bot/internal/logging"
	"shifts-bot/internal/menus"
	"shifts-bot/internal/messages"
	"shifts-bot/internal/prefs"
	"shifts-bot/internal/scheduler"
	"shifts-bot/internal/storage"
	"shifts-bot/internal/utils"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	dataDir := flag.String("data-dir", "", "directory for preferences and sessions (overrides DATA_DIR)")
	authCode := flag.String("auth-code", "", "Google authorisation code to exchange for a token, then exit")
	flag.Parse()

	_ = godotenv.Load(*envFile) // TELEGRAM_BOT_TOKEN etc.

	cfg, err := config.Load()
	utils.Must(err)
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	log := logging.New(os.Stderr, cfg.Debug, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *authCode != "" {
		utils.Must(calendar.ExchangeCode(ctx, cfg.Path(cfg.GoogleCredentialsFile), cfg.Path(cfg.GoogleTokenFile), *authCode))
		log.Info("google token stored", "path", cfg.Path(cfg.GoogleTokenFile))
		return
	}

	stores := loadStores(cfg, log)

	catalog, err := menus.Load()
	utils.Must(err)

	sessions, closeSessions := openSessions(cfg, log)
	defer closeSessions()

	sched, err := scheduler.Start(sessions, cfg.SessionIdleTTL, scheduler.SweepInterval, log.With("component", "scheduler"))
	utils.Must(err)
	defer sched.Shutdown()

	engine := newEngine(ctx, cfg, log)
	h := handlers.New(sessions, catalog, log.With("component", "router"),
		handlers.NewPreferencesEditor(catalog, stores),
		handlers.NewShiftsEditor(catalog, stores.Shifts),
		handlers.NewRemindersEditor(catalog, stores.Reminders),
		handlers.NewTimezoneEditor(catalog, stores.Timezone, handlers.SystemZones(handlers.ZoneinfoDir)),
		handlers.NewTemplatesEditor(catalog, stores.Templates, stores.Shifts),
		handlers.NewAvailabilityEditor(catalog, engine, cfg.CalendarID, stores),
		handlers.NewDocsEditor(catalog, engine, cfg.CalendarID, stores),
		handlers.NewNavigationEditor(catalog, stores),
	)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	utils.Must(err)
	log.Info("bot started", "username", bot.Self.UserName, "calendar", cfg.CalendarBackend)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := bot.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			log.Info("shutting down")
			return
		case upd, open := <-updates:
			if !open {
				return
			}
			in, ok := messages.Update(upd)
			if !ok {
				continue
			}
			reply := h.Handle(ctx, in.Event)
			if err := messages.Deliver(bot, in, reply); err != nil {
				log.Error("deliver reply", "chat_id", in.ChatID, "err", err)
			}
		}
	}
}

// loadStores reads every preference file. A file that cannot be read or
// written leaves that store on its defaults.
func loadStores(cfg config.Config, log *slog.Logger) handlers.Stores {
	tz, err := prefs.NewTimezoneStore(cfg.Path(config.TimezoneFile), cfg.DefaultTimeZone)
	utils.Must(err)
	stores := handlers.Stores{
		Shifts:    prefs.NewShiftStore(cfg.Path(config.ShiftsFile)),
		Reminders: prefs.NewReminderStore(cfg.Path(config.RemindersFile)),
		Timezone:  tz,
		Templates: prefs.NewTemplateStore(cfg.Path(config.TemplatesFile)),
	}
	utils.LogFor(log, "load shift times", stores.Shifts.Load())
	utils.LogFor(log, "load reminders", stores.Reminders.Load())
	utils.LogFor(log, "load timezone", stores.Timezone.Load())
	utils.LogFor(log, "load templates", stores.Templates.Load())
	return stores
}

// sessionStore is what the router and the idle sweep need.
type sessionStore interface {
	handlers.SessionStore
	scheduler.Sessions
}

// openSessions uses SQLite unless SESSION_DB is empty, in which case
// sessions live in memory and are lost on restart.
func openSessions(cfg config.Config, log *slog.Logger) (sessionStore, func()) {
	if cfg.SessionDB == "" {
		log.Warn("SESSION_DB is empty, keeping sessions in memory")
		return storage.NewMemory(), func() {}
	}
	db, err := storage.New(cfg.Path(cfg.SessionDB))
	utils.Must(err)
	return db, func() { db.Close() }
}

// newEngine returns nil when no calendar is configured or it cannot be
// reached; the bot then runs without availability and shift log.
func newEngine(ctx context.Context, cfg config.Config, log *slog.Logger) *calendar.Engine {
	log = log.With("component", "calendar", "backend", cfg.CalendarBackend)
	loc, err := prefs.LoadZone(cfg.DefaultTimeZone)
	utils.Must(err)
	var transport calendar.Transport
	switch cfg.CalendarBackend {
	case config.BackendGoogle:
		g, err := calendar.NewGoogle(ctx, cfg.Path(cfg.GoogleCredentialsFile), cfg.Path(cfg.GoogleTokenFile), log)
		if utils.LogFor(log, "calendar disabled", err) {
			return nil
		}
		transport = g
	case config.BackendICS:
		transport = calendar.NewICS(cfg.ICSSource, loc, log)
	default:
		return nil
	}
	return calendar.New(transport, loc, cfg.CalendarTimeout, log)
}
