package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homework_intake_bot/internal/app"
	"homework_intake_bot/internal/domain/dialogue"
	"homework_intake_bot/internal/infra/config"
	idb "homework_intake_bot/internal/infra/database"
	applogger "homework_intake_bot/internal/infra/logger"
	"homework_intake_bot/internal/infra/scheduler"
	"homework_intake_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		applogger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	applogger.Init(cfg)
	mainLogger := applogger.Get().WithField("component", "main")
	mainLogger.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Admin ID: %d",
		cfg.LogLevel, cfg.Environment, cfg.AdminTelegramID)

	// Database
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	if err := idb.EnsureSchema(db); err != nil {
		mainLogger.Fatalf("FATAL: Could not ensure database schema: %v", err)
	}
	mainLogger.Info("Database connection established and schema ensured")

	// Repositories
	studentRepo := idb.NewPostgresStudentRepository(db)
	submissionRepo := idb.NewPostgresSubmissionRepository(db)
	missReasonRepo := idb.NewPostgresMissReasonRepository(db)
	mainLogger.Info("Repositories initialized")

	// Telegram bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := applogger.Get().WithField("component", "telebot")
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.WithError(err).Error("Update handling failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}
	telegramClient := telegram.NewTelebotAdapter(bot)

	// Services
	serviceLogger := applogger.Get().WithField("component", "services")
	archiveService := app.NewArchiveService(telegramClient, cfg.ArchiveDir, serviceLogger)
	if err := archiveService.EnsureBaseDir(); err != nil {
		mainLogger.Fatalf("FATAL: Could not prepare archive directory: %v", err)
	}
	reportService := app.NewReportService(studentRepo, submissionRepo, missReasonRepo, serviceLogger)
	adminService := app.NewAdminService(studentRepo, submissionRepo, reportService, archiveService,
		telegramClient, cfg.AdminTelegramID, serviceLogger)
	maintenanceService := app.NewMaintenanceService(studentRepo, submissionRepo, missReasonRepo,
		telegramClient, cfg.AdminTelegramID, cfg.BroadcastText, cfg.BroadcastSendDelay, serviceLogger)
	intakeService := app.NewIntakeService(studentRepo, submissionRepo, missReasonRepo,
		telegramClient, dialogue.NewStore(), app.NewMediaGroupAggregator(), archiveService,
		adminService, cfg.AdminTelegramID, cfg.MediaGroupDebounce, serviceLogger)
	mainLogger.Info("Services initialized")

	// Handlers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handlerLogger := applogger.Get().WithField("component", "handlers")
	telegram.RegisterMessageHandlers(ctx, bot, intakeService, handlerLogger)
	telegram.RegisterCallbackHandlers(ctx, bot, intakeService, adminService, maintenanceService,
		cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Handlers registered")

	// Scheduler
	jobScheduler := scheduler.NewJobScheduler(
		maintenanceService,
		intakeService,
		applogger.Get().WithField("component", "scheduler"),
		cfg.CronSpecReminder,
		cfg.CronSpecSummary,
		cfg.CronSpecMissSweep,
		cfg.CronSpecBroadcast,
		cfg.CronSpecGroupFlush,
	)
	jobScheduler.Start()

	mainLogger.Info("Application setup complete. Bot and scheduler are starting...")
	go bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	cancel()
	jobScheduler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully")
}
