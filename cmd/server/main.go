package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/config"
	"github.com/ami-notifications/notifier/internal/eventbus"
	"github.com/ami-notifications/notifier/internal/handlers"
	"github.com/ami-notifications/notifier/internal/middleware"
	"github.com/ami-notifications/notifier/internal/migration"
	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/ami-notifications/notifier/internal/push"
	"github.com/ami-notifications/notifier/internal/repository"
	"github.com/ami-notifications/notifier/internal/routes"
	"github.com/ami-notifications/notifier/internal/temporal"
	"github.com/ami-notifications/notifier/internal/temporal/activities"
	"github.com/ami-notifications/notifier/internal/temporal/workflows"
	"github.com/ami-notifications/notifier/internal/worker"
	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	tw "go.temporal.io/sdk/worker"
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	bus           *eventbus.Bus
	events        eventbus.Publisher
	notifications notification.Service
	publisher     *notification.Publisher
	sweeper       *notification.Sweeper
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	goose.SetLogger(migration.NewGooseAdapter(logger))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
		bus:    eventbus.New(eventbus.DefaultBufferSize, logger),
	}
	app.events = app.bus
	if cfg.Redis.Enabled {
		app.events = app.startRedisRelay(ctx)
	}
	app.initNotifications(ctx)

	stopScheduler := app.startScheduler(ctx)

	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PATCH", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(ctx, corsHandler)

	stop()
	stopScheduler()
	logger.Info().Msg("Application terminated.")
}

// startRedisRelay shares events with the other API instances.
func (app *application) startRedisRelay(ctx context.Context) eventbus.Publisher {
	client := eventbus.NewRedisClient(app.config.Redis)
	relay := eventbus.NewRedisRelay(client, app.config.Redis.Channel, app.bus, app.logger)
	go func() {
		defer client.Close()
		relay.Serve(ctx)
	}()
	return relay
}

func (app *application) initNotifications(ctx context.Context) {
	notificationRepo := repository.NewNotificationRepository(app.db)
	scheduledRepo := repository.NewScheduledNotificationRepository(app.db)
	registrationRepo := repository.NewRegistrationRepository(app.db)

	notifiers := app.initNotifiers(ctx)
	dispatcher := notification.NewDispatcher(
		registrationRepo,
		notificationRepo,
		app.events,
		app.config.Push.Concurrency,
		app.logger,
		notifiers...,
	)

	app.publisher = notification.NewPublisher(scheduledRepo, dispatcher, app.logger)
	app.sweeper = notification.NewSweeper(scheduledRepo, app.config.Scheduler.RetentionWindow, app.logger)
	app.notifications = notification.NewService(notification.ServiceConfig{
		Notifications: notificationRepo,
		Scheduled:     scheduledRepo,
		Dispatcher:    dispatcher,
		Publisher:     app.publisher,
		Sweeper:       app.sweeper,
		Events:        app.events,
		Logger:        app.logger,
	})
}

// initNotifiers builds one notifier per configured push channel. A missing
// channel only disables delivery to registrations of that kind.
func (app *application) initNotifiers(ctx context.Context) []notification.Notifier {
	var notifiers []notification.Notifier
	pushCfg := app.config.Push

	if pushCfg.WebPushEnabled() {
		adapter, err := push.NewWebPushAdapter(pushCfg.WebPush)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("Failed to configure web push")
		}
		notifiers = append(notifiers, notification.NewWebPushNotifier(adapter, &http.Client{Timeout: pushCfg.HTTPTimeout}))
	} else {
		app.logger.Warn().Msg("Web push disabled: VAPID keys are not configured")
	}

	var (
		gateway push.MobileGateway
		err     error
	)
	switch pushCfg.Mobile.Provider {
	case config.MobileProviderFCM:
		gateway, err = push.NewFCMGateway(ctx, pushCfg.Mobile.FCM, app.logger)
	case config.MobileProviderSNS:
		gateway, err = push.NewSNSGateway(ctx, pushCfg.Mobile.SNS, app.logger)
	}
	switch {
	case err != nil:
		app.logger.Fatal().Err(err).Str("provider", pushCfg.Mobile.Provider).Msg("Failed to configure mobile push")
	case gateway != nil:
		notifiers = append(notifiers, notification.NewMobileNotifier(gateway))
	default:
		app.logger.Warn().Msg("Mobile push disabled: no provider configured")
	}

	return notifiers
}

func (app *application) initRouter() http.Handler {
	return routes.NewRouter(routes.Handlers{
		Auth:          authz.NewAuthenticator(app.config.JWTSecret),
		DB:            app.db,
		Notifications: handlers.NewNotificationHandler(app.notifications, app.logger),
		Scheduled:     handlers.NewScheduledHandler(app.notifications, app.logger),
		Jobs:          handlers.NewJobHandler(app.notifications, app.logger),
		Stream:        handlers.NewStreamHandler(app.bus, app.config.AllowedOrigins, app.logger),
	})
}

// startScheduler runs the periodic publish and sweep jobs according to
// scheduler.mode and returns a function that stops them.
func (app *application) startScheduler(ctx context.Context) func() {
	sched := app.config.Scheduler
	switch sched.Mode {
	case config.SchedulerModeTemporal:
		return app.startTemporalWorker(ctx)
	case config.SchedulerModeOff:
		app.logger.Info().Msg("Scheduler disabled; use the internal job endpoints")
		return func() {}
	}

	w, err := worker.NewWorker(worker.WorkerConfig{
		Publisher:       app.publisher,
		Sweeper:         app.sweeper,
		PublishInterval: sched.PublishInterval,
		SweepInterval:   sched.SweepInterval,
		Logger:          app.logger,
	})
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()
	return func() { <-done }
}

func (app *application) startTemporalWorker(ctx context.Context) func() {
	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  app.config.Temporal.HostPort,
		Namespace: app.config.Temporal.Namespace,
		Logger:    temporal.NewLogAdapter(app.logger),
	})
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}

	w := tw.New(temporalClient, temporal.TaskQueueName, tw.Options{})
	workflows.Register(w, &activities.Activities{
		Publisher: app.publisher,
		Sweeper:   app.sweeper,
	})

	if err := w.Start(); err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to start Temporal worker")
	}
	app.logger.Info().Msg("Temporal worker started")

	sched := app.config.Scheduler
	if err := temporal.EnsureSchedules(ctx, temporalClient.ScheduleClient(), sched.PublishInterval, sched.SweepInterval, app.logger); err != nil {
		app.logger.Error().Err(err).Msg("Failed to register Temporal schedules")
	}

	return func() {
		app.logger.Info().Msg("Stopping Temporal worker...")
		w.Stop()
		temporalClient.Close()
		app.logger.Info().Msg("Temporal worker stopped.")
	}
}

// startServer launches the HTTP server and blocks until ctx is cancelled or
// the server fails, then shuts it down gracefully.
func (app *application) startServer(ctx context.Context, handler http.Handler) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		app.logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		app.logger.Info().Msg("Shutdown signal received")
	case err := <-serverErrCh:
		app.logger.Error().Err(err).Msg("Server error occurred")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		app.logger.Info().Msg("HTTP server shutdown complete.")
	}
}
