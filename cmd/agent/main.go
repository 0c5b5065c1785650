package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mtolling/internal/app"
	"mtolling/internal/broker"
	"mtolling/internal/config"
	"mtolling/internal/handler"
	"mtolling/internal/logging"
	"mtolling/internal/network"
	"mtolling/internal/positioning"
	internalRedis "mtolling/internal/redis"
	"mtolling/internal/remote"
	"mtolling/internal/repository"
	"mtolling/internal/repository/postgres"
	"mtolling/internal/service"
	"mtolling/internal/stream"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	log := logging.Component(logger, "main")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	// Optional PostgreSQL for the trip event history.
	var db *sql.DB
	if cfg.Database.Enabled {
		db, err = app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()
		log.Info("Connected to PostgreSQL")
	}

	// Optional Redis for shared state.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info("Connected to Redis")
	}

	// Optional AMQP publisher for trip events.
	var publisher *broker.Publisher
	if cfg.AMQP.Enabled {
		var conn *amqp.Connection
		publisher, conn, err = broker.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to broker")
		}
		defer conn.Close()
		defer publisher.Close()
		log.WithField("exchange", cfg.AMQP.Exchange).Info("Connected to AMQP broker")
	}

	agent, err := wireAgent(db, redisClient, publisher, nrApp, cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("failed to wire agent")
	}
	defer agent.hub.Close()

	// Restore background work as after a device boot.
	if started, err := agent.supervisor.OnBoot(context.Background(), service.BootActionCompleted); err != nil {
		log.WithError(err).Warn("boot restore failed")
	} else if started {
		log.Info("background work restored")
	}

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting control API")
		if err := agent.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := agent.server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	agent.supervisor.Shutdown(shutdownCtx)
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("Agent exited")
}

type agent struct {
	server     *http.Server
	supervisor *service.Supervisor
	hub        *stream.Hub
}

// wireAgent wires all dependencies. db, redisClient and publisher may be nil.
func wireAgent(
	db *sql.DB,
	redisClient *redis.Client,
	publisher *broker.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) (*agent, error) {
	// Remote API.
	client, err := network.New(network.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Logger:    logging.Component(logger, "network"),
	})
	if err != nil {
		return nil, err
	}
	api := remote.NewAPI(client)

	// Stores. Redis backs them when enabled, memory otherwise.
	var (
		credentials repository.CredentialStore = repository.NewMemoryCredentialStore()
		events      repository.TripEventRepository = repository.NewMemoryTripEventRepository(cfg.Tracking.EventHistory)
		tollStore   service.TollSnapshotStore
		mirror      service.LocationMirror
		registry    service.StatusRegistry
	)
	if redisClient != nil {
		credentials = internalRedis.NewCredentialStore(redisClient)
		tollStore = internalRedis.NewTollStore(redisClient)
		mirror = internalRedis.NewLocationMirror(redisClient)
		registry = internalRedis.NewStatusRegistry(redisClient, cfg.Tracking.DeviceID)
	}
	if db != nil {
		events = postgres.NewTripEventRepository(db)
	}
	settings := repository.NewSettings(credentials)

	hub := stream.NewHub(redisClient, logging.Component(logger, "stream"))

	// Services.
	authService := service.NewAuthService(credentials, api, logging.Component(logger, "auth"))

	notifyOpts := []service.NotificationOption{
		service.WithBroadcaster(hub, stream.TopicTrips),
		service.WithEventRepository(events),
	}
	if publisher != nil {
		notifyOpts = append(notifyOpts, service.WithEventPublisher(publisher))
	}
	notificationService := service.NewNotificationService(logging.Component(logger, "notification"), notifyOpts...)

	tollCache := service.NewTollCache(api, tollStore, logging.Component(logger, "tolls"))

	poller := service.NewTripPoller(api, authService, notificationService, service.TripPollerConfig{
		Interval:    cfg.Tracking.TripPollInterval,
		Enabled:     settings.TripMonitoringEnabled,
		NewRelicApp: nrApp,
		Logger:      logging.Component(logger, "trip_poller"),
	})

	providers := positioning.NewRegistry(cfg.Tracking.Providers...)
	tracker := service.NewLocationTracker(api, authService, providers.Providers(), service.LocationTrackerConfig{
		Request: positioning.Request{
			MinInterval: cfg.Tracking.LocationMinInterval,
			MinDistance: cfg.Tracking.LocationMinDistance,
		},
		DeviceID: cfg.Tracking.DeviceID,
		Mirror:   mirror,
		Hub:      hub,
		Topic:    stream.TopicLocation,
		Logger:   logging.Component(logger, "location_tracker"),
	})

	supervisor, err := service.NewSupervisor(authService, settings, tracker, poller, tollCache, service.SupervisorConfig{
		TollRefreshSchedule: cfg.Tracking.TollRefreshSchedule,
		HeartbeatSchedule:   cfg.Tracking.HeartbeatSchedule,
		StatusTTL:           cfg.Tracking.StatusTTL,
		Registry:            registry,
		Logger:              logging.Component(logger, "supervisor"),
	})
	if err != nil {
		return nil, err
	}

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		AuthHandler:     handler.NewAuthHandler(authService, supervisor),
		TollHandler:     handler.NewTollHandler(tollCache, authService),
		TripHandler:     handler.NewTripHandler(poller, notificationService),
		LocationHandler: handler.NewLocationHandler(tracker, providers),
		TrackingHandler: handler.NewTrackingHandler(supervisor),
		StreamHandler:   stream.NewHandler(hub),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
		Logger:          logging.Component(logger, "http"),
	})

	return &agent{
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		supervisor: supervisor,
		hub:        hub,
	}, nil
}
