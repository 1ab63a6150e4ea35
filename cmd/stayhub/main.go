package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stayhub/internal/app/commands"
	bookingapp "stayhub/internal/app/handlers/booking"
	listingsapp "stayhub/internal/app/handlers/listings"
	reviewsapp "stayhub/internal/app/handlers/reviews"
	"stayhub/internal/app/middleware"
	"stayhub/internal/app/queries"
	appauth "stayhub/internal/app/services/auth"
	"stayhub/internal/app/uow"
	domainauth "stayhub/internal/domain/auth"
	domainuser "stayhub/internal/domain/user"
	"stayhub/internal/infra/broker/kafka"
	"stayhub/internal/infra/config"
	mongoinfra "stayhub/internal/infra/db/mongo"
	ginserver "stayhub/internal/infra/http/gin"
	"stayhub/internal/infra/obs"
	infraoutbox "stayhub/internal/infra/outbox"
	"stayhub/internal/infra/security"
	"stayhub/internal/infra/storage/memory"
	"stayhub/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if parseBool(os.Getenv("SEED_DEMO_DATA")) {
		if err := seedDemoData(ctx, app, logger); err != nil {
			logger.Warn("demo data seed failed", "error", err)
		}
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Probes: app.probes,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	queries  queries.Bus
	auth     *appauth.Service
	worker   *infraoutbox.Relay
	probes   map[string]obs.ReadinessProbe
	producer *kafka.Producer
}

func (a application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{probes: map[string]obs.ReadinessProbe{}}

	var (
		uowFactory  uow.UoWFactory
		usersRepo   domainuser.Repository
		sessions    domainauth.SessionStore
		outboxStore infraoutbox.EventStore
		idStore     middleware.IdempotencyStore
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongoinfra.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("connect mongo: %w", err)
		}
		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.EnsureIndexes(indexCtx); err != nil {
			return application{}, fmt.Errorf("ensure indexes: %w", err)
		}
		uowFactory = mongoinfra.Factory{
			DB:           client.DB,
			ListingsRepo: mongoinfra.NewListingRepository(client.DB),
			BookingRepo:  mongoinfra.NewBookingRepository(client.DB),
			ReviewsRepo:  mongoinfra.NewReviewRepository(client.DB),
		}
		usersRepo = mongoinfra.NewUserRepository(client.DB)
		sessions = mongoinfra.NewSessionStore(client.DB)
		outboxStore = mongoinfra.NewOutboxStore(client.DB)
		idStore = mongoinfra.NewIdempotencyStore(client.DB)
		app.probes["mongo"] = client.Ping
	default:
		uowFactory = memory.Factory{
			ListingsRepo: memory.NewListingRepository(),
			BookingRepo:  memory.NewBookingRepository(),
			ReviewsRepo:  memory.NewReviewRepository(),
		}
		usersRepo = memory.NewUserRepository()
		sessions = memory.NewSessionStore()
		outboxStore = infraoutbox.NewStore()
		idStore = memory.NewIdempotencyStore()
	}

	box := memory.NewOutbox(outboxStore)

	uploader := buildUploader(cfg, logger)

	authService := &appauth.Service{
		Users:      usersRepo,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	app.auth = authService

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, &bookingapp.RequestBookingHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, &bookingapp.ChangeStatusHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, &listingsapp.CreateListingHandler{
		Users:  usersRepo,
		Outbox: box,
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, &listingsapp.UpdateListingHandler{
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, &listingsapp.DeleteListingHandler{
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, &listingsapp.UploadListingPhotoHandler{
		Logger:   logger,
		Uploader: uploader,
	})
	commands.RegisterHandler(commandBus, &reviewsapp.SubmitReviewHandler{
		UoWFactory: uowFactory,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, &reviewsapp.UpdateReviewHandler{
		UoWFactory: uowFactory,
		Logger:     logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, &bookingapp.GuestBookingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, &listingsapp.GetListingHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, &listingsapp.SearchCatalogHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, &listingsapp.AvailableListingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, &reviewsapp.ListReviewsHandler{UoWFactory: uowFactory})

	app.commands = middleware.ChainCommands(
		commandBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(box),
	)
	app.queries = middleware.ChainQueries(queryBus)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, fmt.Errorf("connect kafka: %w", err)
		}
		app.producer = producer
		app.worker = &infraoutbox.Relay{
			Store:       outboxStore,
			Producer:    producer,
			PollEvery:   cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
	}

	authMW := ginserver.AuthMiddleware{Service: authService, Logger: logger}
	app.handlers = ginserver.Handlers{
		Listing:        ginserver.ListingHandler{Commands: app.commands, Queries: app.queries},
		Booking:        ginserver.BookingHandler{Commands: app.commands, Queries: app.queries},
		Review:         ginserver.ReviewHandler{Commands: app.commands, Queries: app.queries},
		Auth:           ginserver.AuthHandler{Service: authService},
		AuthMiddleware: authMW.Handle,
	}
	return app, nil
}

func buildUploader(cfg config.Config, logger *slog.Logger) s3.Uploader {
	if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" {
		return s3.NoopUploader{}
	}
	client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
	if err != nil {
		logger.Warn("object storage unavailable, photo uploads disabled", "error", err)
		return s3.NoopUploader{}
	}
	return client
}

func parseBool(raw string) bool {
	switch raw {
	case "1", "t", "true", "yes", "on":
		return true
	default:
		return false
	}
}
