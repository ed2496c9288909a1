package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"history-guide/config"
	"history-guide/events"
	"history-guide/handlers"
	"history-guide/middleware"
	"history-guide/obs"
	"history-guide/repository"
	"history-guide/services"
	"history-guide/utils/logger"
	"history-guide/workers"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "history-guide"

func main() {
	if _, err := logger.New("info", os.Getenv("ENV")); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Zlog.Fatal("Error loading configuration", zap.Error(err))
	}
	if _, err := logger.New(cfg.LogLevel, cfg.Env); err != nil {
		logger.Zlog.Fatal("Error building logger", zap.Error(err))
	}
	defer func() { _ = logger.Zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		logger.Zlog.Fatal("Error initialising tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// MongoDB
	mongoClient, err := repository.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Zlog.Fatal("Error connecting to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Zlog.Fatal("Error creating indexes", zap.Error(err))
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Zlog.Fatal("Error connecting to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Events
	var publisher events.Publisher = events.LogPublisher{}
	if cfg.RabbitURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			logger.Zlog.Fatal("Error connecting to RabbitMQ", zap.Error(err))
		}
		publisher = rabbit
	}
	defer publisher.Close()

	// Services
	poiRepo := repository.NewPOIRepository(db)
	poiService := services.NewPOIService(poiRepo, redisClient)
	ratingService := services.NewRatingService(repository.NewRatingRepository(db), poiRepo)
	geofenceService := services.NewGeofenceService(redisClient, services.GeofenceConfig{
		RadiusMeters:   cfg.GeofenceRadiusMeters,
		LoiteringDelay: cfg.GeofenceLoiteringDelay,
	})
	userRepo := repository.NewUserRepository(db)
	userService := services.NewUserService(userRepo, poiRepo, geofenceService, publisher, redisClient)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)

	if cfg.SeedFile != "" {
		if err := poiService.Seed(ctx, cfg.SeedFile); err != nil {
			logger.Zlog.Fatal("Error seeding POIs", zap.Error(err))
		}
	}
	if err := poiService.RebuildIndex(ctx); err != nil {
		logger.Zlog.Warn("Nearby search unavailable until POIs are re-indexed", zap.Error(err))
	}

	// Auth
	var validators []middleware.AuthValidator
	if cfg.HasAuthDriver("local") {
		validators = append(validators, middleware.NewLocalValidator(cfg.JWTSecret))
	}
	if cfg.HasAuthDriver("auth0") {
		auth0Validator, err := middleware.NewAuth0Validator(cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			logger.Zlog.Fatal("Error setting up Auth0", zap.Error(err))
		}
		validators = append(validators, auth0Validator)
	}

	r := newRouter(routes{
		allowedOrigins: cfg.AllowedOrigins,
		validators:     validators,
		roles:          userService,
		auth:           handlers.NewAuthHandler(authService, userService),
		pois:           handlers.NewPOIHandler(poiService, ratingService, userService),
		rating:         handlers.NewRatingHandler(ratingService),
		user:           handlers.NewUserHandler(userService),
		feed: handlers.FeedHandler{
			POIs:        poiService,
			BaseURL:     cfg.FeedBaseURL,
			AuthorName:  cfg.FeedAuthorName,
			AuthorEmail: cfg.FeedAuthorEmail,
			CacheMaxAge: 10 * time.Minute,
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Zlog.Info("Server starting", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.RabbitURL != "" {
		consumer := workers.NewNotificationConsumer(workers.Config{
			RabbitURL:   cfg.RabbitURL,
			Exchange:    cfg.EventsExchange,
			Queue:       cfg.NotifyQueue,
			UseDLX:      cfg.NotifyDLX != "",
			DLXName:     cfg.NotifyDLX,
			DLXQueue:    cfg.NotifyDLQ,
			ServiceName: serviceName,
		}, workers.NewLogNotifier())
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Zlog.Error("Server stopped", zap.Error(err))
	}
}
