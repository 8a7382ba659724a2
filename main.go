package main

import (
	"context"
	"errors"
	"healthcure-server/config"
	"healthcure-server/handlers"
	"healthcure-server/logging"
	"healthcure-server/services"
	"healthcure-server/utils/retry"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("healthcure-server", "development")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init("healthcure-server", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it the upstream clients simply do not cache.
	var cache services.Cache
	if cfg.Redis.Enabled {
		if client, err := connectRedis(ctx, cfg.Redis); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without cache")
		} else {
			defer client.Close()
			cache = services.NewRedisCache(client)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
	}

	httpClient := &http.Client{Timeout: cfg.Upstreams.HTTPTimeout}

	geocoderOpts := []services.GeocoderOption{
		services.WithGeocoderRateLimit(cfg.Upstreams.GeocoderRPS),
		services.WithGeocoderHTTPClient(httpClient),
	}
	var poiSource services.POISource = services.NewOverpassClient(cfg.Upstreams.OverpassURL, cfg.Upstreams.UserAgent, httpClient)
	if cache != nil {
		geocoderOpts = append(geocoderOpts, services.WithGeocoderCache(cache))
		poiSource = services.NewCachedPOISource(poiSource, cache, 0)
	}
	geocoder := services.NewNominatimGeocoder(cfg.Upstreams.NominatimURL, cfg.Upstreams.UserAgent, geocoderOpts...)

	ranker := services.NewRanker(services.NewRatingSource(cfg.Locator.RatingMode), cfg.Locator.TopN)
	locator := services.NewLocator(geocoder, services.NewDoctorSearcher(poiSource, cfg.Locator.RadiiMeters), ranker, services.RankBy(cfg.Locator.RankBy))

	sessions := services.NewSessionStore(locator, cfg.Locator.SessionTTL)
	go sessions.RunJanitor(ctx, time.Minute)

	predictions := services.NewPredictionService(cfg.Upstreams.PredictionBaseURL, httpClient, cache)

	routerCfg := handlers.RouterConfig{
		Doctors:        handlers.NewDoctorHandler(locator),
		Sessions:       handlers.NewSessionHandler(sessions),
		Predictions:    handlers.NewPredictionHandler(predictions),
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	if cfg.Mongo.Enabled {
		client, err := connectMongo(ctx, cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("MongoDB unavailable, account routes disabled")
		} else {
			defer client.Disconnect(context.Background())
			userService, err := services.NewUserService(ctx, client.Database(cfg.Mongo.Database), cache, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				log.Warn().Err(err).Msg("User service unavailable, account routes disabled")
			} else {
				routerCfg.Users = handlers.NewUserHandler(userService)
				routerCfg.Auth = handlers.NewAuthHandler(userService)
				log.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")
			}
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handlers.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.Upstreams.HTTPTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	log.Info().Msg("Server stopped")
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	err := retry.Do(ctx, retry.DefaultConfig(), "Redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, logAttempt("Redis"))
	if err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func connectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	err = retry.Do(ctx, retry.DefaultConfig(), "MongoDB", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx, nil)
	}, logAttempt("MongoDB"))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func logAttempt(name string) func(int, error, time.Duration) {
	return func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msgf("%s connection attempt failed", name)
	}
}
