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

	"github.com/Maxxvall/OBNLIGA-sub002/brackets"
	"github.com/Maxxvall/OBNLIGA-sub002/cache"
	"github.com/Maxxvall/OBNLIGA-sub002/config"
	"github.com/Maxxvall/OBNLIGA-sub002/db"
	"github.com/Maxxvall/OBNLIGA-sub002/handlers"
	"github.com/Maxxvall/OBNLIGA-sub002/markets"
	"github.com/Maxxvall/OBNLIGA-sub002/notify"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
	api "github.com/Maxxvall/OBNLIGA-sub002/routes"
	"github.com/Maxxvall/OBNLIGA-sub002/services"
	"github.com/Maxxvall/OBNLIGA-sub002/storage"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const streamMaxLen = 10000

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Error("failed to load league rules", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(ctx, dbConn, logger); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	wsHub := notify.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket hub started")

	publishers := notify.Multi{wsHub}
	collab := services.FinalizationCollaborators{}
	var readCache handlers.ReadCache

	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisCache.Close()
		collab.Cache = redisCache
		readCache = redisCache
		publishers = append(publishers, notify.NewRedisStreamPublisher(redisCache.Client(), streamMaxLen))
		logger.Info("redis cache and streams enabled")
	} else {
		logger.Warn("REDIS_URL is not set, running without cache and stream notifications")
	}
	collab.Publisher = publishers

	r2Config := storage.CloudflareR2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2Config.Enabled() {
		objects, err := storage.NewCloudflareR2Store(ctx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		collab.Snapshot = storage.NewSnapshotStore(objects, "standings", rules.Cache.StandingsTTL)
		logger.Info("standings snapshots enabled")
	}

	transactor := repositories.NewPostgresTransactor(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	seriesRepo := repositories.NewPostgresSeriesRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	dqRepo := repositories.NewPostgresDisqualificationRepository(dbConn)
	predictionRepo := repositories.NewPostgresPredictionRepository(dbConn)
	expressRepo := repositories.NewPostgresExpressRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	achievementRepo := repositories.NewPostgresAchievementRepository(dbConn)
	logger.Info("repositories initialized")

	aggregateService := services.NewAggregateService(matchRepo, seasonRepo, statsRepo, rules.Points, logger)
	disqualificationService := services.NewDisqualificationService(matchRepo, statsRepo, dqRepo, rules.Discipline, logger)
	settlementService := services.NewSettlementService(matchRepo, predictionRepo, expressRepo, achievementRepo,
		expressRules(rules.Express), logger)
	playoffService := services.NewPlayoffService(matchRepo, seriesRepo, seasonRepo, statsRepo, settlementService,
		scheduleRules(rules.Schedule), rules.Points, logger)
	standingsService := services.NewStandingsService(seasonRepo, statsRepo)
	templateService := services.NewTemplateService(matchRepo, predictionRepo, services.FlatModel{}, logger)
	ratingService := services.NewRatingService(ratingRepo, collab.Cache, logger)

	collab.Ratings = ratingService
	collab.Templates = templateService
	finalizationService := services.NewFinalizationService(
		transactor,
		matchRepo,
		seasonRepo,
		aggregateService,
		disqualificationService,
		settlementService,
		playoffService,
		standingsService,
		collab,
		cfg.FinalizeTimeout,
		rules.Cache.StandingsTTL,
		logger,
	)
	logger.Info("services initialized")

	go runTemplateScheduler(ctx, templateService, cfg.TemplateRefreshInterval, logger)

	finalizationHandler := handlers.NewFinalizationHandler(finalizationService, templateService)
	seasonHandler := handlers.NewSeasonHandler(standingsService, readCache, rules.Cache.StandingsTTL, logger)
	ratingHandler := handlers.NewRatingHandler(ratingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		finalizationHandler,
		seasonHandler,
		ratingHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Finalization may run up to its own timeout, so the write timeout leaves room for it.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.FinalizeTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

// runTemplateScheduler keeps prediction templates of upcoming matches fresh.
func runTemplateScheduler(ctx context.Context, templates services.TemplateService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("template refresh scheduler started", slog.Duration("interval", interval))

	refresh := func() {
		written, err := templates.RefreshUpcoming(ctx, nil)
		if err != nil {
			logger.Error("scheduler: template refresh failed", slog.Any("error", err))
			return
		}
		logger.Info("scheduler: templates refreshed", slog.Int("written", written))
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func expressRules(r config.ExpressRules) markets.ExpressRules {
	multipliers := make(map[int]decimal.Decimal, len(r.Multipliers))
	for n, m := range r.Multipliers {
		multipliers[n] = decimal.NewFromFloat(m)
	}
	return markets.ExpressRules{MinItems: r.MinItems, MaxItems: r.MaxItems, Multipliers: multipliers}
}

func scheduleRules(r config.ScheduleRules) brackets.ScheduleRules {
	return brackets.ScheduleRules{
		StageGap:      r.StageGap,
		SeriesSpacing: r.SeriesSpacing,
		ThirdPlaceLag: r.ThirdPlaceLag,
	}
}
