package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/channel"
	"mcn-dashboard/internal/config"
	"mcn-dashboard/internal/dashboard"
	"mcn-dashboard/internal/db"
	"mcn-dashboard/internal/dimension"
	"mcn-dashboard/internal/health"
	"mcn-dashboard/internal/logging"
	"mcn-dashboard/internal/middleware"
	"mcn-dashboard/internal/project"
	"mcn-dashboard/internal/staff"
	"mcn-dashboard/internal/task"
	"mcn-dashboard/internal/visibility"
	"mcn-dashboard/internal/worker"
	"mcn-dashboard/internal/youtube"
	"mcn-dashboard/redis"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "mcn-dashboard"})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Seed database with initial data (for development)
	if cfg.Environment == "development" {
		if err := db.SeedData(database); err != nil {
			logging.Warn().Err(err).Msg("failed to seed database")
		}
	}

	redisClient := redis.NewClient(ctx, cfg.RedisAddress)
	cache := redis.NewCache(redisClient)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	resolver := visibility.NewResolver(visibility.NewGormLookup(database))
	auditService := audit.NewService(audit.NewRepository(database))

	dashboardService := dashboard.NewService(dashboard.NewRepository(database), resolver, dashboard.Options{
		QueryTimeout: cfg.QueryTimeout,
		Cache:        cache,
		CacheTTL:     cfg.CacheTTL,
	})
	staffService := staff.NewService(staff.NewRepository(database), auditService, dashboardService)
	teamService := dimension.NewTeamService(database, auditService, dashboardService)
	networkService := dimension.NewNetworkService(database, auditService, dashboardService)
	projectService := project.NewService(project.NewRepository(database), auditService, dashboardService)
	taskService := task.NewService(task.NewRepository(database), resolver, auditService)
	channelService := channel.NewService(channel.NewRepository(database), resolver, auditService, dashboardService)

	syncPool := worker.NewWorkerPool("youtube-sync", cfg.SyncWorkers, 100)
	oauthConfig := youtube.NewOAuthConfig(cfg)
	youtubeRepo := youtube.NewRepository(database)
	syncer := youtube.NewSyncer(youtubeRepo, youtube.NewGoogleAnalytics(oauthConfig), syncPool, dashboardService, youtube.SyncerOptions{
		RequestsPerSecond: cfg.YoutubeRPS,
	})
	connectService := youtube.NewConnectService(youtube.NewGoogleConnector(oauthConfig), tokens, youtubeRepo, auditService, dashboardService)

	var scheduler *cron.Cron
	if cfg.GoogleConfigured() {
		scheduler, err = youtube.NewScheduler(cfg.SyncCronSchedule, syncer, time.Hour)
		if err != nil {
			logging.Fatal().Err(err).Str("schedule", cfg.SyncCronSchedule).Msg("invalid sync schedule")
		}
		scheduler.Start()
		logging.Info().Str("schedule", cfg.SyncCronSchedule).Msg("daily metrics sync scheduled")
	} else {
		logging.Warn().Msg("google oauth not configured, youtube connect and scheduled sync are disabled")
	}

	// Health
	sqlDB, err := database.DB()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to get sql handle")
	}
	monitor := health.NewMonitor(15*time.Second,
		health.Check{Name: "database", Probe: sqlDB.PingContext},
		health.Check{Name: "redis", Optional: true, Probe: func(ctx context.Context) error {
			if redisClient == nil {
				return errors.New("redis not configured")
			}
			return redisClient.Ping(ctx).Err()
		}},
	)
	go monitor.Run(ctx)

	grpcServer, err := health.Serve(":"+cfg.GRPCHealthPort, monitor)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to start grpc health server")
	}

	router := newRouter(cfg, routes{
		authMiddleware: (&middleware.Auth{Tokens: tokens, Staff: staffService}).AuthMiddleWare(),
		staff:          staff.NewHandler(staffService, tokens, cfg.IsProduction()),
		dashboard:      dashboard.NewHandler(dashboardService),
		teams:          dimension.NewHandler(teamService),
		networks:       dimension.NewHandler(networkService),
		projects:       project.NewHandler(projectService),
		tasks:          task.NewHandler(taskService),
		channels:       channel.NewHandler(channelService),
		youtube:        youtube.NewHandler(connectService, syncer, cfg.FrontendAddress),
		audit:          audit.NewHandler(auditService),
		health:         monitor,
	})

	// Server configuration
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logging.Info().Str("port", cfg.ServerPort).Msg("server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logging.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := syncer.Close(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("metrics sync did not stop in time")
	}
	if err := syncPool.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("sync workers did not stop in time")
	}
	grpcServer.GracefulStop()
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logging.Info().Msg("server shutdown complete")
}
