package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/cloudflying87/qrgenerator/config"
	appmodel "github.com/cloudflying87/qrgenerator/internal/app/model"
	apprepository "github.com/cloudflying87/qrgenerator/internal/app/repository"
	appserver "github.com/cloudflying87/qrgenerator/internal/app/server"
	appservice "github.com/cloudflying87/qrgenerator/internal/app/service"
	"github.com/cloudflying87/qrgenerator/internal/fingerprint"
	"github.com/cloudflying87/qrgenerator/internal/infra/logger"
	infraNATS "github.com/cloudflying87/qrgenerator/internal/infra/nats"
	infraPostgres "github.com/cloudflying87/qrgenerator/internal/infra/postgres"
	infraPrometheus "github.com/cloudflying87/qrgenerator/internal/infra/prometheus"
	infraRedis "github.com/cloudflying87/qrgenerator/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_url", cfg.App.BaseURL),
		zap.Int("port", cfg.App.Port),
		zap.String("postgres_user", cfg.Postgres.User),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.QRCode{}, &appmodel.ScanEvent{}, &appmodel.CodeVisitor{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	codeRepo := apprepository.NewQRCodeRepository(gormDB)
	scanRepo := apprepository.NewScanRepository(gormDB)

	codeFilter := appservice.NewCodeFilter(codeRepo, log)
	if err := codeFilter.Seed(ctx); err != nil {
		log.Fatal("Failed to seed short-code filter", zap.Error(err))
	}
	codeFilter.Start()
	defer codeFilter.Stop()

	allocator := appservice.NewAllocator()
	codeService := appservice.NewQRCodeService(codeRepo, allocator, codeFilter)
	analyticsService := appservice.NewAnalyticsService(codeRepo, scanRepo)

	recorder := appservice.NewScanRecorder(appservice.ScanRecorderDeps{
		Codes:        codeRepo,
		Scans:        scanRepo,
		Fingerprints: fingerprint.New(cfg.App.FingerprintSecret),
		Publisher:    appservice.NewScanPublisher(js),
		Logger:       log,
	})

	consumer := appservice.NewScanConsumer(js, redisClient, log)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start scan consumer", zap.Error(err))
	}

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Config:    cfg,
		Postgres:  pool,
		Redis:     redisClient,
		NATS:      natsConn,
		JetStream: js,
		Codes:     codeService,
		Analytics: analyticsService,
		Recorder:  recorder,
		Filter:    codeFilter,
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	log.Info("Starting HTTP server", zap.String("addr", addr))
	if err := server.Listen(addr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
