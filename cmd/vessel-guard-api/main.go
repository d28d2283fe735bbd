package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application
	"github.com/dreschagin/vessel-guard/internal/application/alerting"
	applicationPort "github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/application/usecase"

	// Domain
	"github.com/dreschagin/vessel-guard/internal/domain/service"

	// Infrastructure
	rediscache "github.com/dreschagin/vessel-guard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/history"
	natsInfra "github.com/dreschagin/vessel-guard/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/vessel-guard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/vessel-guard/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/vessel-guard/internal/infrastructure/storage/s3"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/weather"

	// Interfaces
	httpInterface "github.com/dreschagin/vessel-guard/internal/interfaces/http"
	"github.com/dreschagin/vessel-guard/internal/interfaces/http/handler"
	"github.com/dreschagin/vessel-guard/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/vessel-guard/pkg/config"
	"github.com/dreschagin/vessel-guard/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Vessel Guard API")

	// 3. Подключаемся к БД
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}
	log.Info("Database connected successfully")

	// 4. Справочные таблицы и доменные сервисы
	tables, err := service.LoadEmbeddedTables()
	if err != nil {
		log.Error("Failed to load engine tables", err)
		os.Exit(1)
	}

	detector := service.NewAnomalyDetector(tables.Profiles)
	validator := service.NewTelemetryValidator(tables.Profiles)
	aggregator := service.NewTelemetryAggregator()
	scorer := service.NewSafetyScorer(tables.Weights)

	// 5. Infrastructure Layer

	telemetryRepository := postgres.NewPostgresTelemetryRepository(db)
	referenceRepository := postgres.NewReferenceRepository(db)
	recordRepository := postgres.NewRecordRepository(db)

	hub := wsInfra.NewHub(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer := metrics.New(registry)

	readiness := map[string]httpInterface.ReadinessCheck{
		"postgres": db.PingContext,
	}

	// Redis: кэш baseline и истории рядов
	var cache applicationPort.Cache
	var historyProvider applicationPort.HistoricalContextProvider = history.NewRepositoryProvider(telemetryRepository)
	if cfg.Redis.Enabled {
		cacheImpl, initErr := rediscache.NewRedisCache(rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", "error", initErr.Error())
		} else {
			cache = cacheImpl
			defer cacheImpl.Close()
			historyProvider = history.NewCachedProvider(historyProvider, cacheImpl, log)
			log.Info("Redis cache initialized", "addr", cfg.Redis.Addr)
		}
	} else {
		log.Warn("Redis cache is disabled")
	}

	// Погодный провайдер
	var weatherProvider applicationPort.WeatherProvider
	if cfg.Weather.Enabled {
		client, initErr := weather.NewClient(weather.Config{
			BaseURL:        cfg.Weather.BaseURL,
			APIKey:         cfg.Weather.APIKey,
			RequestTimeout: cfg.Weather.RequestTimeout,
			CacheSize:      cfg.Weather.CacheSize,
			CacheTTL:       cfg.Weather.CacheTTL,
		}, scorer)
		if initErr != nil {
			log.Error("Failed to initialize weather provider", initErr)
			os.Exit(1)
		}
		weatherProvider = client
		log.Info("Weather provider initialized", "base_url", cfg.Weather.BaseURL)
	} else {
		log.Warn("Weather provider is disabled, weather checks will be skipped")
	}

	// CloudWatch Metrics Publisher
	var metricsPublisher *cloudwatch.ScorePublisher
	var scorePublisher applicationPort.ScoreRecorder
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewScorePublisher(context.Background(),
			cloudwatch.ScorePublisherConfig{
				Namespace:         cfg.CloudWatch.MetricsNamespace,
				Region:            cfg.CloudWatch.Region,
				Endpoint:          cfg.CloudWatch.Endpoint,
				AccessKeyID:       cfg.CloudWatch.AccessKeyID,
				SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
				DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
				MaxSeries:         cfg.CloudWatch.MetricsMaxSeries,
				FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
				StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
			}, log)
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		metricsPublisher = publisherImpl
		scorePublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// CloudWatch Logs Publisher
	var logsShipper *cloudwatch.LogsShipper
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsShipper(context.Background(),
			cloudwatch.LogsShipperConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.CloudWatch.AccessKeyID,
				SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
				BatchSize:       cfg.CloudWatch.LogsBatchSize,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
				Service:         "vessel-guard-api",
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsShipper = publisherImpl
		log.SetLogSink(publisherImpl)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// NATS JetStream
	var alertBroker applicationPort.AlertBroker
	if cfg.NATS.Enabled {
		brokerImpl, initErr := natsInfra.Connect(natsInfra.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			AckTimeout:    cfg.NATS.AckTimeout,
			MaxAge:        cfg.NATS.StreamMaxAge,
		}, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without alert broker", "error", initErr.Error())
		} else {
			alertBroker = brokerImpl
			defer brokerImpl.Close()
			log.Info("NATS alert broker initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS alert broker is disabled")
	}

	// DynamoDB: история вердиктов
	var verdictStore applicationPort.VerdictStore
	if cfg.Dynamo.Enabled {
		storeImpl, initErr := dynamodbRepo.NewVerdictStore(context.Background(), dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableVerdicts,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
			RecordTTLDays:   cfg.Dynamo.RecordTTLDays,
		})
		if initErr != nil {
			log.Error("Failed to initialize verdict store", initErr)
			os.Exit(1)
		}
		verdictStore = storeImpl
		log.Info("Verdict store initialized", "provider", "dynamodb", "table", cfg.Dynamo.TableVerdicts)
	} else {
		log.Warn("DynamoDB verdict store is disabled, verdict history is unavailable")
	}

	// S3: архив отчетов о чрезвычайных ситуациях
	var reportArchive applicationPort.ReportArchive
	if cfg.S3.Enabled {
		archiveImpl, initErr := s3storage.NewReportArchive(context.Background(), s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize report archive", initErr)
			os.Exit(1)
		}
		reportArchive = archiveImpl
		log.Info("Emergency report archive initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 report archive is disabled, emergency reports will not be archived")
	}

	// 6. Application Layer

	sink := alerting.NewDispatcher(alerting.Options{
		Verdicts:        verdictStore,
		Assessments:     recordRepository,
		Recommendations: recordRepository,
		Broker:          alertBroker,
		Live:            hub,
		Metrics:         scorePublisher,
		Observer:        observer,
		SubjectPrefix:   cfg.NATS.SubjectPrefix,
	}, log)

	evaluateAnomalyUC := usecase.NewEvaluateAnomalyUseCase(
		detector,
		historyProvider,
		sink,
		observer,
		usecase.EvaluateAnomalyConfig{
			ProviderTimeout:    cfg.Engine.ProviderTimeout,
			BaselineWindowDays: cfg.Engine.BaselineWindowDays,
		},
		log,
	)
	ingestTelemetryUC := usecase.NewIngestTelemetryUseCase(
		telemetryRepository,
		validator,
		aggregator,
		evaluateAnomalyUC,
		cache,
		usecase.IngestTelemetryConfig{WindowSize: cfg.Engine.WindowSize},
		log,
	)
	seriesHistoryUC := usecase.NewGetSeriesHistoryUseCase(telemetryRepository, aggregator, cache, log)
	listVerdictsUC := usecase.NewListVerdictsUseCase(verdictStore, usecase.ListVerdictsConfig{}, log)

	sources := usecase.SafetySources{
		Zones:     referenceRepository,
		Equipment: referenceRepository,
		Baselines: referenceRepository,
		Emergency: referenceRepository,
		Weather:   weatherProvider,
		Reports:   reportArchive,
	}
	safetyConfig := usecase.SafetyConfig{
		ProviderTimeout:   cfg.Engine.ProviderTimeout,
		HarborRadiusKm:    cfg.Engine.HarborRadiusKm,
		EmergencyRadiusKm: cfg.Engine.EmergencyRadiusKm,
		ReportKeyPrefix:   cfg.S3.KeyPrefix,
	}

	// 7. Interfaces Layer

	handlers := httpInterface.Handlers{
		Anomaly:   handler.NewAnomalyAPIHandler(evaluateAnomalyUC, listVerdictsUC, tables.Profiles, log),
		Telemetry: handler.NewTelemetryAPIHandler(ingestTelemetryUC, seriesHistoryUC, 7*24*time.Hour, log),
		Safety: handler.NewSafetyAPIHandler(
			usecase.NewAssessLocationUseCase(scorer, sources, sink, observer, safetyConfig, log),
			usecase.NewAnalyzeRouteUseCase(scorer, sources, sink, observer, safetyConfig, log),
			usecase.NewCheckEquipmentUseCase(scorer, sources, sink, observer, safetyConfig, log),
			usecase.NewHandleEmergencyUseCase(scorer, sources, sink, observer, safetyConfig, log),
			log,
		),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, log),
	}

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	router := httpInterface.NewRouter(handlers, observer, registry, limiter, readiness, log)

	// 8. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	if limiter != nil {
		go limiter.RunCleanup(ctx.Done())
	}

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// hub и очистка limiter'а останавливаются после HTTP сервера
	cancel()

	if metricsPublisher != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisher.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	log.Info("Server stopped gracefully")

	if logsShipper != nil {
		if err := logsShipper.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush CloudWatch logs: %v\n", err)
		}
	}
}
