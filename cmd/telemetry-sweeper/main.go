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

	"github.com/dreschagin/vessel-guard/internal/application/alerting"
	applicationPort "github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/application/usecase"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	rediscache "github.com/dreschagin/vessel-guard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/history"
	natsInfra "github.com/dreschagin/vessel-guard/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/vessel-guard/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/vessel-guard/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/vessel-guard/internal/sweeper"
	"github.com/dreschagin/vessel-guard/pkg/config"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	if !cfg.Sweeper.Enabled {
		log.Warn("Telemetry sweeper is disabled, exiting")
		return
	}
	log.Info(
		"Starting telemetry sweeper",
		"interval", cfg.Sweeper.Interval.String(),
		"lookback", cfg.Sweeper.Lookback.String(),
		"retention", cfg.Sweeper.Retention.String(),
		"port", cfg.Sweeper.Port,
	)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}

	tables, err := service.LoadEmbeddedTables()
	if err != nil {
		log.Error("Failed to load engine tables", err)
		os.Exit(1)
	}

	telemetryRepository := postgres.NewPostgresTelemetryRepository(db)

	registry := prometheus.NewRegistry()
	observer := metrics.New(registry)

	var historyProvider applicationPort.HistoricalContextProvider = history.NewRepositoryProvider(telemetryRepository)
	if cfg.Redis.Enabled {
		cacheImpl, initErr := rediscache.NewRedisCache(rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, baselines are read from Postgres", "error", initErr.Error())
		} else {
			defer cacheImpl.Close()
			historyProvider = history.NewCachedProvider(historyProvider, cacheImpl, log)
		}
	}

	var logsShipper *cloudwatch.LogsShipper
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsShipper(context.Background(), cloudwatch.LogsShipperConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName + "-sweeper",
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			BatchSize:       cfg.CloudWatch.LogsBatchSize,
			FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
			AutoCreate:      true,
			Service:         "telemetry-sweeper",
		})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsShipper = publisherImpl
		log.SetLogSink(publisherImpl)
	}

	var metricsPublisher *cloudwatch.ScorePublisher
	var scorePublisher applicationPort.ScoreRecorder
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewScorePublisher(context.Background(), cloudwatch.ScorePublisherConfig{
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
	}

	var alertBroker applicationPort.AlertBroker
	if cfg.NATS.Enabled {
		brokerImpl, initErr := natsInfra.Connect(natsInfra.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			AckTimeout:    cfg.NATS.AckTimeout,
			MaxAge:        cfg.NATS.StreamMaxAge,
		}, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, sweep alerts will only be logged", "error", initErr.Error())
		} else {
			alertBroker = brokerImpl
			defer brokerImpl.Close()
		}
	}

	// Вердикты цикла пишутся пачкой через sweeper, поэтому Verdicts в dispatcher'е не задан
	var batchStore sweeper.BatchVerdictStore
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
		batchStore = storeImpl
	} else {
		log.Warn("DynamoDB verdict store is disabled, sweep verdicts are not persisted")
	}

	sink := alerting.NewDispatcher(alerting.Options{
		Broker:        alertBroker,
		Metrics:       scorePublisher,
		Observer:      observer,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
	}, log)

	evaluator := usecase.NewEvaluateAnomalyUseCase(
		service.NewAnomalyDetector(tables.Profiles),
		historyProvider,
		sink,
		observer,
		usecase.EvaluateAnomalyConfig{
			ProviderTimeout:    cfg.Engine.ProviderTimeout,
			BaselineWindowDays: cfg.Engine.BaselineWindowDays,
		},
		log,
	)

	svc := sweeper.NewService(telemetryRepository, evaluator, batchStore, sweeper.Options{
		WindowSize:    cfg.Engine.WindowSize,
		Lookback:      cfg.Sweeper.Lookback,
		MaxSeries:     cfg.Sweeper.MaxSeries,
		Retention:     cfg.Sweeper.Retention,
		SummaryWindow: cfg.Sweeper.SummaryWindow,
	})
	runner := sweeper.NewRunner(svc, observer, cfg.Sweeper.Interval, cfg.Sweeper.RunTimeout, log)
	handler := sweeper.NewHandler(runner, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		// даем API время принять первые пакеты после деплоя
		select {
		case <-time.After(cfg.Sweeper.StartupDelay):
		case <-ctx.Done():
			return
		}
		if _, err := runner.RunOnce(ctx); err != nil {
			log.Warn("Initial sweep failed", "error", err.Error())
		}
		runner.Start(ctx)
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Sweeper.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Sweeper.RunTimeout + 10*time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Info("Sweeper HTTP server started", "port", cfg.Sweeper.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Sweeper HTTP server failed", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Sweeper HTTP server shutdown failed", err)
	}

	if metricsPublisher != nil {
		if err := metricsPublisher.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	log.Info("Telemetry sweeper stopped")

	if logsShipper != nil {
		_ = logsShipper.Close(shutdownCtx)
	}
}
