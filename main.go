package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/aster/config"
	"github.com/Ramsey-B/aster/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/aster/internal/repositories/person"
	"github.com/Ramsey-B/aster/internal/repositories/personlinks"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/dedup"
	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/middleware"
	duplicateroutes "github.com/Ramsey-B/aster/pkg/routes/duplicate"
	"github.com/Ramsey-B/aster/pkg/routes/health"
	personroutes "github.com/Ramsey-B/aster/pkg/routes/person"
	"github.com/Ramsey-B/aster/pkg/startup"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/tracing/exporters"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	log := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sqlxDB          *sqlx.DB
		db              database.DB
		peopleRepo      *person.Repository
		candidateRepo   *duplicatecandidate.Repository
		linksRepo       *personlinks.Repository
		scanner         *dedup.Scanner
		producer        *kafka.Producer
		consumer        *kafka.Consumer
		checker         *health.Checker
		e               *echo.Echo
		tracingShutdown func(context.Context) error
	)

	s := startup.NewStartup(log, cfg.StartupMaxAttempts)

	s.AddDependency(&startup.FuncDependency{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
				cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)

			var err error
			sqlxDB, err = sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}

			db = database.NewDatabaseInstance(sqlxDB, log)
			db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			peopleRepo = person.NewRepository(db, log)
			candidateRepo = duplicatecandidate.NewRepository(db, log)
			linksRepo = personlinks.NewRepository(db, log)

			fuzzyConfig := matching.DefaultFuzzyMatcherConfig()
			fuzzyConfig.Threshold = cfg.FuzzyMatchThreshold
			fuzzyConfig.BlockingEnabled = cfg.ScanBlockingEnabled

			scanner = dedup.NewScanner(log, peopleRepo, candidateRepo, dedup.ScannerConfig{
				MaxPeople: cfg.ScanMaxPeoplePerBatch,
				Fuzzy:     fuzzyConfig,
			})

			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	})

	s.AddDependency(&startup.FuncDependency{
		Name:  "migrations",
		Needs: []string{"database"},
		StartFunc: func(ctx context.Context) error {
			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}

			ms := database.NewMigrationService(log, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
	})

	s.AddDependency(&startup.FuncDependency{
		Name: "tracing",
		StartFunc: func(ctx context.Context) error {
			var exporter sdktrace.SpanExporter = &exporters.NoopExporter{}
			if cfg.TracingEnabled {
				otlpConfig := exporters.DefaultOTLPConfig()
				otlpConfig.Endpoint = cfg.TracingOTLPEndpoint
				otlpConfig.Protocol = cfg.TracingOTLPProtocol

				var err error
				exporter, err = exporters.NewOTLPExporter(ctx, otlpConfig)
				if err != nil {
					return err
				}
			}

			var err error
			tracingShutdown, err = tracing.Init(ctx, cfg.AppName, exporter)
			return err
		},
		StopFunc: func(ctx context.Context) error {
			if tracingShutdown != nil {
				return tracingShutdown(ctx)
			}
			return nil
		},
	})

	s.AddDependency(&startup.FuncDependency{
		Name: "kafka-producer",
		StartFunc: func(ctx context.Context) error {
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaOutputTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, log)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if producer != nil {
				return producer.Close()
			}
			return nil
		},
	})

	if cfg.KafkaConsumerEnabled {
		s.AddDependency(&startup.FuncDependency{
			Name:  "kafka-consumer",
			Needs: []string{"database", "migrations"},
			StartFunc: func(ctx context.Context) error {
				consumer = kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers:       cfg.KafkaBrokers,
					Topic:         cfg.KafkaInputTopic,
					ConsumerGroup: cfg.KafkaConsumerGroup,
				}, log, func(ctx context.Context, event *kafka.SyncEvent) error {
					if !cfg.ScanOnSyncEnabled {
						return nil
					}
					_, err := scanner.Scan(ctx, event.WorkspaceID)
					return err
				})
				return consumer.Start(ctx)
			},
			StopFunc: func(ctx context.Context) error {
				if consumer != nil {
					return consumer.Stop()
				}
				return nil
			},
		})
	}

	s.AddDependency(&startup.FuncDependency{
		Name:  "http-server",
		Needs: []string{"database", "migrations", "kafka-producer"},
		StartFunc: func(ctx context.Context) error {
			merger := merging.NewEngine(log, db, peopleRepo, linksRepo, candidateRepo, producer)

			e = echo.New()
			e.HideBanner = true
			e.HTTPErrorHandler = middleware.Error(log)
			e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
			e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
			e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
			e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

			e.Use(echomw.Recover())
			e.Use(otelecho.Middleware(cfg.AppName))
			e.Use(middleware.Context())
			e.Use(middleware.Logger(log))
			e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
				AllowOrigins: cfg.AllowOrigins,
				AllowMethods: cfg.AllowMethods,
			}))

			var consumerHealth health.ConsumerHealth
			if consumer != nil {
				consumerHealth = consumer
			}
			checker = health.NewChecker(db, consumerHealth, Version)
			checker.RegisterRoutes(e)

			api := e.Group("/api/v1")
			personroutes.NewHandler(peopleRepo, candidateRepo, producer, log).RegisterRoutes(api.Group("/people"))
			duplicateroutes.NewHandler(candidateRepo, scanner, merger, log, cfg.CandidateListLimit).RegisterRoutes(api.Group("/duplicates"))

			go func() {
				if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("http server stopped")
				}
			}()

			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if e != nil {
				return e.Shutdown(ctx)
			}
			return nil
		},
	})

	if err := s.Start(ctx); err != nil {
		log.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	checker.SetReady(true)
	log.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()

	checker.SetReady(false)
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown finished with errors")
	}
}
