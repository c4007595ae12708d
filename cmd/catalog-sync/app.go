package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/config"
	"github.com/fekuna/omnipos-catalog-sync/internal/feed"
	"github.com/fekuna/omnipos-catalog-sync/internal/identity"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/aggregator"
	productcache "github.com/fekuna/omnipos-catalog-sync/internal/product/cache"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/events"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/reconcile"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/repository"
	productsearch "github.com/fekuna/omnipos-catalog-sync/internal/product/search"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/usecase"
	"github.com/fekuna/omnipos-catalog-sync/internal/runlock"
	"github.com/fekuna/omnipos-catalog-sync/pkg/ai"
	"github.com/fekuna/omnipos-catalog-sync/pkg/broker"
	"github.com/fekuna/omnipos-catalog-sync/pkg/cache"
	"github.com/fekuna/omnipos-catalog-sync/pkg/database/postgres"
	"github.com/fekuna/omnipos-catalog-sync/pkg/database/sqlite"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"github.com/fekuna/omnipos-catalog-sync/pkg/search"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const enhanceTemperature = 0.9

// application owns every external connection of a process.
type application struct {
	cfg     *config.Config
	logger  logger.ZapLogger
	useCase product.UseCase
	closers []func()
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if !cfg.IsProduction() {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	return logger.NewZapLogger(logConfig)
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg, logger: newLogger(cfg)}
	if err := app.wire(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) wire(ctx context.Context) error {
	cfg := a.cfg

	// 1. Store
	db, err := a.openDB()
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { db.Close() })

	repo := repository.NewPGRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	// 2. Run lock and list cache
	var (
		locker      product.RunLocker = runlock.NewLocal()
		invalidator product.CacheInvalidator
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("could not connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		a.logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		ttl := time.Duration(cfg.Redis.LockTTLSeconds) * time.Second
		locker = runlock.NewDistributed(redisClient, runlock.DefaultKey, ttl, a.logger)
		invalidator = productcache.NewListInvalidator(redisClient)
	}

	// 3. Product events
	var publisher product.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		a.closers = append(a.closers, func() { producer.Close() })
		publisher = events.NewKafkaPublisher(producer)
		a.logger.Info("Kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 4. Search sync
	var indexer product.Indexer
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			a.logger.Warn("Could not connect to Elasticsearch, search sync disabled", zap.Error(err))
		} else {
			indexer = productsearch.NewIndexer(esClient)
			a.logger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 5. Enhancement provider
	var generator product.TextGenerator
	if cfg.Gemini.APIKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, enhanceTemperature)
		if err != nil {
			a.logger.Warn("Could not create Gemini client, enhancement disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, gemini.Close)
			generator = gemini
		}
	} else {
		a.logger.Info("GEMINI_API_KEY not set, enhancement disabled")
	}

	// 6. Pipeline
	precedence, err := reconcile.ParsePricePrecedence(cfg.Ingest.PricePrecedence)
	if err != nil {
		return err
	}
	gate := reconcile.NewGate(generator, cfg.Ingest.EnhanceLimit, time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second, a.logger)
	engine := reconcile.NewEngine(repo, gate, publisher, indexer, reconcile.Config{
		Workers:         cfg.Ingest.Workers,
		PricePrecedence: precedence,
		SystemUser:      cfg.Catalog.SystemUser,
	}, a.logger)

	a.useCase = usecase.NewCatalogSyncUseCase(usecase.Deps{
		Reader:  feed.NewReader(feed.Config{Delimiter: cfg.Ingest.Delimiter}),
		Engine:  engine,
		IDs:     identity.NewRandom(),
		Locker:  locker,
		Indexer: indexer,
		Cache:   invalidator,
		Logger:  a.logger,
	}, usecase.Config{
		DefaultFile: cfg.Ingest.File,
		Defaults: aggregator.Defaults{
			DataSource:   cfg.Catalog.DataSource,
			SystemUser:   cfg.Catalog.SystemUser,
			CompanyID:    cfg.Catalog.CompanyID,
			DeploymentID: cfg.Catalog.DeploymentID,
			Currency:     cfg.Catalog.Currency,
		},
	})

	return nil
}

func (a *application) openDB() (*sqlx.DB, error) {
	cfg := a.cfg
	switch cfg.Database.Driver {
	case sqlite.DriverName:
		db, err := sqlite.NewSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite database: %w", err)
		}
		a.logger.Info("Opened SQLite database", zap.String("path", cfg.Database.SQLitePath))
		return db, nil
	case "pgx", "postgres":
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		a.logger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
		return db, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}
}

// Close releases connections in reverse order of creation.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}
