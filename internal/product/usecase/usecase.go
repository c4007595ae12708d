package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/category"
	"github.com/fekuna/omnipos-catalog-sync/internal/feed"
	"github.com/fekuna/omnipos-catalog-sync/internal/identity"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/aggregator"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/normalizer"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/reconcile"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"go.uber.org/zap"
)

type Config struct {
	// DefaultFile is ingested when a run names no file.
	DefaultFile string
	Defaults    aggregator.Defaults
}

// Deps are the collaborators of a sync run. Indexer and Cache may be nil.
type Deps struct {
	Reader  *feed.Reader
	Engine  *reconcile.Engine
	IDs     identity.Generator
	Locker  product.RunLocker
	Indexer product.Indexer
	Cache   product.CacheInvalidator
	Logger  logger.ZapLogger
}

type catalogSyncUseCase struct {
	reader  *feed.Reader
	engine  *reconcile.Engine
	ids     identity.Generator
	locker  product.RunLocker
	indexer product.Indexer
	cache   product.CacheInvalidator
	cfg     Config
	logger  logger.ZapLogger
	now     func() time.Time
}

func NewCatalogSyncUseCase(deps Deps, cfg Config) product.UseCase {
	return &catalogSyncUseCase{
		reader:  deps.Reader,
		engine:  deps.Engine,
		ids:     deps.IDs,
		locker:  deps.Locker,
		indexer: deps.Indexer,
		cache:   deps.Cache,
		cfg:     cfg,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

func (uc *catalogSyncUseCase) RunOnce(ctx context.Context, input *dto.RunInput) (*dto.RunReport, error) {
	if input == nil {
		input = &dto.RunInput{}
	}

	unlock, err := uc.locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := &product.Run{
		TransactionID: uc.ids.Token(),
		UserRequestID: uc.ids.Token(),
		StartedAt:     uc.now().UTC(),
		Categories:    category.NewIndex(),
	}
	report := &dto.RunReport{
		TransactionID: run.TransactionID,
		UserRequestID: run.UserRequestID,
		StartedAt:     run.StartedAt,
	}

	path := input.FilePath
	if path == "" {
		path = uc.cfg.DefaultFile
	}
	log := uc.logger.With(zap.String("transaction_id", run.TransactionID))
	log.Info("Catalog sync run started", zap.String("file", path))

	norm := normalizer.New(run.Categories)
	agg := aggregator.New(uc.ids, uc.cfg.Defaults, run)

	onRow := func(raw model.RawRow) {
		row, err := norm.Normalize(raw)
		if err != nil {
			report.RowsRejected++
			log.Debug("Row rejected", zap.Error(err))
			return
		}
		agg.Add(row)
	}
	onReject := func(rowErr *feed.RowError) {
		log.Debug("Row rejected", zap.Int("row", rowErr.Number), zap.Error(rowErr))
	}

	var stats feed.Stats
	if input.Source != nil {
		stats, err = uc.reader.Each(ctx, input.Source, onRow, onReject)
	} else {
		stats, err = uc.reader.EachFile(ctx, path, onRow, onReject)
	}
	report.RowsRead = stats.Rows
	report.RowsRejected += stats.Rejected
	if err != nil {
		report.FinishedAt = uc.now().UTC()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return report, err
		}
		log.Error("Catalog sync run aborted", zap.Error(err))
		return report, fmt.Errorf("%w: %w", product.ErrRowSource, err)
	}
	report.Aggregates = agg.Len()

	if uc.indexer != nil {
		if err := uc.indexer.EnsureIndex(ctx); err != nil {
			log.Warn("failed to ensure search index", zap.Error(err))
		}
	}

	err = uc.engine.Reconcile(ctx, run, agg.Products(), report)
	report.FinishedAt = uc.now().UTC()

	if report.Persisted() {
		uc.invalidateProductCache(ctx, log)
	}

	if err != nil {
		log.Error("Catalog sync run aborted", zap.Error(err))
		return report, err
	}

	log.Info("Catalog sync run finished",
		zap.Int("rows_read", report.RowsRead),
		zap.Int("rows_rejected", report.RowsRejected),
		zap.Int("aggregates", report.Aggregates),
		zap.Int("inserted", report.Inserted),
		zap.Int("merged", report.Merged),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("enhanced", report.Enhanced),
		zap.Int("enhance_failures", report.EnhanceFailures),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (uc *catalogSyncUseCase) invalidateProductCache(ctx context.Context, log logger.ZapLogger) {
	if uc.cache == nil {
		return
	}
	// detached from ctx so a canceled run still invalidates
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.cache.InvalidateProductLists(ctx, uc.cfg.Defaults.CompanyID); err != nil {
		log.Error("failed to invalidate product cache", zap.Error(err))
	}
}
