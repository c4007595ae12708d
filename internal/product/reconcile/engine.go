package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type Config struct {
	Workers         int
	PricePrecedence PricePrecedence
	// SystemUser is stamped as info.updatedBy on merged products.
	SystemUser string
}

// Engine reconciles a run's aggregates against the stored catalog.
type Engine struct {
	repo    product.Repository
	gate    *Gate
	events  product.EventPublisher
	indexer product.Indexer
	cfg     Config
	logger  logger.ZapLogger
	now     func() time.Time
}

// NewEngine wires an Engine. events and indexer may be nil.
func NewEngine(repo product.Repository, gate *Gate, events product.EventPublisher, indexer product.Indexer, cfg Config, log logger.ZapLogger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.PricePrecedence == "" {
		cfg.PricePrecedence = PriceFromFeed
	}
	return &Engine{
		repo:    repo,
		gate:    gate,
		events:  events,
		indexer: indexer,
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
	}
}

type task struct {
	aggregate *model.Product
	stored    *model.Product
	category  string
	enhance   bool

	outcome    dto.Outcome
	duplicates int
	enhanced   bool
	enhErr     error
	err        error
}

// Reconcile loads the catalog once, then inserts or merges every aggregate on a bounded
// worker pool. Per-aggregate failures land in report.Failures. Only a failed catalog load
// or context cancellation is returned as an error; writes completed before that stand.
func (e *Engine) Reconcile(ctx context.Context, run *product.Run, aggregates []*model.Product, report *dto.RunReport) error {
	stored, err := e.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	byName := make(map[string]*model.Product, len(stored))
	for i := range stored {
		byName[stored[i].Data.Name] = &stored[i]
	}

	tasks := e.plan(run, aggregates, byName)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, t := range tasks {
		if gctx.Err() != nil {
			break
		}
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.process(gctx, run, t)
			if t.err != nil && (errors.Is(t.err, context.Canceled) || errors.Is(t.err, context.DeadlineExceeded)) {
				return t.err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	e.tally(tasks, report)

	if waitErr != nil {
		return waitErr
	}
	return ctx.Err()
}

// plan runs sequentially in insertion order so the enhancement budget goes to the first
// eligible aggregates regardless of worker scheduling.
func (e *Engine) plan(run *product.Run, aggregates []*model.Product, byName map[string]*model.Product) []*task {
	budget := e.gate.NewBudget()
	tasks := make([]*task, 0, len(aggregates))

	for _, agg := range aggregates {
		t := &task{aggregate: agg, stored: byName[agg.Data.Name]}

		if t.stored != nil && t.stored.Info.TransactionID == run.TransactionID {
			t.outcome = dto.OutcomeSkipped
			tasks = append(tasks, t)
			continue
		}

		categoryID := agg.Data.CategoryID
		if categoryID == "" && t.stored != nil {
			categoryID = t.stored.Data.CategoryID
		}
		if run.Categories != nil {
			t.category = run.Categories.Name(categoryID)
		}
		t.enhance = budget.Take(t.category)

		tasks = append(tasks, t)
	}
	return tasks
}

func (e *Engine) process(ctx context.Context, run *product.Run, t *task) {
	if t.outcome == dto.OutcomeSkipped {
		return
	}

	if t.duplicates = dedupeVariants(t.aggregate); t.duplicates > 0 {
		e.logger.Warn("Dropped variants with repeated item codes",
			zap.String("name", t.aggregate.Data.Name),
			zap.Int("dropped", t.duplicates),
		)
	}

	target := t.aggregate
	if t.stored != nil {
		target = t.stored
	}

	var res MergeResult
	if t.stored != nil {
		res = Merge(t.stored, t.aggregate, e.cfg.PricePrecedence)
	}

	if t.enhance {
		text, err := e.gate.Enhance(ctx, t.aggregate.Data.Name, t.aggregate.Data.Description, t.category)
		if err != nil {
			t.enhErr = err
			e.logger.Warn("Enhancement failed, keeping description",
				zap.String("name", t.aggregate.Data.Name),
				zap.Error(err),
			)
		} else if text != target.Data.Description || text != target.Data.ShortDescription {
			target.Data.Description = text
			target.Data.ShortDescription = text
			t.enhanced = true
		}
	}

	if t.stored == nil {
		if err := e.repo.Insert(ctx, target); err != nil {
			t.fail(err)
			return
		}
		t.outcome = dto.OutcomeInserted
		e.announce(ctx, target, true)
		return
	}

	if !res.Changed() && !t.enhanced {
		t.outcome = dto.OutcomeUnchanged
		return
	}

	// a description-only rewrite keeps the stored transaction
	if res.Changed() {
		e.stamp(run, target)
	}
	if err := e.repo.UpdateByID(ctx, target.DocID, target); err != nil {
		t.fail(err)
		return
	}
	t.outcome = dto.OutcomeMerged
	e.logger.Debug("Product merged",
		zap.String("doc_id", target.DocID),
		zap.Int("added", res.Added),
		zap.Int("deactivated", res.Deactivated),
		zap.Int("reactivated", res.Reactivated),
		zap.Int("updated", res.Updated),
		zap.Int("new_values", res.NewValues),
	)
	e.announce(ctx, target, false)
}

func (t *task) fail(err error) {
	t.outcome = dto.OutcomeFailed
	t.err = err
}

func (e *Engine) stamp(run *product.Run, p *model.Product) {
	now := e.now().UTC()
	user := e.cfg.SystemUser
	p.Info.UpdatedAt = &now
	p.Info.UpdatedBy = &user
	p.Info.TransactionID = run.TransactionID
}

// announce publishes the product event and refreshes the search document. Both are
// best effort.
func (e *Engine) announce(ctx context.Context, p *model.Product, created bool) {
	if e.events != nil && !p.Info.SkipEvent {
		publish := e.events.PublishUpdated
		if created {
			publish = e.events.PublishCreated
		}
		if err := publish(ctx, p); err != nil {
			e.logger.Error("failed to publish product event", zap.String("doc_id", p.DocID), zap.Error(err))
		}
	}

	if e.indexer != nil {
		if err := e.indexer.IndexProduct(ctx, p); err != nil {
			e.logger.Error("failed to index product", zap.String("doc_id", p.DocID), zap.Error(err))
		}
	}
}

func (e *Engine) tally(tasks []*task, report *dto.RunReport) {
	for _, t := range tasks {
		report.DuplicateItemCodes += t.duplicates
		if t.enhErr != nil {
			report.EnhanceFailures++
		}
		if t.enhanced && (t.outcome == dto.OutcomeInserted || t.outcome == dto.OutcomeMerged) {
			report.Enhanced++
		}

		switch t.outcome {
		case dto.OutcomeInserted:
			report.Inserted++
		case dto.OutcomeMerged:
			report.Merged++
		case dto.OutcomeUnchanged:
			report.Unchanged++
		case dto.OutcomeSkipped:
			report.Skipped++
		case dto.OutcomeFailed:
			report.Failures = append(report.Failures, dto.AggregateFailure{
				Name:  t.aggregate.Data.Name,
				DocID: docIDOf(t),
				Error: t.err.Error(),
			})
			e.logger.Error("failed to persist product",
				zap.String("name", t.aggregate.Data.Name),
				zap.Error(t.err),
			)
		}
	}
}

func docIDOf(t *task) string {
	if t.stored != nil {
		return t.stored.DocID
	}
	return t.aggregate.DocID
}
