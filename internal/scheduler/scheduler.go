package scheduler

import (
	"context"
	"errors"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DevSchedule  = "@every 30s"
	ProdSchedule = "0 6 * * *"
)

// ForEnv returns the run cadence for an environment name. override wins when set.
func ForEnv(env, override string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	if strings.Contains(strings.ToLower(env), "prod") {
		return ProdSchedule
	}
	return DevSchedule
}

// Scheduler triggers sync runs on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	uc       product.UseCase
	file     string
	schedule string
	logger   logger.ZapLogger
}

func New(uc product.UseCase, schedule, file string, log logger.ZapLogger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		uc:       uc,
		file:     file,
		schedule: schedule,
		logger:   log,
	}
}

// Start registers the job and starts the cron loop. Ticks that land while a run is
// still in progress are dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() { s.Tick(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Catalog sync scheduler started", zap.String("schedule", s.schedule), zap.String("file", s.file))
	return nil
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Catalog sync scheduler stopped")
}

// Tick performs one run and logs its outcome.
func (s *Scheduler) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.uc.RunOnce(ctx, &dto.RunInput{FilePath: s.file})
	switch {
	case errors.Is(err, product.ErrRunInProgress):
		s.logger.Warn("Skipping scheduled run, previous run still in progress")
	case err != nil:
		s.logger.Error("Scheduled catalog sync failed", zap.Error(err))
	default:
		s.logger.Info("Scheduled catalog sync done",
			zap.String("transaction_id", report.TransactionID),
			zap.Int("inserted", report.Inserted),
			zap.Int("merged", report.Merged),
			zap.Int("failures", len(report.Failures)),
		)
	}
}
