package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventSyncRequested = "CatalogSyncRequested"

// ErrOutsideFeedDir is returned for a requested feed path that leaves the feed directory.
var ErrOutsideFeedDir = errors.New("feed path outside the feed directory")

// Consumer reads committed messages from the sync request topic.
type Consumer interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// SyncListener triggers a run for every CatalogSyncRequested event.
type SyncListener struct {
	consumer Consumer
	uc       product.UseCase
	feedDir  string
	logger   logger.ZapLogger
	backoff  time.Duration
}

// NewSyncListener builds a listener whose requested files must resolve inside feedDir.
func NewSyncListener(consumer Consumer, uc product.UseCase, feedDir string, logger logger.ZapLogger) *SyncListener {
	return &SyncListener{
		consumer: consumer,
		uc:       uc,
		feedDir:  feedDir,
		logger:   logger,
		backoff:  time.Second,
	}
}

func (l *SyncListener) Start(ctx context.Context) {
	l.logger.Info("Starting catalog sync Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping catalog sync Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				// Don't log context canceled error as error
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.backoff):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type SyncRequestedEvent struct {
	EventID   string             `json:"event_id"`
	EventType string             `json:"event_type"`
	Payload   SyncRequestPayload `json:"payload"`
	Timestamp time.Time          `json:"timestamp"`
}

type SyncRequestPayload struct {
	// FilePath is optional; empty means the configured default feed.
	FilePath string `json:"file_path"`
}

func (l *SyncListener) processMessage(ctx context.Context, value []byte) {
	var event SyncRequestedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventSyncRequested {
		return
	}

	l.logger.Info("Processing CatalogSyncRequested event",
		zap.String("event_id", event.EventID),
		zap.String("file", event.Payload.FilePath),
	)

	path, err := resolveFeedPath(l.feedDir, event.Payload.FilePath)
	if err != nil {
		l.logger.Warn("Sync request refused", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}

	report, err := l.uc.RunOnce(ctx, &dto.RunInput{FilePath: path})
	if errors.Is(err, product.ErrRunInProgress) {
		l.logger.Warn("Sync request dropped, run already in progress", zap.String("event_id", event.EventID))
		return
	}
	if err != nil {
		l.logger.Error("Requested catalog sync failed", zap.String("event_id", event.EventID), zap.Error(err))
		return
	}
	l.logger.Info("Requested catalog sync done",
		zap.String("event_id", event.EventID),
		zap.String("transaction_id", report.TransactionID),
	)
}

// resolveFeedPath anchors requested inside dir. Relative paths are joined to dir. An
// empty request stays empty so the run falls back to the configured default feed.
func resolveFeedPath(dir, requested string) (string, error) {
	if requested == "" {
		return "", nil
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve feed directory: %w", err)
	}

	target := requested
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideFeedDir, requested)
	}
	return target, nil
}
