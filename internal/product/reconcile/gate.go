package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultEnhanceLimit   = 10
	DefaultEnhanceTimeout = 30 * time.Second
)

const promptTemplate = `You are an expert in medical sales. Your specialty is medical consumables used by hospitals on a daily basis. Your task to enhance the description of a product based on the information provided.
Product name: %s
Product description: %s
Category: %s
New Description:`

// Gate decides which aggregates get their description rewritten by the text provider
// and performs the call. A nil provider disables enhancement.
type Gate struct {
	provider product.TextGenerator
	limit    int
	timeout  time.Duration
	logger   logger.ZapLogger
}

func NewGate(provider product.TextGenerator, limit int, timeout time.Duration, log logger.ZapLogger) *Gate {
	if limit < 0 {
		limit = 0
	}
	if timeout <= 0 {
		timeout = DefaultEnhanceTimeout
	}
	return &Gate{provider: provider, limit: limit, timeout: timeout, logger: log}
}

// Budget tracks provider calls granted within one run.
type Budget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewBudget starts a fresh per-run allowance.
func (g *Gate) NewBudget() *Budget {
	if g == nil || g.provider == nil {
		return &Budget{}
	}
	return &Budget{limit: g.limit}
}

// Take grants one provider call if the category name is known and the cap is not reached.
func (b *Budget) Take(categoryName string) bool {
	if strings.TrimSpace(categoryName) == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Prompt renders the enhancement prompt.
func Prompt(name, description, categoryName string) string {
	return fmt.Sprintf(promptTemplate, name, description, categoryName)
}

// Enhance asks the provider for a new description. Errors wrap product.ErrEnhancementFailed
// and leave the caller's description untouched.
func (g *Gate) Enhance(ctx context.Context, name, description, categoryName string) (string, error) {
	if g == nil || g.provider == nil {
		return "", fmt.Errorf("%w: no text provider configured", product.ErrEnhancementFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.provider.GenerateContent(ctx, Prompt(name, description, categoryName))
	if err != nil {
		return "", fmt.Errorf("%w: %v", product.ErrEnhancementFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", product.ErrEnhancementFailed)
	}

	g.logger.Debug("Description enhanced", zap.String("name", name), zap.String("category", categoryName))
	return text, nil
}
