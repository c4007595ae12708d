package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/feed"
	"github.com/fekuna/omnipos-catalog-sync/internal/identity"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/aggregator"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/reconcile"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/repository"
	"github.com/fekuna/omnipos-catalog-sync/internal/runlock"
	"github.com/fekuna/omnipos-catalog-sync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu        sync.Mutex
	companies []string
}

func (f *fakeCache) InvalidateProductLists(ctx context.Context, companyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.companies = append(f.companies, companyID)
	return nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	ensured int
	indexed []string
}

func (f *fakeIndexer) EnsureIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	return nil
}

func (f *fakeIndexer) IndexProduct(ctx context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, p.Data.Name)
	return nil
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "Enhanced copy", nil
}

type fixture struct {
	uc      product.UseCase
	repo    *repository.MemoryRepository
	cache   *fakeCache
	indexer *fakeIndexer
	locker  *runlock.Local
}

func newFixture(t *testing.T, precedence reconcile.PricePrecedence) *fixture {
	t.Helper()
	log := logger.NewNop()
	repo := repository.NewMemoryRepository()
	cache := &fakeCache{}
	indexer := &fakeIndexer{}
	locker := runlock.NewLocal()

	gate := reconcile.NewGate(fakeGenerator{}, reconcile.DefaultEnhanceLimit, time.Second, log)
	engine := reconcile.NewEngine(repo, gate, nil, indexer, reconcile.Config{
		Workers:         2,
		PricePrecedence: precedence,
		SystemUser:      "system",
	}, log)

	uc := NewCatalogSyncUseCase(Deps{
		Reader:  feed.NewReader(feed.Config{}),
		Engine:  engine,
		IDs:     identity.NewRandom(),
		Locker:  locker,
		Indexer: indexer,
		Cache:   cache,
		Logger:  log,
	}, Config{
		DefaultFile: "does-not-exist.txt",
		Defaults: aggregator.Defaults{
			DataSource:   "nao",
			SystemUser:   "system",
			CompanyID:    "company-1",
			DeploymentID: "d8039",
			Currency:     "USD",
		},
	})

	return &fixture{uc: uc, repo: repo, cache: cache, indexer: indexer, locker: locker}
}

func feedText(rows ...[]string) string {
	lines := []string{strings.Join(feed.RequiredColumns, "\t")}
	for _, r := range rows {
		lines = append(lines, strings.Join(r, "\t"))
	}
	return strings.Join(lines, "\n") + "\n"
}

// line builds a record in RequiredColumns order.
func line(name, item, pkg, desc, price, catID, catName string) []string {
	return []string{
		name, name + " description", pkg, desc, price,
		"M" + item, item, "https://cdn.example.com/" + item + ".jpg", item + ".jpg",
		catID, catName, "12", "Wound Care", "6", "Infection Control",
	}
}

func (f *fixture) run(t *testing.T, text string) *dto.RunReport {
	t.Helper()
	report, err := f.uc.RunOnce(context.Background(), &dto.RunInput{Source: strings.NewReader(text)})
	require.NoError(t, err)
	return report
}

func (f *fixture) product(t *testing.T, name string) model.Product {
	t.Helper()
	all, err := f.repo.FindAll(context.Background())
	require.NoError(t, err)
	for _, p := range all {
		if p.Data.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not stored", name)
	return model.Product{}
}

func TestRunOnceIngestsFeed(t *testing.T) {
	f := newFixture(t, reconcile.PriceFromFeed)

	report := f.run(t, feedText(
		line("Gauze", "100", "BX", "4x4 in", "14.00", "63", "Surface Wipes"),
		line("Gauze", "200", "CS", "2x2 in", "28.00", "63", "Surface Wipes"),
		line("Tape", "300", "RL", "1 in", "7.00", "0", ""),
		line("", "400", "RL", "1 in", "7.00", "0", ""),
		line("Bad Price", "500", "RL", "1 in", "abc", "0", ""),
		[]string{"short", "row"},
	))

	assert.NotEmpty(t, report.TransactionID)
	assert.NotEqual(t, report.TransactionID, report.UserRequestID)
	assert.Equal(t, 6, report.RowsRead)
	assert.Equal(t, 3, report.RowsRejected)
	assert.Equal(t, 2, report.Aggregates)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 2, report.Enhanced)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	gauze := f.product(t, "Gauze")
	assert.Len(t, gauze.Data.Variants, 2)
	assert.Equal(t, "Enhanced copy", gauze.Data.Description)
	assert.Equal(t, "63", gauze.Data.CategoryID)
	assert.Equal(t, "company-1", gauze.CompanyID)
	assert.Equal(t, report.TransactionID, gauze.Info.TransactionID)
	assert.Equal(t, report.UserRequestID, gauze.Info.UserRequestID)

	tape := f.product(t, "Tape")
	assert.Equal(t, "12", tape.Data.CategoryID, "falls back to the secondary pair")
	assert.Equal(t, "Enhanced copy", tape.Data.Description)

	assert.Equal(t, []string{"company-1"}, f.cache.companies)
	assert.Equal(t, 1, f.indexer.ensured)
	assert.ElementsMatch(t, []string{"Gauze", "Tape"}, f.indexer.indexed)
}

func TestRunOnceRerunIsIdempotent(t *testing.T) {
	f := newFixture(t, reconcile.PriceFromFeed)
	text := feedText(
		line("Gauze", "100", "BX", "4x4 in", "14.00", "0", ""),
		line("Gauze", "200", "CS", "2x2 in", "28.00", "0", ""),
	)

	first := f.run(t, text)
	second := f.run(t, text)

	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 0, second.Merged)
	assert.Equal(t, 1, second.Unchanged)
	assert.Equal(t, first.TransactionID, f.product(t, "Gauze").Info.TransactionID)
	assert.Len(t, f.cache.companies, 1, "cache is only dropped when the catalog changed")
}

func TestRunOnceSoftDeleteAndStoredPricing(t *testing.T) {
	f := newFixture(t, reconcile.PriceFromCatalog)

	f.run(t, feedText(
		line("Gauze", "100", "BX", "4x4 in", "14.00", "63", "Surface Wipes"),
		line("Gauze", "200", "CS", "2x2 in", "28.00", "63", "Surface Wipes"),
	))
	report := f.run(t, feedText(
		line("Gauze", "100", "BX", "4x4 in", "99.00", "63", "Surface Wipes"),
	))

	assert.Equal(t, 1, report.Merged)
	gauze := f.product(t, "Gauze")
	for _, v := range gauze.Data.Variants {
		switch v.ItemCode {
		case "100":
			assert.True(t, v.Active)
			assert.Equal(t, 14.0, v.Price)
		case "200":
			assert.False(t, v.Active)
			assert.False(t, v.Available)
		}
	}
	assert.Equal(t, report.TransactionID, gauze.Info.TransactionID)
	assert.NotEqual(t, report.UserRequestID, gauze.Info.UserRequestID, "merges keep the creating request id")
}

func TestRunOnceMissingHeaderIsRowSourceFailure(t *testing.T) {
	f := newFixture(t, reconcile.PriceFromFeed)

	report, err := f.uc.RunOnce(context.Background(), &dto.RunInput{Source: strings.NewReader("ProductName\tItemID\nGauze\t1\n")})

	assert.ErrorIs(t, err, product.ErrRowSource)
	assert.ErrorIs(t, err, feed.ErrMissingColumns)
	require.NotNil(t, report)
	assert.Zero(t, f.repo.Len())
	assert.Empty(t, f.cache.companies)
}

func TestRunOnceMissingFileIsRowSourceFailure(t *testing.T) {
	f := newFixture(t, reconcile.PriceFromFeed)

	_, err := f.uc.RunOnce(context.Background(), &dto.RunInput{})

	assert.ErrorIs(t, err, product.ErrRowSource)
}

func TestRunOnceRejectsOverlappingRun(t *testing.T) {
	f := newFixture(t, reconcile.PriceFromFeed)

	unlock, err := f.locker.TryLock(context.Background())
	require.NoError(t, err)
	defer unlock()

	_, err = f.uc.RunOnce(context.Background(), &dto.RunInput{Source: strings.NewReader(feedText())})
	assert.True(t, errors.Is(err, product.ErrRunInProgress))
}
