package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/internal/category"
	"github.com/fekuna/omnipos-catalog-sync/internal/feed"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
)

// CostDivisor derives variant cost from the feed unit price; the feed carries no cost.
const CostDivisor = 1.4

type Normalizer struct {
	categories *category.Index
}

// New returns a Normalizer that registers every category pair it sees into categories.
func New(categories *category.Index) *Normalizer {
	return &Normalizer{categories: categories}
}

// Normalize maps a raw feed record to a FeedRow. Rows without a product name or item id,
// or with a unit price that is not a finite number, are rejected with product.ErrRowRejected.
func (n *Normalizer) Normalize(row model.RawRow) (model.FeedRow, error) {
	name := row.Get(feed.ColProductName)
	if name == "" {
		return model.FeedRow{}, reject(row, "empty %s", feed.ColProductName)
	}
	itemCode := row.Get(feed.ColItemID)
	if itemCode == "" {
		return model.FeedRow{}, reject(row, "empty %s", feed.ColItemID)
	}
	price, err := parsePrice(row.Get(feed.ColUnitPrice))
	if err != nil {
		return model.FeedRow{}, reject(row, "%s: %v", feed.ColUnitPrice, err)
	}

	first := model.Category{ID: row.Get(feed.ColCategoryID), Name: row.Get(feed.ColCategoryName)}
	secondary := model.Category{ID: row.Get(feed.ColSecondaryCategoryID), Name: row.Get(feed.ColSecondaryCategoryName)}
	primary := model.Category{ID: row.Get(feed.ColPrimaryCategoryID), Name: row.Get(feed.ColPrimaryCategoryName)}

	if n.categories != nil {
		n.categories.Register(primary)
		n.categories.Register(secondary)
		n.categories.Register(first)
	}

	return model.FeedRow{
		RowNumber:            row.Number,
		ProductName:          name,
		ProductDescription:   row.Get(feed.ColProductDescription),
		Packaging:            row.Get(feed.ColPackaging),
		ItemDescription:      row.Get(feed.ColItemDescription),
		Price:                price,
		Cost:                 price / CostDivisor,
		ManufacturerItemCode: row.Get(feed.ColManufacturerItemCode),
		ItemCode:             itemCode,
		Image:                BuildImage(row.Get(feed.ColItemImageURL), row.Get(feed.ColImageFileName)),
		Category:             ResolveCategory(first, secondary, primary),
	}, nil
}

// ResolveCategory walks the fallback chain and returns the first resolvable pair,
// or the last pair when none is.
func ResolveCategory(chain ...model.Category) model.Category {
	for _, c := range chain {
		if c.Resolvable() {
			return c
		}
	}
	if len(chain) == 0 {
		return model.Category{}
	}
	return chain[len(chain)-1]
}

// BuildImage returns an empty descriptor unless both url and fileName are present.
func BuildImage(url, fileName string) model.Image {
	if url == "" || fileName == "" {
		return model.Image{}
	}
	return model.Image{FileName: fileName, CDNLink: &url}
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty")
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("not a finite number: %q", raw)
	}
	return price, nil
}

func reject(row model.RawRow, format string, args ...any) error {
	return fmt.Errorf("%w: row %d: %s", product.ErrRowRejected, row.Number, fmt.Sprintf(format, args...))
}
