package aggregator

import (
	"github.com/fekuna/omnipos-catalog-sync/internal/identity"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
)

// Defaults are the fixed catalog fields stamped on every new product document.
type Defaults struct {
	DataSource   string
	SystemUser   string
	CompanyID    string
	DeploymentID string
	Currency     string
}

// Aggregator folds the normalized rows of one run into product aggregates keyed by
// product name, preserving first-seen order.
type Aggregator struct {
	ids      identity.Generator
	ledger   *OptionLedger
	defaults Defaults
	run      *product.Run

	products map[string]*model.Product
	order    []string
}

func New(ids identity.Generator, defaults Defaults, run *product.Run) *Aggregator {
	return &Aggregator{
		ids:      ids,
		ledger:   NewOptionLedger(ids),
		defaults: defaults,
		run:      run,
		products: make(map[string]*model.Product),
	}
}

// Add attaches row to its aggregate and reports whether a new aggregate was created.
// Every row yields exactly one new variant; itemCode tells variants apart downstream.
func (a *Aggregator) Add(row model.FeedRow) bool {
	if p, ok := a.products[row.ProductName]; ok {
		var ids OptionIDs
		p.Data.Options, ids = a.ledger.Resolve(p.Data.Options, row.Packaging, row.ItemDescription)
		p.Data.Variants = append(p.Data.Variants, a.newVariant(row, ids))
		return false
	}

	options, ids := a.ledger.Resolve(nil, row.Packaging, row.ItemDescription)
	p := a.newProduct(row, options, ids)
	a.products[row.ProductName] = p
	a.order = append(a.order, row.ProductName)
	return true
}

// Products returns the aggregates in the order their first row was seen.
func (a *Aggregator) Products() []*model.Product {
	out := make([]*model.Product, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.products[name])
	}
	return out
}

func (a *Aggregator) Get(name string) (*model.Product, bool) {
	p, ok := a.products[name]
	return p, ok
}

func (a *Aggregator) Len() int {
	return len(a.order)
}

func (a *Aggregator) newProduct(row model.FeedRow, options []model.Option, ids OptionIDs) *model.Product {
	docID := a.ids.Token()

	return &model.Product{
		DocID:    docID,
		FullData: nil,
		Data: model.ProductData{
			Name:                      row.ProductName,
			Type:                      "non-inventory",
			ShortDescription:          row.ProductDescription,
			Description:               row.ProductDescription,
			VendorID:                  docID,
			ManufacturerID:            docID,
			StorefrontPriceVisibility: "members-only",
			Variants:                  []model.Variant{a.newVariant(row, ids)},
			Options:                   options,
			Availability:              "available",
			IsFragile:                 false,
			Published:                 "published",
			IsTaxable:                 true,
			Images:                    []model.Image{row.Image},
			CategoryID:                row.Category.ID,
		},
		DataPublic:   map[string]any{},
		Immutable:    false,
		DeploymentID: a.defaults.DeploymentID,
		DocType:      "item",
		Namespace:    "items",
		CompanyID:    a.defaults.CompanyID,
		Status:       "active",
		Info: model.ProductInfo{
			CreatedBy:     a.defaults.SystemUser,
			CreatedAt:     a.run.StartedAt,
			DataSource:    a.defaults.DataSource,
			CompanyStatus: "active",
			TransactionID: a.run.TransactionID,
			SkipEvent:     false,
			UserRequestID: a.run.UserRequestID,
		},
	}
}

func (a *Aggregator) newVariant(row model.FeedRow, ids OptionIDs) model.Variant {
	return model.Variant{
		ID:        a.ids.ShortID(VariantIDLength),
		Available: true,
		Attributes: model.VariantAttributes{
			Packaging:   row.Packaging,
			Description: row.ItemDescription,
		},
		Cost:                 row.Cost,
		Currency:             a.defaults.Currency,
		Description:          row.ItemDescription,
		ManufacturerItemCode: row.ManufacturerItemCode,
		ManufacturerItemID:   row.ManufacturerItemCode,
		Packaging:            row.Packaging,
		Price:                row.Price,
		OptionName:           row.Packaging + "," + row.ItemDescription,
		OptionsPath:          ids.OptionsPath(),
		OptionItemsPath:      ids.OptionItemsPath(),
		SKU:                  a.ids.ShortID(SKULength),
		Active:               true,
		Images:               []model.Image{row.Image},
		ItemCode:             row.ItemCode,
	}
}
