package search

import (
	"context"
	"math"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

const IndexName = "products"

const mapping = `{
	"mappings": {
		"properties": {
			"doc_id": { "type": "keyword" },
			"company_id": { "type": "keyword" },
			"name": { "type": "text" },
			"description": { "type": "text" },
			"category_id": { "type": "keyword" },
			"item_codes": { "type": "keyword" },
			"skus": { "type": "keyword" },
			"min_price": { "type": "double" },
			"max_price": { "type": "double" },
			"active_variants": { "type": "integer" },
			"status": { "type": "keyword" },
			"transaction_id": { "type": "keyword" },
			"created_at": { "type": "date" }
		}
	}
}`

// Client is the subset of the Elasticsearch client the indexer needs.
type Client interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
}

// Document is the flattened search view of a product.
type Document struct {
	DocID          string    `json:"doc_id"`
	CompanyID      string    `json:"company_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CategoryID     string    `json:"category_id"`
	ItemCodes      []string  `json:"item_codes"`
	SKUs           []string  `json:"skus"`
	MinPrice       float64   `json:"min_price"`
	MaxPrice       float64   `json:"max_price"`
	ActiveVariants int       `json:"active_variants"`
	Status         string    `json:"status"`
	TransactionID  string    `json:"transaction_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type Indexer struct {
	client Client
}

func NewIndexer(client Client) *Indexer {
	return &Indexer{client: client}
}

func (i *Indexer) EnsureIndex(ctx context.Context) error {
	return i.client.CreateIndex(ctx, IndexName, mapping)
}

func (i *Indexer) IndexProduct(ctx context.Context, p *model.Product) error {
	return i.client.Index(ctx, IndexName, p.DocID, NewDocument(p))
}

// NewDocument flattens p. Price bounds only consider active variants.
func NewDocument(p *model.Product) Document {
	doc := Document{
		DocID:         p.DocID,
		CompanyID:     p.CompanyID,
		Name:          p.Data.Name,
		Description:   p.Data.Description,
		CategoryID:    p.Data.CategoryID,
		ItemCodes:     p.ItemCodes(),
		SKUs:          make([]string, 0, len(p.Data.Variants)),
		Status:        p.Status,
		TransactionID: p.Info.TransactionID,
		CreatedAt:     p.Info.CreatedAt,
	}

	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	for _, v := range p.Data.Variants {
		doc.SKUs = append(doc.SKUs, v.SKU)
		if !v.Active {
			continue
		}
		doc.ActiveVariants++
		minPrice = math.Min(minPrice, v.Price)
		maxPrice = math.Max(maxPrice, v.Price)
	}
	if doc.ActiveVariants > 0 {
		doc.MinPrice, doc.MaxPrice = minPrice, maxPrice
	}
	return doc
}
