package search

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	indexes map[string]string
	docs    map[string]interface{}
}

func (f *fakeClient) CreateIndex(ctx context.Context, index, mapping string) error {
	if f.indexes == nil {
		f.indexes = map[string]string{}
	}
	f.indexes[index] = mapping
	return nil
}

func (f *fakeClient) Index(ctx context.Context, index, id string, doc interface{}) error {
	if f.docs == nil {
		f.docs = map[string]interface{}{}
	}
	f.docs[index+"/"+id] = doc
	return nil
}

func TestIndexProduct(t *testing.T) {
	client := &fakeClient{}
	idx := NewIndexer(client)
	ctx := context.Background()

	require.NoError(t, idx.EnsureIndex(ctx))
	assert.Contains(t, client.indexes[IndexName], `"item_codes"`)

	p := &model.Product{
		DocID:     "doc-1",
		CompanyID: "co",
		Status:    "active",
		Data: model.ProductData{
			Name: "Gauze",
			Variants: []model.Variant{
				{SKU: "s1", ItemCode: "100", Price: 14, Active: true},
				{SKU: "s2", ItemCode: "200", Price: 2, Active: false},
				{SKU: "s3", ItemCode: "300", Price: 28, Active: true},
			},
		},
	}
	require.NoError(t, idx.IndexProduct(ctx, p))

	doc, ok := client.docs[IndexName+"/doc-1"].(Document)
	require.True(t, ok)
	assert.Equal(t, []string{"100", "200", "300"}, doc.ItemCodes)
	assert.Equal(t, []string{"s1", "s2", "s3"}, doc.SKUs)
	assert.Equal(t, 2, doc.ActiveVariants)
	assert.Equal(t, 14.0, doc.MinPrice)
	assert.Equal(t, 28.0, doc.MaxPrice)
}

func TestNewDocumentWithoutActiveVariants(t *testing.T) {
	doc := NewDocument(&model.Product{Data: model.ProductData{Variants: []model.Variant{{Price: 3}}}})

	assert.Zero(t, doc.ActiveVariants)
	assert.Zero(t, doc.MinPrice)
	assert.Zero(t, doc.MaxPrice)
}
