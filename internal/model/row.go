package model

// RawRow is one record from the row source: header name to trimmed field value.
type RawRow struct {
	Number int
	Fields map[string]string
}

func (r RawRow) Get(column string) string {
	return r.Fields[column]
}

// FeedRow is a normalized vendor row.
type FeedRow struct {
	RowNumber            int
	ProductName          string
	ProductDescription   string
	Packaging            string
	ItemDescription      string
	Price                float64
	Cost                 float64
	ManufacturerItemCode string
	ItemCode             string
	Image                Image
	Category             Category
}
