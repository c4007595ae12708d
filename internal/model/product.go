package model

import "time"

const (
	OptionPackaging   = "packaging"
	OptionDescription = "description"
)

// Product is the catalog document persisted per vendor product name.
type Product struct {
	DocID        string         `json:"docId"`
	FullData     interface{}    `json:"fullData"`
	Data         ProductData    `json:"data"`
	DataPublic   map[string]any `json:"dataPublic"`
	Immutable    bool           `json:"immutable"`
	DeploymentID string         `json:"deploymentId"`
	DocType      string         `json:"docType"`
	Namespace    string         `json:"namespace"`
	CompanyID    string         `json:"companyId"`
	Status       string         `json:"status"`
	Info         ProductInfo    `json:"info"`
}

type ProductData struct {
	Name                      string    `json:"name"`
	Type                      string    `json:"type"`
	ShortDescription          string    `json:"shortDescription"`
	Description               string    `json:"description"`
	VendorID                  string    `json:"vendorId"`
	ManufacturerID            string    `json:"manufacturerId"`
	StorefrontPriceVisibility string    `json:"storefrontPriceVisibility"`
	Variants                  []Variant `json:"variants"`
	Options                   []Option  `json:"options"`
	Availability              string    `json:"availability"`
	IsFragile                 bool      `json:"isFragile"`
	Published                 string    `json:"published"`
	IsTaxable                 bool      `json:"isTaxable"`
	Images                    []Image   `json:"images"`
	CategoryID                string    `json:"categoryId"`
}

type ProductInfo struct {
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedBy     *string    `json:"updatedBy"`
	UpdatedAt     *time.Time `json:"updatedAt"`
	DeletedBy     *string    `json:"deletedBy"`
	DeletedAt     *time.Time `json:"deletedAt"`
	DataSource    string     `json:"dataSource"`
	CompanyStatus string     `json:"companyStatus"`
	TransactionID string     `json:"transactionId"`
	SkipEvent     bool       `json:"skipEvent"`
	UserRequestID string     `json:"userRequestId"`
}

type Variant struct {
	ID                   string            `json:"id"`
	Available            bool              `json:"available"`
	Attributes           VariantAttributes `json:"attributes"`
	Cost                 float64           `json:"cost"`
	Currency             string            `json:"currency"`
	Depth                *float64          `json:"depth"`
	Description          string            `json:"description"`
	DimensionUom         *string           `json:"dimensionUom"`
	Height               *float64          `json:"height"`
	Width                *float64          `json:"width"`
	ManufacturerItemCode string            `json:"manufacturerItemCode"`
	ManufacturerItemID   string            `json:"manufacturerItemId"`
	Packaging            string            `json:"packaging"`
	Price                float64           `json:"price"`
	Volume               *float64          `json:"volume"`
	VolumeUom            *string           `json:"volumeUom"`
	Weight               *float64          `json:"weight"`
	WeightUom            *string           `json:"weightUom"`
	OptionName           string            `json:"optionName"`
	OptionsPath          string            `json:"optionsPath"`
	OptionItemsPath      string            `json:"optionItemsPath"`
	SKU                  string            `json:"sku"`
	Active               bool              `json:"active"`
	Images               []Image           `json:"images"`
	ItemCode             string            `json:"itemCode"`
}

type VariantAttributes struct {
	Packaging   string `json:"packaging"`
	Description string `json:"description"`
}

type Option struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	DataField *string       `json:"dataField"`
	Values    []OptionValue `json:"values"`
}

type OptionValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Image is the descriptor shared by products and variants. CDNLink stays nil unless
// the feed row carried both an image URL and a file name.
type Image struct {
	FileName string  `json:"fileName"`
	CDNLink  *string `json:"cdnLink"`
	I        int     `json:"i"`
	Alt      *string `json:"alt"`
}

// ItemCodes lists the natural keys of every variant in p.
func (p *Product) ItemCodes() []string {
	codes := make([]string, 0, len(p.Data.Variants))
	for _, v := range p.Data.Variants {
		codes = append(codes, v.ItemCode)
	}
	return codes
}

// FindOption returns a pointer into p's option list, or nil.
func (p *Product) FindOption(name string) *Option {
	for i := range p.Data.Options {
		if p.Data.Options[i].Name == name {
			return &p.Data.Options[i]
		}
	}
	return nil
}

// HasValue reports whether o already carries value (case-sensitive).
func (o *Option) HasValue(value string) bool {
	for _, v := range o.Values {
		if v.Value == value {
			return true
		}
	}
	return false
}
