package aggregator

import (
	"github.com/fekuna/omnipos-catalog-sync/internal/identity"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

const (
	OptionIDLength  = 6
	VariantIDLength = 6
	SKULength       = 12
)

// OptionIDs are the option and value ids a variant points at.
type OptionIDs struct {
	PackagingOptionID   string
	PackagingValueID    string
	DescriptionOptionID string
	DescriptionValueID  string
}

func (o OptionIDs) OptionsPath() string {
	return o.PackagingOptionID + "," + o.DescriptionOptionID
}

func (o OptionIDs) OptionItemsPath() string {
	return o.PackagingValueID + "," + o.DescriptionValueID
}

// OptionLedger hands out stable option/value ids for a product's packaging and
// description options.
type OptionLedger struct {
	ids identity.Generator
}

func NewOptionLedger(ids identity.Generator) *OptionLedger {
	return &OptionLedger{ids: ids}
}

// Resolve returns the ids for the packaging/description pair, appending a value to an
// option only when that exact value is not present yet and creating an option only when
// the list lacks it. Resolving the same pair twice yields the same ids and no new values.
func (l *OptionLedger) Resolve(options []model.Option, packaging, description string) ([]model.Option, OptionIDs) {
	var ids OptionIDs
	options, ids.PackagingOptionID, ids.PackagingValueID = l.resolve(options, model.OptionPackaging, packaging)
	options, ids.DescriptionOptionID, ids.DescriptionValueID = l.resolve(options, model.OptionDescription, description)
	return options, ids
}

func (l *OptionLedger) resolve(options []model.Option, name, value string) ([]model.Option, string, string) {
	for i := range options {
		opt := &options[i]
		if opt.Name != name {
			continue
		}
		for _, v := range opt.Values {
			if v.Value == value {
				return options, opt.ID, v.ID
			}
		}
		valueID := l.ids.ShortID(OptionIDLength)
		opt.Values = append(opt.Values, model.OptionValue{ID: valueID, Name: value, Value: value})
		return options, opt.ID, valueID
	}

	opt := model.Option{
		ID:   l.ids.ShortID(OptionIDLength),
		Name: name,
		Values: []model.OptionValue{
			{ID: l.ids.ShortID(OptionIDLength), Name: value, Value: value},
		},
	}
	return append(options, opt), opt.ID, opt.Values[0].ID
}
