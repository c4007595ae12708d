package reconcile

import (
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

// PricePrecedence selects where a matched variant's cost and price come from.
type PricePrecedence string

const (
	// PriceFromFeed overwrites stored cost and price with the current feed values.
	PriceFromFeed PricePrecedence = "feed"
	// PriceFromCatalog keeps the stored cost and price of matched variants.
	PriceFromCatalog PricePrecedence = "catalog"
)

func ParsePricePrecedence(s string) (PricePrecedence, error) {
	switch PricePrecedence(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriceFromFeed:
		return PriceFromFeed, nil
	case PriceFromCatalog:
		return PriceFromCatalog, nil
	default:
		return "", fmt.Errorf("unknown price precedence %q", s)
	}
}

// MergeResult summarizes what a merge did to the stored product.
type MergeResult struct {
	Added       int
	Deactivated int
	Reactivated int
	Updated     int
	NewValues   int
}

// Changed reports whether the stored product differs from what was loaded.
func (r MergeResult) Changed() bool {
	return r.Added+r.Deactivated+r.Reactivated+r.Updated+r.NewValues > 0
}

type variantState struct {
	active, available bool
	cost, price       float64
	packaging         string
	description       string
	optionsPath       string
	optionItemsPath   string
}

func stateOf(v *model.Variant) variantState {
	return variantState{
		active:          v.Active,
		available:       v.Available,
		cost:            v.Cost,
		price:           v.Price,
		packaging:       v.Packaging,
		description:     v.Description,
		optionsPath:     v.OptionsPath,
		optionItemsPath: v.OptionItemsPath,
	}
}

// Merge folds the run aggregate into the stored product in place. Variants are matched
// by itemCode: unmatched stored variants are soft-deleted, matched ones take the run's
// packaging and description (and pricing under PriceFromFeed) and are re-activated, and
// run variants with an unknown itemCode are appended. Options are unioned by value.
func Merge(stored, incoming *model.Product, precedence PricePrecedence) MergeResult {
	var res MergeResult

	runByCode := make(map[string]*model.Variant, len(incoming.Data.Variants))
	for i := range incoming.Data.Variants {
		v := &incoming.Data.Variants[i]
		if _, ok := runByCode[v.ItemCode]; !ok {
			runByCode[v.ItemCode] = v
		}
	}

	storedCodes := make(map[string]struct{}, len(stored.Data.Variants))
	for _, v := range stored.Data.Variants {
		storedCodes[v.ItemCode] = struct{}{}
	}

	var staged []model.Variant
	for _, v := range incoming.Data.Variants {
		if _, ok := storedCodes[v.ItemCode]; ok {
			continue
		}
		storedCodes[v.ItemCode] = struct{}{}
		staged = append(staged, v)
	}

	res.NewValues = unionOptions(stored, incoming)

	for i := range stored.Data.Variants {
		sv := &stored.Data.Variants[i]
		before := stateOf(sv)

		rv, ok := runByCode[sv.ItemCode]
		if !ok {
			sv.Active = false
			sv.Available = false
			if before.active || before.available {
				res.Deactivated++
			}
			continue
		}

		if precedence != PriceFromCatalog {
			sv.Cost = rv.Cost
			sv.Price = rv.Price
		}
		sv.Packaging = rv.Packaging
		sv.Description = rv.Description
		sv.Attributes = model.VariantAttributes{Packaging: rv.Packaging, Description: rv.Description}
		sv.OptionName = rv.Packaging + "," + rv.Description
		repath(stored.Data.Options, sv)
		sv.Active = true
		sv.Available = true

		switch after := stateOf(sv); {
		case !before.active || !before.available:
			res.Reactivated++
		case after != before:
			res.Updated++
		}
	}

	for i := range staged {
		repath(stored.Data.Options, &staged[i])
	}
	stored.Data.Variants = append(stored.Data.Variants, staged...)
	res.Added = len(staged)

	return res
}

// dedupeVariants keeps the first variant per itemCode in p and returns how many
// later repeats were dropped.
func dedupeVariants(p *model.Product) int {
	seen := make(map[string]struct{}, len(p.Data.Variants))
	kept := p.Data.Variants[:0]
	for _, v := range p.Data.Variants {
		if _, ok := seen[v.ItemCode]; ok {
			continue
		}
		seen[v.ItemCode] = struct{}{}
		kept = append(kept, v)
	}
	dropped := len(p.Data.Variants) - len(kept)
	p.Data.Variants = kept
	return dropped
}

// unionOptions appends run options the stored product lacks and run values missing from
// stored options, and returns how many values were added.
func unionOptions(stored, incoming *model.Product) int {
	added := 0
	for _, ro := range incoming.Data.Options {
		so := stored.FindOption(ro.Name)
		if so == nil {
			opt := ro
			opt.Values = append([]model.OptionValue(nil), ro.Values...)
			stored.Data.Options = append(stored.Data.Options, opt)
			added += len(opt.Values)
			continue
		}
		for _, v := range ro.Values {
			if !so.HasValue(v.Value) {
				so.Values = append(so.Values, v)
				added++
			}
		}
	}
	return added
}

// repath points v at the stored option and value ids matching its packaging and
// description. Paths are left alone when a value cannot be found.
func repath(options []model.Option, v *model.Variant) {
	pkgOpt, pkgVal, ok1 := lookup(options, model.OptionPackaging, v.Packaging)
	descOpt, descVal, ok2 := lookup(options, model.OptionDescription, v.Description)
	if !ok1 || !ok2 {
		return
	}
	v.OptionsPath = pkgOpt + "," + descOpt
	v.OptionItemsPath = pkgVal + "," + descVal
}

func lookup(options []model.Option, name, value string) (string, string, bool) {
	for _, o := range options {
		if o.Name != name {
			continue
		}
		for _, v := range o.Values {
			if v.Value == value {
				return o.ID, v.ID, true
			}
		}
		return "", "", false
	}
	return "", "", false
}
