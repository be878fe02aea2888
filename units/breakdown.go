package units

import (
	"sort"
	"strconv"
	"strings"

	"inventory_manager/domain"

	"github.com/shopspring/decimal"
)

// BaseUnitLabel names the base unit when a product has no factor-1 conversion.
const BaseUnitLabel = "Base Unit"

// Part is one "count unit" entry of a stock breakdown.
type Part struct {
	Count    int    `json:"count"`
	UnitName string `json:"unit_name"`
}

func (p Part) String() string {
	return strconv.Itoa(p.Count) + " " + p.UnitName
}

// Breakdown decomposes a base-unit stock greedily over the given units,
// largest factor first. Ties on factor are ordered by unit name.
//
// The remainder is carried as an exact decimal, so fractional factors
// (e.g. 2.5) leave the correct amount for the smaller units.
func Breakdown(totalStockInBase int, conversions []domain.UnitConversion) []Part {
	if len(conversions) == 0 {
		return []Part{{Count: totalStockInBase, UnitName: BaseUnitLabel}}
	}

	sorted := make([]domain.UnitConversion, len(conversions))
	copy(sorted, conversions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].ConversionFactor.Cmp(sorted[j].ConversionFactor); c != 0 {
			return c > 0
		}
		return sorted[i].UnitName < sorted[j].UnitName
	})

	var parts []Part
	remainder := decimal.NewFromInt(int64(totalStockInBase))
	for _, u := range sorted {
		if !u.ConversionFactor.IsPositive() {
			continue
		}
		count := remainder.Div(u.ConversionFactor).Floor()
		if count.IsPositive() {
			parts = append(parts, Part{Count: int(count.IntPart()), UnitName: u.UnitName})
			remainder = remainder.Sub(count.Mul(u.ConversionFactor))
		}
	}

	if len(parts) == 0 && remainder.IsZero() {
		name := BaseUnitLabel
		for _, u := range sorted {
			if u.IsBaseUnit() {
				name = u.UnitName
				break
			}
		}
		return []Part{{Count: 0, UnitName: name}}
	}
	return parts
}

// Format renders a breakdown as "1 Dozen, 5 Pcs".
func Format(parts []Part) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}
