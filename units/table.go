// Package units resolves per-product unit conversions and breaks base-unit
// stock down into human-readable counts.
package units

import (
	"inventory_manager/domain"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Table indexes a global conversion list by product id.
type Table struct {
	byProduct map[string][]domain.UnitConversion
}

// NewTable builds a Table from conversions of every product.
func NewTable(conversions []domain.UnitConversion) *Table {
	t := &Table{byProduct: make(map[string][]domain.UnitConversion)}
	for _, c := range conversions {
		t.byProduct[c.ProductID] = append(t.byProduct[c.ProductID], c)
	}
	return t
}

// ConversionsFor returns the units defined for productID in input order.
func (t *Table) ConversionsFor(productID string) []domain.UnitConversion {
	list := t.byProduct[productID]
	out := make([]domain.UnitConversion, len(list))
	copy(out, list)
	return out
}

// Lookup returns the conversion of productID for unitID.
func (t *Table) Lookup(productID, unitID string) (domain.UnitConversion, bool) {
	for _, c := range t.byProduct[productID] {
		if c.UnitID == unitID {
			return c, true
		}
	}
	return domain.UnitConversion{}, false
}

// FactorOf returns the conversion factor of unitID for productID. A missing
// unit resolves to 1 so that it behaves like the base unit.
func (t *Table) FactorOf(productID, unitID string) decimal.Decimal {
	if c, ok := t.Lookup(productID, unitID); ok {
		return c.ConversionFactor
	}
	return one
}

// BaseUnit returns the product's conversion with factor 1.
func (t *Table) BaseUnit(productID string) (domain.UnitConversion, bool) {
	for _, c := range t.byProduct[productID] {
		if c.IsBaseUnit() {
			return c, true
		}
	}
	return domain.UnitConversion{}, false
}

// ToBase converts quantity expressed in unitID into base units, rounded to
// the nearest whole base unit. Unlike FactorOf it requires the unit to exist.
func (t *Table) ToBase(productID, unitID string, quantity int) (int, error) {
	c, ok := t.Lookup(productID, unitID)
	if !ok {
		return 0, domain.NewConversionNotFoundError(productID, unitID)
	}
	return int(decimal.NewFromInt(int64(quantity)).Mul(c.ConversionFactor).Round(0).IntPart()), nil
}
