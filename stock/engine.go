// Package stock derives bundle stock from component stock and evaluates
// low-stock status over an in-memory catalog snapshot.
//
// Nothing here performs I/O or returns errors. Malformed data resolves to
// conservative values (zero stock, base-unit thresholds) and is listed in
// the Report so callers can surface it.
package stock

import (
	"fmt"
	"sort"

	"inventory_manager/domain"
	"inventory_manager/units"

	"github.com/shopspring/decimal"
)

// AnomalyKind classifies a data-quality problem found during a pass.
type AnomalyKind string

const (
	AnomalyEmptyBundle      AnomalyKind = "empty_bundle"
	AnomalyMissingComponent AnomalyKind = "missing_component"
	AnomalyInvalidQuantity  AnomalyKind = "invalid_quantity"
	AnomalyCycle            AnomalyKind = "cycle"
)

// Anomaly is a bundle whose stock was forced to zero.
type Anomaly struct {
	Kind        AnomalyKind `json:"kind"`
	BundleID    string      `json:"bundle_id"`
	ComponentID string      `json:"component_id,omitempty"`
}

func (a Anomaly) String() string {
	if a.ComponentID == "" {
		return fmt.Sprintf("%s: bundle=%s", a.Kind, a.BundleID)
	}
	return fmt.Sprintf("%s: bundle=%s component=%s", a.Kind, a.BundleID, a.ComponentID)
}

// Report summarises a recomputation pass.
type Report struct {
	Bundles   int       `json:"bundles"`
	LowStock  int       `json:"low_stock"`
	Anomalies []Anomaly `json:"anomalies,omitempty"`
}

// Index resolves product ids to entries of a snapshot slice.
type Index map[string]*domain.Product

// NewIndex indexes products by id. The pointers alias the slice elements,
// so writes through the index are visible in products.
func NewIndex(products []domain.Product) Index {
	idx := make(Index, len(products))
	for i := range products {
		idx[products[i].ID] = &products[i]
	}
	return idx
}

// RecalculateBundleStock sets bundle.Stock to the number of complete bundles
// its components allow. Non-bundles are left untouched. An empty bundle, an
// unresolved component or a non-positive quantity caps the bundle at zero.
func RecalculateBundleStock(bundle *domain.Product, index Index) (Anomaly, bool) {
	if !bundle.IsBundle {
		return Anomaly{}, false
	}
	if len(bundle.Components) == 0 {
		bundle.Stock = 0
		return Anomaly{Kind: AnomalyEmptyBundle, BundleID: bundle.ID}, true
	}

	maxPossible := 0
	for i, c := range bundle.Components {
		component, ok := index[c.ProductID]
		if !ok {
			bundle.Stock = 0
			return Anomaly{Kind: AnomalyMissingComponent, BundleID: bundle.ID, ComponentID: c.ProductID}, true
		}
		if !c.QuantityPerBundle.IsPositive() {
			bundle.Stock = 0
			return Anomaly{Kind: AnomalyInvalidQuantity, BundleID: bundle.ID, ComponentID: c.ProductID}, true
		}
		possible := int(decimal.NewFromInt(int64(component.Stock)).Div(c.QuantityPerBundle).Floor().IntPart())
		if i == 0 || possible < maxPossible {
			maxPossible = possible
		}
	}
	bundle.Stock = maxPossible
	return Anomaly{}, false
}

// EvaluateLowStock flags the product when its stock is below the warning
// level converted to base units.
func EvaluateLowStock(product *domain.Product, table *units.Table) {
	factor := table.FactorOf(product.ID, product.WarningStockUnitID)
	threshold := decimal.NewFromInt(int64(product.WarningStockLevel)).Mul(factor)
	product.IsLowOnStock = decimal.NewFromInt(int64(product.Stock)).LessThan(threshold)
}

// Recalculate runs a full pass over the snapshot in place: every bundle is
// recomputed after the bundles it contains, bundles on a reference cycle are
// zeroed, and low-stock status is evaluated for every product.
func Recalculate(products []domain.Product, conversions []domain.UnitConversion) Report {
	var report Report
	idx := NewIndex(products)

	order, cyclic := evaluationOrder(products, idx)
	for i := range products {
		p := &products[i]
		if !p.IsBundle {
			continue
		}
		report.Bundles++
		if cyclic[p.ID] {
			p.Stock = 0
			report.Anomalies = append(report.Anomalies, Anomaly{Kind: AnomalyCycle, BundleID: p.ID})
		}
	}
	for _, id := range order {
		if a, bad := RecalculateBundleStock(idx[id], idx); bad {
			report.Anomalies = append(report.Anomalies, a)
		}
	}

	table := units.NewTable(conversions)
	for i := range products {
		EvaluateLowStock(&products[i], table)
		if products[i].IsLowOnStock {
			report.LowStock++
		}
	}
	return report
}

// evaluationOrder returns bundle ids so that every bundle comes after the
// bundles among its components, plus the set of bundles on a cycle. Cyclic
// bundles are left out of the order.
func evaluationOrder(products []domain.Product, idx Index) ([]string, map[string]bool) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	cyclic := make(map[string]bool)
	var order, path []string

	var visit func(id string)
	visit = func(id string) {
		state[id] = visiting
		path = append(path, id)
		for _, c := range idx[id].Components {
			component, ok := idx[c.ProductID]
			if !ok || !component.IsBundle {
				continue
			}
			switch state[c.ProductID] {
			case unvisited:
				visit(c.ProductID)
			case visiting:
				for i := len(path) - 1; i >= 0; i-- {
					cyclic[path[i]] = true
					if path[i] == c.ProductID {
						break
					}
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		if !cyclic[id] {
			order = append(order, id)
		}
	}

	for _, p := range products {
		if p.IsBundle && state[p.ID] == unvisited {
			visit(p.ID)
		}
	}
	return order, cyclic
}

// LowStock returns copies of the flagged products ordered by name.
func LowStock(products []domain.Product) []domain.Product {
	var out []domain.Product
	for _, p := range products {
		if p.IsLowOnStock {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
