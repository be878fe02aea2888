package catalog

import (
	"context"
	"sort"
	"strings"

	"inventory_manager/domain"
	"inventory_manager/stock"

	"github.com/shopspring/decimal"
)

// ProductRef names a product in an audit finding.
type ProductRef struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

// UnitRef names one unit of a product in an audit finding. ProductName is
// empty when the unit belongs to no known product.
type UnitRef struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitID      string `json:"unit_id"`
	UnitName    string `json:"unit_name"`
	Barcode     string `json:"barcode,omitempty"`
}

// AuditReport lists catalog data that needs attention.
type AuditReport struct {
	ProductsWithoutUnits []ProductRef `json:"products_without_units"`
	UnitsWithoutBarcode  []UnitRef    `json:"units_without_barcode"`
	DuplicateBarcodes    []UnitRef    `json:"duplicate_barcodes"`
	UnderpricedUnits     []UnitRef    `json:"underpriced_units"`
}

// Clean reports whether the audit found nothing.
func (r AuditReport) Clean() bool {
	return len(r.ProductsWithoutUnits) == 0 && len(r.UnitsWithoutBarcode) == 0 &&
		len(r.DuplicateBarcodes) == 0 && len(r.UnderpricedUnits) == 0
}

// Audit checks a catalog snapshot for products with no units, units with no
// barcode, barcodes used by more than one unit and sold units priced below
// minSellingPrice (or not priced at all). Stock-only units are never
// underpriced.
func Audit(products []domain.Product, conversions []domain.UnitConversion, minSellingPrice decimal.Decimal) AuditReport {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	ref := func(c domain.UnitConversion) UnitRef {
		return UnitRef{
			ProductID:   c.ProductID,
			ProductName: names[c.ProductID],
			UnitID:      c.UnitID,
			UnitName:    c.UnitName,
			Barcode:     c.Barcode,
		}
	}

	report := AuditReport{
		ProductsWithoutUnits: []ProductRef{},
		UnitsWithoutBarcode:  []UnitRef{},
		DuplicateBarcodes:    []UnitRef{},
		UnderpricedUnits:     []UnitRef{},
	}
	hasUnits := make(map[string]bool, len(products))
	byBarcode := make(map[string][]domain.UnitConversion)
	for _, c := range conversions {
		hasUnits[c.ProductID] = true
		barcode := strings.TrimSpace(c.Barcode)
		if barcode == "" {
			report.UnitsWithoutBarcode = append(report.UnitsWithoutBarcode, ref(c))
		} else {
			byBarcode[barcode] = append(byBarcode[barcode], c)
		}
		if !c.IsStockOnly && (c.SellingPrice == nil || c.SellingPrice.LessThan(minSellingPrice)) {
			report.UnderpricedUnits = append(report.UnderpricedUnits, ref(c))
		}
	}
	for _, p := range products {
		if !hasUnits[p.ID] {
			report.ProductsWithoutUnits = append(report.ProductsWithoutUnits, ProductRef{ProductID: p.ID, ProductName: p.Name})
		}
	}
	for _, group := range byBarcode {
		if len(group) < 2 {
			continue
		}
		for _, c := range group {
			report.DuplicateBarcodes = append(report.DuplicateBarcodes, ref(c))
		}
	}

	sort.Slice(report.ProductsWithoutUnits, func(i, j int) bool {
		a, b := report.ProductsWithoutUnits[i], report.ProductsWithoutUnits[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID < b.ProductID
	})
	sortUnitRefs(report.UnitsWithoutBarcode)
	sortUnitRefs(report.UnderpricedUnits)
	sort.Slice(report.DuplicateBarcodes, func(i, j int) bool {
		a, b := report.DuplicateBarcodes[i], report.DuplicateBarcodes[j]
		if a.Barcode != b.Barcode {
			return a.Barcode < b.Barcode
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.UnitID < b.UnitID
	})
	return report
}

func sortUnitRefs(refs []UnitRef) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.UnitID < b.UnitID
	})
}

// CheckReport combines the stock recomputation report with the data audit.
type CheckReport struct {
	Stock stock.Report `json:"stock"`
	Audit AuditReport  `json:"audit"`
}

// Check recomputes the catalog and audits it against the service's minimum
// selling price.
func (s *Service) Check(ctx context.Context) (CheckReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return CheckReport{}, err
	}
	audit := Audit(snap.Products, snap.Conversions, s.minSellingPrice)
	if !audit.Clean() {
		s.log.Warn().
			Int("products_without_units", len(audit.ProductsWithoutUnits)).
			Int("units_without_barcode", len(audit.UnitsWithoutBarcode)).
			Int("duplicate_barcodes", len(audit.DuplicateBarcodes)).
			Int("underpriced_units", len(audit.UnderpricedUnits)).
			Msg("catalog audit found problems")
	}
	return CheckReport{Stock: snap.Report, Audit: audit}, nil
}
