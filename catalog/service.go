// Package catalog implements the stock-affecting catalog operations on top
// of a domain.CatalogStore. Every read loads a fresh snapshot and runs the
// stock recomputation pass so derived fields are never stale.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inventory_manager/domain"
	"inventory_manager/stock"
	"inventory_manager/units"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultMinSellingPrice is the lowest selling price accepted for a unit
// that is sold.
var DefaultMinSellingPrice = decimal.NewFromInt(100)

// DefaultBaseUnitName names the base unit created with a product when the
// caller does not choose one.
const DefaultBaseUnitName = "Pcs"

// Service coordinates the store with the units and stock packages.
type Service struct {
	store           domain.CatalogStore
	log             zerolog.Logger
	minSellingPrice decimal.Decimal
	newID           func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for operation and anomaly logs.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMinSellingPrice overrides DefaultMinSellingPrice.
func WithMinSellingPrice(p decimal.Decimal) Option {
	return func(s *Service) { s.minSellingPrice = p }
}

// WithIDGenerator replaces the UUID generator for new products.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService returns a Service backed by store.
func NewService(store domain.CatalogStore, opts ...Option) *Service {
	s := &Service{
		store:           store,
		log:             zerolog.Nop(),
		minSellingPrice: DefaultMinSellingPrice,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is a recomputed, point-in-time view of the catalog.
type Snapshot struct {
	Products    []domain.Product
	Conversions []domain.UnitConversion
	Units       *units.Table
	Report      stock.Report

	index stock.Index
}

// Product returns the recomputed product with the given id.
func (s *Snapshot) Product(id string) (domain.Product, bool) {
	p, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return *p, true
}

// Snapshot loads every product and unit conversion and recomputes bundle
// stock and low-stock flags.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	products, err := s.store.LoadAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unit conversions: %w", err)
	}

	report := stock.Recalculate(products, conversions)
	for _, a := range report.Anomalies {
		s.log.Warn().
			Str("anomaly", string(a.Kind)).
			Str("product_id", a.BundleID).
			Str("component_id", a.ComponentID).
			Msg("bundle stock forced to zero")
	}
	s.log.Debug().
		Int("products", len(products)).
		Int("bundles", report.Bundles).
		Int("low_stock", report.LowStock).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("catalog recalculated")

	return &Snapshot{
		Products:    products,
		Conversions: conversions,
		Units:       units.NewTable(conversions),
		Report:      report,
		index:       stock.NewIndex(products),
	}, nil
}

// GetProduct returns a product with its derived stock and low-stock flag.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	p, ok := snap.Product(id)
	if !ok {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	return p, nil
}

// ListProducts filters through the store and overlays derived fields.
func (s *Service) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	listed, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(listed))
	for _, p := range listed {
		if derived, ok := snap.Product(p.ID); ok {
			p = derived
		}
		out = append(out, p)
	}
	// bundle stock is only known after recomputation
	if filter.SortBy == "stock" {
		desc := filter.Order == "desc"
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].Stock > out[j].Stock
			}
			return out[i].Stock < out[j].Stock
		})
	}
	return out, nil
}

// ProductInput describes a new non-bundle product and its base unit.
type ProductInput struct {
	Name               string
	AlternateNames     string
	CostPrice          *decimal.Decimal
	Stock              int
	WarningStockLevel  int
	WarningStockUnitID string
	BaseUnitName       string
	SellingPrice       *decimal.Decimal
	Barcode            string
}

// CreateProduct stores a new product together with its base unit.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	p := domain.Product{
		ID:                 s.newID(),
		Name:               strings.TrimSpace(in.Name),
		AlternateNames:     strings.TrimSpace(in.AlternateNames),
		CostPrice:          in.CostPrice,
		Stock:              in.Stock,
		WarningStockLevel:  in.WarningStockLevel,
		WarningStockUnitID: in.WarningStockUnitID,
	}
	base := baseConversion(p.ID, in.BaseUnitName, in.SellingPrice, in.Barcode)
	base.CostPrice = in.CostPrice
	if p.WarningStockUnitID == "" {
		p.WarningStockUnitID = base.UnitID
	}
	if p.WarningStockUnitID != base.UnitID {
		return domain.Product{}, domain.NewConversionNotFoundError(p.ID, p.WarningStockUnitID)
	}
	if err := s.checkSellingPrice(base); err != nil {
		return domain.Product{}, err
	}
	if err := s.createWithBaseUnit(ctx, p, base); err != nil {
		return domain.Product{}, err
	}
	s.log.Info().Str("product_id", p.ID).Str("name", p.Name).Int("stock", p.Stock).Msg("product created")
	return p, nil
}

// BundleInput describes a new bundle.
type BundleInput struct {
	Name              string
	AlternateNames    string
	SellingPrice      *decimal.Decimal
	Barcode           string
	WarningStockLevel int
	Components        []domain.BundleComponent
}

// CreateBundle stores a bundle with a single base unit named Pcs. Its stock
// is derived from the components and starts at whatever they allow.
func (s *Service) CreateBundle(ctx context.Context, in BundleInput) (domain.Product, error) {
	p := domain.Product{
		ID:                s.newID(),
		Name:              strings.TrimSpace(in.Name),
		AlternateNames:    strings.TrimSpace(in.AlternateNames),
		IsBundle:          true,
		WarningStockLevel: in.WarningStockLevel,
		Components:        append([]domain.BundleComponent(nil), in.Components...),
	}
	if len(p.Components) == 0 {
		return domain.Product{}, domain.NewInvalidProductError("components", "a bundle needs at least one component", 0)
	}
	for _, c := range p.Components {
		if _, err := s.store.GetProduct(ctx, c.ProductID); err != nil {
			return domain.Product{}, fmt.Errorf("component %s: %w", c.ProductID, err)
		}
	}
	base := baseConversion(p.ID, DefaultBaseUnitName, in.SellingPrice, in.Barcode)
	p.WarningStockUnitID = base.UnitID
	if err := s.checkSellingPrice(base); err != nil {
		return domain.Product{}, err
	}
	if err := s.createWithBaseUnit(ctx, p, base); err != nil {
		return domain.Product{}, err
	}
	s.log.Info().Str("product_id", p.ID).Int("components", len(p.Components)).Msg("bundle created")
	return s.GetProduct(ctx, p.ID)
}

// createWithBaseUnit stores p and then its base unit, removing p again when
// the unit is rejected.
func (s *Service) createWithBaseUnit(ctx context.Context, p domain.Product, base domain.UnitConversion) error {
	if err := domain.ValidateConversion(base); err != nil {
		return err
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return err
	}
	if err := s.store.SaveConversion(ctx, base); err != nil {
		s.discard(ctx, p.ID)
		return err
	}
	return nil
}

// discard removes a product whose creation failed half way.
func (s *Service) discard(ctx context.Context, id string) {
	if err := s.store.DeleteProduct(context.WithoutCancel(ctx), id); err != nil {
		s.log.Error().Err(err).Str("product_id", id).Msg("failed to remove partially created product")
	}
}

func baseConversion(productID, name string, sellingPrice *decimal.Decimal, barcode string) domain.UnitConversion {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultBaseUnitName
	}
	return domain.UnitConversion{
		ProductID:        productID,
		UnitID:           UnitID(name),
		UnitName:         name,
		ConversionFactor: decimal.NewFromInt(1),
		SellingPrice:     sellingPrice,
		Barcode:          strings.TrimSpace(barcode),
	}
}

// UnitID derives a stable unit id from a unit name: "Big Box" -> "big-box".
func UnitID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// ProductPatch lists the fields UpdateProduct may change. Nil fields are kept.
type ProductPatch struct {
	Name               *string
	AlternateNames     *string
	CostPrice          *decimal.Decimal
	Stock              *int
	WarningStockLevel  *int
	WarningStockUnitID *string
	Components         []domain.BundleComponent
}

// UpdateProduct applies patch to the stored product. Stock can only be set on
// non-bundles and components only on bundles.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (domain.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.AlternateNames != nil {
		p.AlternateNames = strings.TrimSpace(*patch.AlternateNames)
	}
	if patch.CostPrice != nil {
		p.CostPrice = patch.CostPrice
	}
	if patch.WarningStockLevel != nil {
		p.WarningStockLevel = *patch.WarningStockLevel
	}
	if patch.Stock != nil {
		if p.IsBundle {
			return domain.Product{}, domain.NewInvalidProductError("stock", "bundle stock is derived from its components", id)
		}
		p.Stock = *patch.Stock
	}
	if patch.Components != nil {
		if !p.IsBundle {
			return domain.Product{}, domain.NewInvalidProductError("components", "only bundles have components", id)
		}
		p.Components = append([]domain.BundleComponent(nil), patch.Components...)
	}
	if patch.WarningStockUnitID != nil {
		unitID := *patch.WarningStockUnitID
		if unitID != "" {
			conversions, err := s.store.LoadAllUnitConversions(ctx)
			if err != nil {
				return domain.Product{}, fmt.Errorf("load unit conversions: %w", err)
			}
			if _, ok := units.NewTable(conversions).Lookup(id, unitID); !ok {
				return domain.Product{}, domain.NewConversionNotFoundError(id, unitID)
			}
		}
		p.WarningStockUnitID = unitID
	}

	if err := s.store.UpdateProduct(ctx, id, p); err != nil {
		return domain.Product{}, err
	}
	s.log.Info().Str("product_id", id).Msg("product updated")
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product and its units.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// AddStock converts quantity of unitID into base units and adds it to the
// product. It returns the number of base units added.
func (s *Service) AddStock(ctx context.Context, productID, unitID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, domain.NewInvalidProductError("quantity", "must be positive", quantity)
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p.IsBundle {
		return 0, domain.NewInvalidProductError("stock", "cannot add stock to a bundle", productID)
	}
	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load unit conversions: %w", err)
	}
	added, err := units.NewTable(conversions).ToBase(productID, unitID, quantity)
	if err != nil {
		return 0, err
	}
	if err := s.store.AdjustStock(ctx, productID, added); err != nil {
		return 0, err
	}
	s.log.Info().
		Str("product_id", productID).
		Str("unit_id", unitID).
		Int("quantity", quantity).
		Int("base_quantity", added).
		Msg("stock added")
	return added, nil
}

// PurchaseItem is one product bought in one of its units at a unit cost.
type PurchaseItem struct {
	ProductID string          `json:"product_id"`
	UnitID    string          `json:"unit_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// PurchaseInput is a supplier delivery as entered.
type PurchaseInput struct {
	Supplier string         `json:"supplier,omitempty"`
	Date     time.Time      `json:"date"`
	Items    []PurchaseItem `json:"items"`
}

// RecordPurchase checks every item, converts it to base units and hands the
// purchase to the store, which adds the stock and keeps the record in one
// step. Nothing is applied when an item is invalid.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (domain.Purchase, error) {
	if len(in.Items) == 0 {
		return domain.Purchase{}, domain.NewInvalidProductError("lines", "a purchase needs at least one line", 0)
	}
	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("load unit conversions: %w", err)
	}
	table := units.NewTable(conversions)

	purchase := domain.Purchase{
		ID:       s.newID(),
		Supplier: strings.TrimSpace(in.Supplier),
		Date:     in.Date,
		Total:    decimal.Zero,
	}
	if purchase.Date.IsZero() {
		purchase.Date = time.Now().UTC()
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return domain.Purchase{}, fmt.Errorf("line %d: %w", i+1, domain.NewInvalidProductError("quantity", "must be positive", item.Quantity))
		}
		if !item.UnitCost.IsPositive() {
			return domain.Purchase{}, fmt.Errorf("line %d: %w", i+1, domain.NewInvalidProductError("unit_cost", "must be positive", item.UnitCost.String()))
		}
		p, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			return domain.Purchase{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		if p.IsBundle {
			return domain.Purchase{}, fmt.Errorf("line %d: %w", i+1, domain.NewInvalidProductError("product_id", "cannot purchase a bundle", p.ID))
		}
		base, err := table.ToBase(item.ProductID, item.UnitID, item.Quantity)
		if err != nil {
			return domain.Purchase{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		subtotal := item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity)))
		purchase.Lines = append(purchase.Lines, domain.PurchaseLine{
			ProductID:    item.ProductID,
			UnitID:       item.UnitID,
			Quantity:     item.Quantity,
			BaseQuantity: base,
			UnitCost:     item.UnitCost,
			Subtotal:     subtotal,
		})
		purchase.Total = purchase.Total.Add(subtotal)
	}

	if err := s.store.RecordPurchase(ctx, purchase); err != nil {
		return domain.Purchase{}, fmt.Errorf("record purchase: %w", err)
	}
	s.log.Info().
		Str("purchase_id", purchase.ID).
		Str("supplier", purchase.Supplier).
		Int("lines", len(purchase.Lines)).
		Str("total", purchase.Total.StringFixed(2)).
		Msg("purchase recorded")
	return purchase, nil
}

// Purchases returns the recorded purchases, oldest first.
func (s *Service) Purchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.store.ListPurchases(ctx)
}

// SaveConversion adds or replaces a unit of a product. A product has exactly
// one base unit (factor 1) and it must be created first. Sold units need a
// selling price of at least the configured minimum.
func (s *Service) SaveConversion(ctx context.Context, c domain.UnitConversion) error {
	c.UnitName = strings.TrimSpace(c.UnitName)
	if c.UnitID == "" {
		c.UnitID = UnitID(c.UnitName)
	}
	c.Barcode = strings.TrimSpace(c.Barcode)
	if c.IsStockOnly {
		c.SellingPrice = nil
	}
	if err := domain.ValidateConversion(c); err != nil {
		return err
	}
	if err := s.checkSellingPrice(c); err != nil {
		return err
	}
	if _, err := s.store.GetProduct(ctx, c.ProductID); err != nil {
		return err
	}

	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return fmt.Errorf("load unit conversions: %w", err)
	}
	existing := units.NewTable(conversions).ConversionsFor(c.ProductID)
	if err := checkBaseUnit(c, existing); err != nil {
		return err
	}

	if err := s.store.SaveConversion(ctx, c); err != nil {
		return err
	}
	s.log.Info().
		Str("product_id", c.ProductID).
		Str("unit_id", c.UnitID).
		Str("factor", c.ConversionFactor.String()).
		Msg("unit saved")
	return nil
}

func checkBaseUnit(c domain.UnitConversion, existing []domain.UnitConversion) error {
	if len(existing) == 0 && !c.IsBaseUnit() {
		return domain.NewInvalidProductError("conversion_factor", "the first unit of a product must be its base unit (factor 1)", c.ConversionFactor.String())
	}
	for _, e := range existing {
		if e.UnitID == c.UnitID {
			if e.IsBaseUnit() && !c.IsBaseUnit() {
				return domain.NewInvalidProductError("conversion_factor", "the base unit factor must stay 1", c.ConversionFactor.String())
			}
			continue
		}
		if e.IsBaseUnit() && c.IsBaseUnit() {
			return domain.NewInvalidProductError("conversion_factor", "product already has base unit "+e.UnitID, c.ConversionFactor.String())
		}
	}
	return nil
}

func (s *Service) checkSellingPrice(c domain.UnitConversion) error {
	if c.IsStockOnly {
		return nil
	}
	if c.SellingPrice == nil || c.SellingPrice.LessThan(s.minSellingPrice) {
		value := "none"
		if c.SellingPrice != nil {
			value = c.SellingPrice.String()
		}
		return domain.NewInvalidProductError("selling_price",
			"must be at least "+s.minSellingPrice.String()+" for a sold unit", value)
	}
	return nil
}

// DeleteConversion removes a non-base unit. A low-stock warning expressed in
// that unit falls back to the base unit.
func (s *Service) DeleteConversion(ctx context.Context, productID, unitID string) error {
	if err := s.store.DeleteConversion(ctx, productID, unitID); err != nil {
		return err
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p.WarningStockUnitID == unitID {
		p.WarningStockUnitID = ""
		if err := s.store.UpdateProduct(ctx, productID, p); err != nil {
			return fmt.Errorf("reset warning unit: %w", err)
		}
	}
	s.log.Info().Str("product_id", productID).Str("unit_id", unitID).Msg("unit deleted")
	return nil
}

// Units returns the conversions of a product ordered from the smallest unit.
func (s *Service) Units(ctx context.Context, productID string) ([]domain.UnitConversion, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unit conversions: %w", err)
	}
	out := units.NewTable(conversions).ConversionsFor(productID)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConversionFactor.LessThan(out[j].ConversionFactor)
	})
	return out, nil
}

// DuplicateProduct copies a product under the first free name of the form
// "<name> - COPY", "<name> - COPY 2", ... The copy starts with zero stock and
// gets the same units without barcodes. If a unit cannot be copied the copy
// is removed again.
func (s *Service) DuplicateProduct(ctx context.Context, id string) (domain.Product, error) {
	original, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	all, err := s.store.LoadAllProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load products: %w", err)
	}
	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load unit conversions: %w", err)
	}

	taken := make(map[string]struct{}, len(all))
	for _, p := range all {
		taken[strings.ToLower(p.Name)] = struct{}{}
	}
	name := original.Name + " - COPY"
	for n := 2; ; n++ {
		if _, exists := taken[strings.ToLower(name)]; !exists {
			break
		}
		name = fmt.Sprintf("%s - COPY %d", original.Name, n)
	}

	dup := original
	dup.ID = s.newID()
	dup.Name = name
	dup.Stock = 0
	dup.Components = append([]domain.BundleComponent(nil), original.Components...)
	if err := s.store.CreateProduct(ctx, dup); err != nil {
		return domain.Product{}, err
	}

	for _, c := range units.NewTable(conversions).ConversionsFor(id) {
		c.ProductID = dup.ID
		c.Barcode = ""
		if err := s.store.SaveConversion(ctx, c); err != nil {
			s.discard(ctx, dup.ID)
			return domain.Product{}, fmt.Errorf("copy unit %s: %w", c.UnitID, err)
		}
	}
	s.log.Info().Str("product_id", dup.ID).Str("source_id", id).Str("name", name).Msg("product duplicated")
	return s.GetProduct(ctx, dup.ID)
}

// StockView is a product's stock expressed in its units.
type StockView struct {
	ProductID    string       `json:"product_id"`
	Name         string       `json:"name"`
	Stock        int          `json:"stock"`
	IsBundle     bool         `json:"is_bundle"`
	IsLowOnStock bool         `json:"is_low_on_stock"`
	Parts        []units.Part `json:"parts"`
	Display      string       `json:"display"`
}

// Breakdown decomposes a product's current stock into its units, largest
// first. Bundles use their derived stock.
func (s *Service) Breakdown(ctx context.Context, productID string) (StockView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return StockView{}, err
	}
	p, ok := snap.Product(productID)
	if !ok {
		return StockView{}, domain.NewProductNotFoundError(productID)
	}
	parts := units.Breakdown(p.Stock, snap.Units.ConversionsFor(productID))
	return StockView{
		ProductID:    p.ID,
		Name:         p.Name,
		Stock:        p.Stock,
		IsBundle:     p.IsBundle,
		IsLowOnStock: p.IsLowOnStock,
		Parts:        parts,
		Display:      units.Format(parts),
	}, nil
}

// LowStock returns the products below their warning level, by name.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stock.LowStock(snap.Products), nil
}

// Export returns the products matching filter together with their units.
// Products carry their derived stock.
func (s *Service) Export(ctx context.Context, filter domain.ListFilter) (domain.CatalogDocument, error) {
	products, err := s.ListProducts(ctx, filter)
	if err != nil {
		return domain.CatalogDocument{}, err
	}
	conversions, err := s.store.LoadAllUnitConversions(ctx)
	if err != nil {
		return domain.CatalogDocument{}, fmt.Errorf("load unit conversions: %w", err)
	}
	table := units.NewTable(conversions)
	doc := domain.CatalogDocument{Products: products, Conversions: []domain.UnitConversion{}}
	for _, p := range products {
		doc.Conversions = append(doc.Conversions, table.ConversionsFor(p.ID)...)
	}
	return doc, nil
}

// Import bulk-creates the document's products through the store's import
// path and then restores the units of every product that was accepted. A
// product that arrives without a base unit gets a "Pcs" base unit with no
// price, which the audit reports until one is set. It returns how many
// products were imported.
func (s *Service) Import(ctx context.Context, doc domain.CatalogDocument) (int, error) {
	start := time.Now()

	before, err := s.productIDs(ctx)
	if err != nil {
		return 0, err
	}
	importErr := s.store.BulkImport(ctx, doc.Products)
	after, err := s.productIDs(ctx)
	if err != nil {
		return 0, errors.Join(importErr, err)
	}

	table := units.NewTable(doc.Conversions)
	errs := []error{importErr}
	imported, unitsSaved := 0, 0
	for _, p := range doc.Products {
		if before[p.ID] || !after[p.ID] {
			continue
		}
		imported++
		conversions := table.ConversionsFor(p.ID)
		if _, ok := table.BaseUnit(p.ID); !ok {
			conversions = append([]domain.UnitConversion{baseConversion(p.ID, DefaultBaseUnitName, nil, "")}, conversions...)
		}
		for _, c := range conversions {
			if err := s.store.SaveConversion(ctx, c); err != nil {
				errs = append(errs, fmt.Errorf("id=%s unit=%s: %w", p.ID, c.UnitID, err))
				continue
			}
			unitsSaved++
		}
	}

	err = errors.Join(errs...)
	s.log.Info().
		Int("products", len(doc.Products)).
		Int("imported", imported).
		Int("units", unitsSaved).
		Bool("failed", err != nil).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("import finished")
	return imported, err
}

func (s *Service) productIDs(ctx context.Context) (map[string]bool, error) {
	products, err := s.store.LoadAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	ids := make(map[string]bool, len(products))
	for _, p := range products {
		ids[p.ID] = true
	}
	return ids, nil
}
