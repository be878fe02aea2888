// Package domain defines core business types and interfaces.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an inventory product. Stock is always held in the
// product's base unit. For bundles Stock is derived from Components.
type Product struct {
	ID                 string            `json:"id" validate:"required"`
	Name               string            `json:"name" validate:"required"`
	AlternateNames     string            `json:"alternate_names,omitempty"`
	CostPrice          *decimal.Decimal  `json:"cost_price,omitempty"`
	Stock              int               `json:"stock"`
	IsBundle           bool              `json:"is_bundle"`
	WarningStockLevel  int               `json:"warning_stock_level" validate:"gte=0"`
	WarningStockUnitID string            `json:"warning_stock_unit_id,omitempty"`
	Components         []BundleComponent `json:"components,omitempty" validate:"dive"`
	IsLowOnStock       bool              `json:"is_low_on_stock"`
}

// BundleComponent links a bundle to one of the products it consumes.
// The component is referenced by id and resolved against the catalog.
type BundleComponent struct {
	ProductID         string          `json:"product_id" validate:"required"`
	QuantityPerBundle decimal.Decimal `json:"quantity_per_bundle"`
}

// UnitConversion is a named unit of a product and its size in base units.
type UnitConversion struct {
	ProductID        string           `json:"product_id" validate:"required"`
	UnitID           string           `json:"unit_id" validate:"required"`
	UnitName         string           `json:"unit_name" validate:"required"`
	ConversionFactor decimal.Decimal  `json:"conversion_factor"`
	SellingPrice     *decimal.Decimal `json:"selling_price,omitempty"`
	CostPrice        *decimal.Decimal `json:"cost_price,omitempty"`
	Barcode          string           `json:"barcode,omitempty" validate:"omitempty,max=64"`
	IsStockOnly      bool             `json:"is_stock_only"`
}

// IsBaseUnit reports whether the conversion is the product's base unit.
func (c UnitConversion) IsBaseUnit() bool {
	return c.ConversionFactor.Equal(decimal.NewFromInt(1))
}

// ListFilter allows filtering and sorting results from ListProducts
type ListFilter struct {
	Search      string // matched against name, alternate names and unit barcodes
	BundlesOnly bool
	SortBy      string // "name", "stock"
	Order       string // "asc" or "desc"
}

// PurchaseLine is one received line of a purchase. BaseQuantity is Quantity
// converted to the product's base unit and is what stock grows by.
type PurchaseLine struct {
	ProductID    string          `json:"product_id" validate:"required"`
	UnitID       string          `json:"unit_id" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	BaseQuantity int             `json:"base_quantity" validate:"gt=0"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// Purchase is a recorded supplier delivery.
type Purchase struct {
	ID       string          `json:"id" validate:"required"`
	Supplier string          `json:"supplier,omitempty"`
	Date     time.Time       `json:"date"`
	Lines    []PurchaseLine  `json:"lines" validate:"min=1,dive"`
	Total    decimal.Decimal `json:"total"`
}

// CatalogDocument is the portable form of a catalog, used by the file store
// and by export/import.
type CatalogDocument struct {
	Products    []Product        `json:"products"`
	Conversions []UnitConversion `json:"conversions"`
	Purchases   []Purchase       `json:"purchases,omitempty"`
}

// CatalogStore defines the storage interface for the product catalog
type CatalogStore interface {
	CreateProduct(ctx context.Context, product Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	UpdateProduct(ctx context.Context, id string, product Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error

	SaveConversion(ctx context.Context, conversion UnitConversion) error
	DeleteConversion(ctx context.Context, productID, unitID string) error

	LoadAllProducts(ctx context.Context) ([]Product, error)
	LoadAllUnitConversions(ctx context.Context) ([]UnitConversion, error)

	BulkImport(ctx context.Context, products []Product) error

	// RecordPurchase stores the purchase and adds every line's BaseQuantity
	// to its product's stock. Either all of it is applied or none.
	RecordPurchase(ctx context.Context, purchase Purchase) error
	ListPurchases(ctx context.Context) ([]Purchase, error)
}
