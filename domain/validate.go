package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names so errors line up with the CLI/file formats
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// structError converts the first validator failure into an InvalidProductError.
func structError(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewInvalidProductError(fe.Field(), "failed "+fe.Tag(), fe.Value())
	}
	return err
}

// ValidateProduct checks the product fields and its bundle composition.
func ValidateProduct(p Product) error {
	if err := structError(p); err != nil {
		return err
	}
	if p.CostPrice != nil && p.CostPrice.IsNegative() {
		return NewInvalidProductError("cost_price", "must be non-negative", p.CostPrice.String())
	}
	if !p.IsBundle {
		if p.Stock < 0 {
			return NewInvalidProductError("stock", "must be non-negative", p.Stock)
		}
		if len(p.Components) > 0 {
			return NewInvalidProductError("components", "only bundles have components", len(p.Components))
		}
		return nil
	}
	seen := make(map[string]struct{}, len(p.Components))
	for _, c := range p.Components {
		if c.ProductID == p.ID {
			return NewInvalidProductError("components", "bundle cannot contain itself", c.ProductID)
		}
		if _, dup := seen[c.ProductID]; dup {
			return NewInvalidProductError("components", "component listed twice", c.ProductID)
		}
		seen[c.ProductID] = struct{}{}
		if !c.QuantityPerBundle.IsPositive() {
			return NewInvalidProductError("quantity_per_bundle", "must be positive", c.QuantityPerBundle.String())
		}
	}
	return nil
}

// ValidateConversion checks a unit conversion in isolation. Rules that need
// the rest of the catalog (barcode uniqueness, minimum price) live elsewhere.
func ValidateConversion(c UnitConversion) error {
	if err := structError(c); err != nil {
		return err
	}
	if !c.ConversionFactor.IsPositive() {
		return NewInvalidProductError("conversion_factor", "must be positive", c.ConversionFactor.String())
	}
	if c.CostPrice != nil && c.CostPrice.IsNegative() {
		return NewInvalidProductError("cost_price", "must be non-negative", c.CostPrice.String())
	}
	if c.SellingPrice != nil {
		if c.SellingPrice.IsNegative() {
			return NewInvalidProductError("selling_price", "must be non-negative", c.SellingPrice.String())
		}
		if c.IsStockOnly && !c.SellingPrice.Equal(decimal.Zero) {
			return NewInvalidProductError("selling_price", "stock-only units are not sold", c.SellingPrice.String())
		}
	}
	return nil
}

// ValidatePurchase checks a purchase record before it is stored.
func ValidatePurchase(p Purchase) error {
	if err := structError(p); err != nil {
		return err
	}
	for _, l := range p.Lines {
		if !l.UnitCost.IsPositive() {
			return NewInvalidProductError("unit_cost", "must be positive", l.UnitCost.String())
		}
	}
	return nil
}
