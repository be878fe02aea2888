package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inventory_manager/catalog"
	"inventory_manager/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	// unit
	unitCmd := &cobra.Command{
		Use:   "unit",
		Short: "Manage the units of a product",
	}

	var unitID, unitName, unitFactor, unitBarcode string
	var stockOnly bool
	unitSetCmd := &cobra.Command{
		Use:   "set <product-id>",
		Short: "Add or replace a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factor, err := decimal.NewFromString(unitFactor)
			if err != nil {
				return fmt.Errorf("--factor: %w", err)
			}
			sellingPrice, err := decimalFlag(cmd, "selling-price")
			if err != nil {
				return err
			}
			costPrice, err := decimalFlag(cmd, "cost-price")
			if err != nil {
				return err
			}
			c := domain.UnitConversion{
				ProductID:        args[0],
				UnitID:           unitID,
				UnitName:         unitName,
				ConversionFactor: factor,
				SellingPrice:     sellingPrice,
				CostPrice:        costPrice,
				Barcode:          unitBarcode,
				IsStockOnly:      stockOnly,
			}
			if err := svc.SaveConversion(cmd.Context(), c); err != nil {
				return err
			}
			return printUnits(cmd.Context(), args[0], "json")
		},
	}
	unitSetCmd.Flags().StringVar(&unitID, "unit-id", "", "unit id (derived from the name when empty)")
	unitSetCmd.Flags().StringVar(&unitName, "name", "", "unit name")
	unitSetCmd.Flags().StringVar(&unitFactor, "factor", "1", "base units per unit")
	unitSetCmd.Flags().String("selling-price", "", "selling price of the unit")
	unitSetCmd.Flags().String("cost-price", "", "cost price of the unit")
	unitSetCmd.Flags().StringVar(&unitBarcode, "barcode", "", "barcode")
	unitSetCmd.Flags().BoolVar(&stockOnly, "stock-only", false, "unit is only used for counting stock")
	unitCmd.AddCommand(unitSetCmd)

	unitDeleteCmd := &cobra.Command{
		Use:   "delete <product-id> <unit-id>",
		Short: "Delete a unit other than the base unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc.DeleteConversion(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
	unitCmd.AddCommand(unitDeleteCmd)

	var unitOutput string
	unitListCmd := &cobra.Command{
		Use:   "list <product-id>",
		Short: "List the units of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printUnits(cmd.Context(), args[0], unitOutput)
		},
	}
	unitListCmd.Flags().StringVar(&unitOutput, "output", "", "output format")
	unitCmd.AddCommand(unitListCmd)
	rootCmd.AddCommand(unitCmd)

	// bundle
	bundleCmd := &cobra.Command{
		Use:   "bundle",
		Short: "Manage bundles",
	}
	var bName, bAltNames, bBarcode string
	var bWarningLevel int
	bundleCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a bundle from existing products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bName == "" {
				return errors.New("name required")
			}
			raw, _ := cmd.Flags().GetStringArray("component")
			components, err := parseComponents(raw)
			if err != nil {
				return err
			}
			sellingPrice, err := decimalFlag(cmd, "selling-price")
			if err != nil {
				return err
			}
			p, err := svc.CreateBundle(cmd.Context(), catalog.BundleInput{
				Name:              bName,
				AlternateNames:    bAltNames,
				SellingPrice:      sellingPrice,
				Barcode:           bBarcode,
				WarningStockLevel: bWarningLevel,
				Components:        components,
			})
			if err != nil {
				return err
			}
			printJSON(p)
			return nil
		},
	}
	bundleCreateCmd.Flags().StringVar(&bName, "name", "", "name")
	bundleCreateCmd.Flags().StringVar(&bAltNames, "alt-names", "", "alternate names")
	bundleCreateCmd.Flags().String("selling-price", "", "selling price")
	bundleCreateCmd.Flags().StringVar(&bBarcode, "barcode", "", "barcode")
	bundleCreateCmd.Flags().IntVar(&bWarningLevel, "warning-level", 0, "low-stock level")
	bundleCreateCmd.Flags().StringArray("component", nil, "component as <product-id>=<quantity>, repeatable")
	bundleCmd.AddCommand(bundleCreateCmd)
	rootCmd.AddCommand(bundleCmd)

	// stock
	stockCmd := &cobra.Command{
		Use:   "stock",
		Short: "Stock levels, breakdowns and low-stock reports",
	}
	var addUnit string
	var addQty int
	stockAddCmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add stock counted in any unit of the product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := svc.AddStock(cmd.Context(), args[0], addUnit, addQty); err != nil {
				return err
			}
			view, err := svc.Breakdown(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(view)
			return nil
		},
	}
	stockAddCmd.Flags().StringVar(&addUnit, "unit", "pcs", "unit id")
	stockAddCmd.Flags().IntVar(&addQty, "quantity", 0, "quantity in that unit")
	stockCmd.AddCommand(stockAddCmd)

	stockBreakdownCmd := &cobra.Command{
		Use:   "breakdown <product-id>",
		Short: "Show stock split into the product's units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := svc.Breakdown(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(view)
			return nil
		},
	}
	stockCmd.AddCommand(stockBreakdownCmd)

	var lowOutput string
	stockLowCmd := &cobra.Command{
		Use:   "low",
		Short: "List products below their warning level",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := svc.LowStock(cmd.Context())
			if err != nil {
				return err
			}
			if lowOutput == "json" {
				printJSON(out)
				return nil
			}
			for _, p := range out {
				printProductRow(p)
			}
			return nil
		},
	}
	stockLowCmd.Flags().StringVar(&lowOutput, "output", "", "output format")
	stockCmd.AddCommand(stockLowCmd)

	stockCheckCmd := &cobra.Command{
		Use:   "check",
		Short: "Recalculate bundle stock and audit units, barcodes and prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := svc.Check(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(report)
			return nil
		},
	}
	stockCmd.AddCommand(stockCheckCmd)
	rootCmd.AddCommand(stockCmd)

	// purchase
	var supplier, purchaseDate string
	purchaseCmd := &cobra.Command{
		Use:   "purchase --line <product-id>:<unit-id>:<quantity>:<unit-cost> ...",
		Short: "Record a supplier purchase and add its stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetStringArray("line")
			items, err := parsePurchaseLines(raw)
			if err != nil {
				return err
			}
			p := catalog.PurchaseInput{Supplier: supplier, Items: items}
			if purchaseDate != "" {
				p.Date, err = time.Parse(time.DateOnly, purchaseDate)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}
			receipt, err := svc.RecordPurchase(cmd.Context(), p)
			if err != nil {
				return err
			}
			printJSON(receipt)
			return nil
		},
	}
	purchaseCmd.Flags().StringVar(&supplier, "supplier", "", "supplier name")
	purchaseCmd.Flags().StringVar(&purchaseDate, "date", "", "purchase date (YYYY-MM-DD), defaults to today")
	purchaseCmd.Flags().StringArray("line", nil, "line as <product-id>:<unit-id>:<quantity>:<unit-cost>, repeatable")
	rootCmd.AddCommand(purchaseCmd)

	var purchasesOutput string
	purchasesCmd := &cobra.Command{
		Use:   "purchases",
		Short: "List recorded purchases",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := svc.Purchases(cmd.Context())
			if err != nil {
				return err
			}
			if purchasesOutput == "json" {
				printJSON(out)
				return nil
			}
			for _, p := range out {
				fmt.Printf("%s | %s | %s | %d lines | %s\n",
					p.ID, p.Date.Format(time.DateOnly), p.Supplier, len(p.Lines), p.Total.StringFixed(2))
			}
			return nil
		},
	}
	purchasesCmd.Flags().StringVar(&purchasesOutput, "output", "", "output format")
	rootCmd.AddCommand(purchasesCmd)

	// migrate
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQL schema for the mysql and postgres stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := catalogStore.(interface {
				Migrate(ctx context.Context) error
			})
			if !ok {
				return errors.New("migrate requires the mysql or postgres store")
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("migrated")
			return nil
		},
	}
	rootCmd.AddCommand(migrateCmd)
}

func printUnits(ctx context.Context, productID, output string) error {
	out, err := svc.Units(ctx, productID)
	if err != nil {
		return err
	}
	if output == "json" {
		printJSON(out)
		return nil
	}
	for _, c := range out {
		price := "-"
		if c.SellingPrice != nil {
			price = c.SellingPrice.StringFixed(2)
		}
		fmt.Printf("%s | %s | %s | %s | %s\n", c.UnitID, c.UnitName, c.ConversionFactor.String(), price, c.Barcode)
	}
	return nil
}

// parseComponents reads "<product-id>=<quantity>" pairs.
func parseComponents(raw []string) ([]domain.BundleComponent, error) {
	out := make([]domain.BundleComponent, 0, len(raw))
	for _, r := range raw {
		id, qty, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("component %q: want <product-id>=<quantity>", r)
		}
		q, err := decimal.NewFromString(strings.TrimSpace(qty))
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", r, err)
		}
		out = append(out, domain.BundleComponent{ProductID: strings.TrimSpace(id), QuantityPerBundle: q})
	}
	return out, nil
}

// parsePurchaseLines reads "<product-id>:<unit-id>:<quantity>:<unit-cost>".
func parsePurchaseLines(raw []string) ([]catalog.PurchaseItem, error) {
	out := make([]catalog.PurchaseItem, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("line %q: want <product-id>:<unit-id>:<quantity>:<unit-cost>", r)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("line %q: quantity: %w", r, err)
		}
		cost, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil {
			return nil, fmt.Errorf("line %q: unit cost: %w", r, err)
		}
		out = append(out, catalog.PurchaseItem{
			ProductID: strings.TrimSpace(parts[0]),
			UnitID:    strings.TrimSpace(parts[1]),
			Quantity:  qty,
			UnitCost:  cost,
		})
	}
	return out, nil
}
