package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"inventory_manager/catalog"
	"inventory_manager/domain"

	"github.com/spf13/cobra"
)

func init() {
	// create
	var name, altNames, baseUnit, barcode string
	var stockQty, warningLevel int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product with its base unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("name required")
			}
			costPrice, err := decimalFlag(cmd, "cost-price")
			if err != nil {
				return err
			}
			sellingPrice, err := decimalFlag(cmd, "selling-price")
			if err != nil {
				return err
			}
			p, err := svc.CreateProduct(cmd.Context(), catalog.ProductInput{
				Name:              name,
				AlternateNames:    altNames,
				CostPrice:         costPrice,
				Stock:             stockQty,
				WarningStockLevel: warningLevel,
				BaseUnitName:      baseUnit,
				SellingPrice:      sellingPrice,
				Barcode:           barcode,
			})
			if err != nil {
				return err
			}
			printJSON(p)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "name")
	createCmd.Flags().StringVar(&altNames, "alt-names", "", "alternate names used by search")
	createCmd.Flags().String("cost-price", "", "cost price per base unit")
	createCmd.Flags().IntVar(&stockQty, "stock", 0, "opening stock in base units")
	createCmd.Flags().IntVar(&warningLevel, "warning-level", 0, "low-stock level in base units")
	createCmd.Flags().StringVar(&baseUnit, "base-unit", catalog.DefaultBaseUnitName, "base unit name")
	createCmd.Flags().String("selling-price", "", "selling price of the base unit")
	createCmd.Flags().StringVar(&barcode, "barcode", "", "barcode of the base unit")
	rootCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get product by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := svc.GetProduct(cmd.Context(), args[0])
			if err != nil {
				if domain.IsProductNotFoundError(err) {
					fmt.Fprintln(os.Stderr, err)
					return nil
				}
				return err
			}
			printJSON(p)
			return nil
		},
	}
	rootCmd.AddCommand(getCmd)

	// update
	var uName, uAltNames, uWarningUnit string
	var uStock, uWarningLevel int
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch catalog.ProductPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &uName
			}
			if cmd.Flags().Changed("alt-names") {
				patch.AlternateNames = &uAltNames
			}
			if cmd.Flags().Changed("stock") {
				patch.Stock = &uStock
			}
			if cmd.Flags().Changed("warning-level") {
				patch.WarningStockLevel = &uWarningLevel
			}
			if cmd.Flags().Changed("warning-unit") {
				patch.WarningStockUnitID = &uWarningUnit
			}
			costPrice, err := decimalFlag(cmd, "cost-price")
			if err != nil {
				return err
			}
			patch.CostPrice = costPrice
			if cmd.Flags().Changed("component") {
				components, _ := cmd.Flags().GetStringArray("component")
				patch.Components, err = parseComponents(components)
				if err != nil {
					return err
				}
			}

			p, err := svc.UpdateProduct(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			printJSON(p)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&uName, "name", "", "name")
	updateCmd.Flags().StringVar(&uAltNames, "alt-names", "", "alternate names")
	updateCmd.Flags().String("cost-price", "", "cost price per base unit")
	updateCmd.Flags().IntVar(&uStock, "stock", 0, "stock in base units (not for bundles)")
	updateCmd.Flags().IntVar(&uWarningLevel, "warning-level", 0, "low-stock level")
	updateCmd.Flags().StringVar(&uWarningUnit, "warning-unit", "", "unit id the low-stock level is expressed in")
	updateCmd.Flags().StringArray("component", nil, "bundle component as <product-id>=<quantity>, repeatable")
	rootCmd.AddCommand(updateCmd)

	// list
	var lSearch, lSort, lOrder, lOutput string
	var lBundles bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := svc.ListProducts(cmd.Context(), domain.ListFilter{
				Search:      lSearch,
				BundlesOnly: lBundles,
				SortBy:      lSort,
				Order:       lOrder,
			})
			if err != nil {
				return err
			}
			if lOutput == "json" {
				printJSON(out)
				return nil
			}
			for _, p := range out {
				printProductRow(p)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&lSearch, "search", "", "match name, alternate names or barcode")
	listCmd.Flags().BoolVar(&lBundles, "bundles", false, "only bundles")
	listCmd.Flags().StringVar(&lSort, "sort-by", "", "sort field: name|stock")
	listCmd.Flags().StringVar(&lOrder, "order", "asc", "sort order")
	listCmd.Flags().StringVar(&lOutput, "output", "", "output format")
	rootCmd.AddCommand(listCmd)

	// delete
	var force bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Delete %s? (y/N): ", args[0])
				var resp string
				if _, err := fmt.Scanln(&resp); err != nil || (resp != "y" && resp != "Y") {
					fmt.Println("aborted")
					return nil
				}
			}
			if err := svc.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	rootCmd.AddCommand(deleteCmd)

	// duplicate
	duplicateCmd := &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy a product and its units with zero stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := svc.DuplicateProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(p)
			return nil
		},
	}
	rootCmd.AddCommand(duplicateCmd)

	// import: an exported catalog document, a JSON array, NDJSON or a single object
	var importFile string
	importCmd := &cobra.Command{
		Use:   "import --file <file>",
		Short: "Import products and their units from JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if importFile == "" {
				return errors.New("--file required")
			}
			b, err := os.ReadFile(importFile)
			if err != nil {
				return err
			}
			doc, err := decodeCatalog(b)
			if err != nil {
				return err
			}
			n, err := svc.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d products\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVar(&importFile, "file", "", "input file")
	rootCmd.AddCommand(importCmd)

	// export
	var exportFile, exportSearch string
	exportCmd := &cobra.Command{
		Use:   "export --file <file>",
		Short: "Export products and their units to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportFile == "" {
				return errors.New("--file required")
			}
			doc, err := svc.Export(cmd.Context(), domain.ListFilter{Search: exportSearch})
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(doc, "", "  ")
			return os.WriteFile(exportFile, b, 0o644)
		},
	}
	exportCmd.Flags().StringVar(&exportFile, "file", "", "output file")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "match name, alternate names or barcode")
	rootCmd.AddCommand(exportCmd)
}

// decodeCatalog reads an exported document ({"products": [...], "conversions": [...]})
// or, for product-only files, a JSON array, NDJSON or a single object.
func decodeCatalog(b []byte) (domain.CatalogDocument, error) {
	btrim := bytes.TrimSpace(b)
	if len(btrim) == 0 {
		return domain.CatalogDocument{}, errors.New("empty file")
	}

	if btrim[0] == '{' {
		var doc domain.CatalogDocument
		if err := json.Unmarshal(btrim, &doc); err == nil && doc.Products != nil {
			return doc, nil
		}
	}

	var products []domain.Product
	if btrim[0] == '[' {
		if err := json.Unmarshal(btrim, &products); err != nil {
			return domain.CatalogDocument{}, err
		}
		return domain.CatalogDocument{Products: products}, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(btrim))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(line, &p); err != nil {
			return domain.CatalogDocument{}, err
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return domain.CatalogDocument{}, err
	}
	return domain.CatalogDocument{Products: products}, nil
}

func printProductRow(p domain.Product) {
	kind := "item"
	if p.IsBundle {
		kind = "bundle"
	}
	low := ""
	if p.IsLowOnStock {
		low = "LOW"
	}
	fmt.Printf("%s | %s | %s | %d | %s\n", p.ID, p.Name, kind, p.Stock, low)
}
