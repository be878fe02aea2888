package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory_manager/domain"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// schema is portable between MySQL and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id VARCHAR(36) PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL,
		alternate_names VARCHAR(1024) NULL,
		cost_price DECIMAL(18,2) NULL,
		stock INT NOT NULL DEFAULT 0,
		is_bundle BOOLEAN NOT NULL DEFAULT FALSE,
		warning_stock_level INT NOT NULL DEFAULT 0,
		warning_stock_unit_id VARCHAR(64) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_links (
		bundle_product_id VARCHAR(36) NOT NULL,
		component_product_id VARCHAR(36) NOT NULL,
		quantity_per_bundle DECIMAL(18,4) NOT NULL,
		PRIMARY KEY (bundle_product_id, component_product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_unit_conversions (
		product_id VARCHAR(36) NOT NULL,
		unit_id VARCHAR(64) NOT NULL,
		unit_name VARCHAR(100) NOT NULL,
		conversion_factor DECIMAL(18,4) NOT NULL,
		selling_price DECIMAL(18,2) NULL,
		cost_price DECIMAL(18,2) NULL,
		barcode VARCHAR(64) NULL UNIQUE,
		is_stock_only BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (product_id, unit_id)
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		purchase_id VARCHAR(36) PRIMARY KEY,
		purchase_date TIMESTAMP NOT NULL,
		supplier_name VARCHAR(255) NULL,
		total_amount DECIMAL(18,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_details (
		purchase_id VARCHAR(36) NOT NULL,
		line_no INT NOT NULL,
		product_id VARCHAR(36) NOT NULL,
		unit_id VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		base_quantity INT NOT NULL,
		unit_cost DECIMAL(18,2) NOT NULL,
		subtotal DECIMAL(18,2) NOT NULL,
		PRIMARY KEY (purchase_id, line_no)
	)`,
}

const productColumns = `product_id, product_name, alternate_names, cost_price, stock, is_bundle, warning_stock_level, warning_stock_unit_id`

const conversionColumns = `product_id, unit_id, unit_name, conversion_factor, selling_price, cost_price, barcode, is_stock_only`

type productRow struct {
	ID                 string              `db:"product_id"`
	Name               string              `db:"product_name"`
	AlternateNames     sql.NullString      `db:"alternate_names"`
	CostPrice          decimal.NullDecimal `db:"cost_price"`
	Stock              int                 `db:"stock"`
	IsBundle           bool                `db:"is_bundle"`
	WarningStockLevel  int                 `db:"warning_stock_level"`
	WarningStockUnitID sql.NullString      `db:"warning_stock_unit_id"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:                 r.ID,
		Name:               r.Name,
		AlternateNames:     r.AlternateNames.String,
		CostPrice:          fromNullDecimal(r.CostPrice),
		Stock:              r.Stock,
		IsBundle:           r.IsBundle,
		WarningStockLevel:  r.WarningStockLevel,
		WarningStockUnitID: r.WarningStockUnitID.String,
	}
}

type linkRow struct {
	BundleID          string          `db:"bundle_product_id"`
	ComponentID       string          `db:"component_product_id"`
	QuantityPerBundle decimal.Decimal `db:"quantity_per_bundle"`
}

type conversionRow struct {
	ProductID        string              `db:"product_id"`
	UnitID           string              `db:"unit_id"`
	UnitName         string              `db:"unit_name"`
	ConversionFactor decimal.Decimal     `db:"conversion_factor"`
	SellingPrice     decimal.NullDecimal `db:"selling_price"`
	CostPrice        decimal.NullDecimal `db:"cost_price"`
	Barcode          sql.NullString      `db:"barcode"`
	IsStockOnly      bool                `db:"is_stock_only"`
}

func (r conversionRow) toDomain() domain.UnitConversion {
	return domain.UnitConversion{
		ProductID:        r.ProductID,
		UnitID:           r.UnitID,
		UnitName:         r.UnitName,
		ConversionFactor: r.ConversionFactor,
		SellingPrice:     fromNullDecimal(r.SellingPrice),
		CostPrice:        fromNullDecimal(r.CostPrice),
		Barcode:          r.Barcode.String,
		IsStockOnly:      r.IsStockOnly,
	}
}

type purchaseRow struct {
	ID       string          `db:"purchase_id"`
	Date     time.Time       `db:"purchase_date"`
	Supplier sql.NullString  `db:"supplier_name"`
	Total    decimal.Decimal `db:"total_amount"`
}

type purchaseDetailRow struct {
	PurchaseID   string          `db:"purchase_id"`
	LineNo       int             `db:"line_no"`
	ProductID    string          `db:"product_id"`
	UnitID       string          `db:"unit_id"`
	Quantity     int             `db:"quantity"`
	BaseQuantity int             `db:"base_quantity"`
	UnitCost     decimal.Decimal `db:"unit_cost"`
	Subtotal     decimal.Decimal `db:"subtotal"`
}

func fromNullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SQLStore is a domain.CatalogStore backed by MySQL or PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

// compile-time assertion
var _ domain.CatalogStore = (*SQLStore)(nil)

// NewSQLStore wraps an open connection. Queries are written with '?'
// placeholders and rebound for the connection's driver.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLStore connects with driver ("mysql" or "postgres") and dsn. MySQL
// DSNs need parseTime=true for purchase dates.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSQLStore(db), nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog tables when they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) q(query string) string {
	return s.db.Rebind(query)
}

// transaction runs fn in a transaction, rolling back on error.
func (s *SQLStore) transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) productExists(ctx context.Context, q sqlx.QueryerContext, id string) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, s.q(`SELECT COUNT(*) FROM products WHERE product_id = ?`), id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) insertProduct(ctx context.Context, tx *sqlx.Tx, p domain.Product) error {
	exists, err := s.productExists(ctx, tx, p.ID)
	if err != nil {
		return err
	}
	if exists {
		return domain.NewDuplicateProductError(p.ID)
	}
	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Name, nullString(p.AlternateNames), toNullDecimal(p.CostPrice), p.Stock, p.IsBundle,
		p.WarningStockLevel, nullString(p.WarningStockUnitID))
	if err != nil {
		return fmt.Errorf("insert product %s: %w", p.ID, err)
	}
	return s.insertLinks(ctx, tx, p)
}

func (s *SQLStore) insertLinks(ctx context.Context, tx *sqlx.Tx, p domain.Product) error {
	for _, c := range p.Components {
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO product_links (bundle_product_id, component_product_id, quantity_per_bundle) VALUES (?, ?, ?)`),
			p.ID, c.ProductID, c.QuantityPerBundle)
		if err != nil {
			return fmt.Errorf("insert component %s of %s: %w", c.ProductID, p.ID, err)
		}
	}
	return nil
}

func (s *SQLStore) CreateProduct(ctx context.Context, product domain.Product) error {
	if err := domain.ValidateProduct(product); err != nil {
		return err
	}
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		return s.insertProduct(ctx, tx, product)
	})
}

func (s *SQLStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+productColumns+` FROM products WHERE product_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	products := []domain.Product{row.toDomain()}
	if row.IsBundle {
		if err := s.attachComponents(ctx, products); err != nil {
			return domain.Product{}, err
		}
	}
	return products[0], nil
}

func (s *SQLStore) UpdateProduct(ctx context.Context, id string, product domain.Product) error {
	product.ID = id
	if err := domain.ValidateProduct(product); err != nil {
		return err
	}
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		exists, err := s.productExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NewProductNotFoundError(id)
		}
		_, err = tx.ExecContext(ctx, s.q(`UPDATE products SET product_name = ?, alternate_names = ?, cost_price = ?,
			stock = ?, is_bundle = ?, warning_stock_level = ?, warning_stock_unit_id = ? WHERE product_id = ?`),
			product.Name, nullString(product.AlternateNames), toNullDecimal(product.CostPrice), product.Stock,
			product.IsBundle, product.WarningStockLevel, nullString(product.WarningStockUnitID), id)
		if err != nil {
			return fmt.Errorf("update product %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM product_links WHERE bundle_product_id = ?`), id); err != nil {
			return fmt.Errorf("clear components of %s: %w", id, err)
		}
		return s.insertLinks(ctx, tx, product)
	})
}

func (s *SQLStore) DeleteProduct(ctx context.Context, id string) error {
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM products WHERE product_id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete product %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.NewProductNotFoundError(id)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM product_unit_conversions WHERE product_id = ?`), id); err != nil {
			return fmt.Errorf("delete conversions of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM product_links WHERE bundle_product_id = ?`), id); err != nil {
			return fmt.Errorf("delete components of %s: %w", id, err)
		}
		return nil
	})
}

func (s *SQLStore) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	var where []string
	var args []interface{}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		where = append(where, `(LOWER(product_name) LIKE ? OR LOWER(COALESCE(alternate_names, '')) LIKE ? OR product_id IN (SELECT product_id FROM product_unit_conversions WHERE LOWER(barcode) LIKE ?))`)
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if filter.BundlesOnly {
		where = append(where, `is_bundle = ?`)
		args = append(args, true)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	column := "product_name"
	if filter.SortBy == "stock" {
		column = "stock"
	}
	order := "ASC"
	if filter.Order == "desc" {
		order = "DESC"
	}
	query += fmt.Sprintf(` ORDER BY %s %s, product_id ASC`, column, order)

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]domain.Product, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	if err := s.attachComponents(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachComponents loads product_links for the bundles in products.
func (s *SQLStore) attachComponents(ctx context.Context, products []domain.Product) error {
	var ids []string
	pos := make(map[string]int)
	for i, p := range products {
		if p.IsBundle {
			ids = append(ids, p.ID)
			pos[p.ID] = i
		}
	}
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`SELECT bundle_product_id, component_product_id, quantity_per_bundle
		FROM product_links WHERE bundle_product_id IN (?) ORDER BY bundle_product_id, component_product_id`, ids)
	if err != nil {
		return err
	}
	var links []linkRow
	if err := s.db.SelectContext(ctx, &links, s.q(query), args...); err != nil {
		return fmt.Errorf("load components: %w", err)
	}
	for _, l := range links {
		i := pos[l.BundleID]
		products[i].Components = append(products[i].Components, domain.BundleComponent{
			ProductID:         l.ComponentID,
			QuantityPerBundle: l.QuantityPerBundle,
		})
	}
	return nil
}

// AdjustStock adds delta base units to a non-bundle product.
func (s *SQLStore) AdjustStock(ctx context.Context, id string, delta int) error {
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		var cur struct {
			Stock    int  `db:"stock"`
			IsBundle bool `db:"is_bundle"`
		}
		err := tx.GetContext(ctx, &cur, s.q(`SELECT stock, is_bundle FROM products WHERE product_id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewProductNotFoundError(id)
		}
		if err != nil {
			return fmt.Errorf("read stock of %s: %w", id, err)
		}
		if cur.IsBundle {
			return domain.NewInvalidProductError("stock", "bundle stock is derived from its components", id)
		}
		if cur.Stock+delta < 0 {
			return domain.NewInvalidProductError("stock", "must be non-negative", cur.Stock+delta)
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE products SET stock = stock + ? WHERE product_id = ?`), delta, id); err != nil {
			return fmt.Errorf("adjust stock of %s: %w", id, err)
		}
		return nil
	})
}

// SaveConversion updates the (product, unit) row or inserts it.
func (s *SQLStore) SaveConversion(ctx context.Context, c domain.UnitConversion) error {
	if err := domain.ValidateConversion(c); err != nil {
		return err
	}
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		exists, err := s.productExists(ctx, tx, c.ProductID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NewProductNotFoundError(c.ProductID)
		}
		if c.Barcode != "" {
			var taken int
			err := tx.GetContext(ctx, &taken, s.q(`SELECT COUNT(*) FROM product_unit_conversions
				WHERE barcode = ? AND NOT (product_id = ? AND unit_id = ?)`), c.Barcode, c.ProductID, c.UnitID)
			if err != nil {
				return fmt.Errorf("check barcode: %w", err)
			}
			if taken > 0 {
				return domain.NewDuplicateBarcodeError(c.Barcode)
			}
		}

		var n int
		err = tx.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM product_unit_conversions WHERE product_id = ? AND unit_id = ?`),
			c.ProductID, c.UnitID)
		if err != nil {
			return fmt.Errorf("check conversion: %w", err)
		}
		if n > 0 {
			_, err = tx.ExecContext(ctx, s.q(`UPDATE product_unit_conversions SET unit_name = ?, conversion_factor = ?,
				selling_price = ?, cost_price = ?, barcode = ?, is_stock_only = ? WHERE product_id = ? AND unit_id = ?`),
				c.UnitName, c.ConversionFactor, toNullDecimal(c.SellingPrice), toNullDecimal(c.CostPrice),
				nullString(c.Barcode), c.IsStockOnly, c.ProductID, c.UnitID)
		} else {
			_, err = tx.ExecContext(ctx, s.q(`INSERT INTO product_unit_conversions (`+conversionColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				c.ProductID, c.UnitID, c.UnitName, c.ConversionFactor, toNullDecimal(c.SellingPrice),
				toNullDecimal(c.CostPrice), nullString(c.Barcode), c.IsStockOnly)
		}
		if err != nil {
			return fmt.Errorf("save conversion %s/%s: %w", c.ProductID, c.UnitID, err)
		}
		return nil
	})
}

// DeleteConversion removes a unit from a product. The base unit is kept.
func (s *SQLStore) DeleteConversion(ctx context.Context, productID, unitID string) error {
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		var factor decimal.Decimal
		err := tx.GetContext(ctx, &factor, s.q(`SELECT conversion_factor FROM product_unit_conversions
			WHERE product_id = ? AND unit_id = ?`), productID, unitID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewConversionNotFoundError(productID, unitID)
		}
		if err != nil {
			return fmt.Errorf("read conversion %s/%s: %w", productID, unitID, err)
		}
		if factor.Equal(decimal.NewFromInt(1)) {
			return domain.NewBaseUnitDeletionError(productID, unitID)
		}
		_, err = tx.ExecContext(ctx, s.q(`DELETE FROM product_unit_conversions WHERE product_id = ? AND unit_id = ?`),
			productID, unitID)
		if err != nil {
			return fmt.Errorf("delete conversion %s/%s: %w", productID, unitID, err)
		}
		return nil
	})
}

func (s *SQLStore) LoadAllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.ListProducts(ctx, domain.ListFilter{})
}

func (s *SQLStore) LoadAllUnitConversions(ctx context.Context) ([]domain.UnitConversion, error) {
	var rows []conversionRow
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT `+conversionColumns+` FROM product_unit_conversions
		ORDER BY product_id, conversion_factor, unit_id`))
	if err != nil {
		return nil, fmt.Errorf("load conversions: %w", err)
	}
	out := make([]domain.UnitConversion, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// BulkImport validates every product first and inserts them in a single
// transaction; nothing is written if any product is rejected.
func (s *SQLStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	var errs []error
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if err := domain.ValidateProduct(p); err != nil {
			errs = append(errs, fmt.Errorf("id=%s: %w", p.ID, err))
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("id=%s: %w", p.ID, domain.NewDuplicateProductError(p.ID)))
		}
		seen[p.ID] = struct{}{}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.insertProduct(ctx, tx, p); err != nil {
				return fmt.Errorf("id=%s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// RecordPurchase inserts the purchase and its lines and adds the stock in one
// transaction.
func (s *SQLStore) RecordPurchase(ctx context.Context, p domain.Purchase) error {
	if err := domain.ValidatePurchase(p); err != nil {
		return err
	}
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM purchases WHERE purchase_id = ?`), p.ID); err != nil {
			return fmt.Errorf("check purchase: %w", err)
		}
		if n > 0 {
			return domain.NewInvalidProductError("id", "purchase already recorded", p.ID)
		}
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO purchases (purchase_id, purchase_date, supplier_name, total_amount) VALUES (?, ?, ?, ?)`),
			p.ID, p.Date, nullString(p.Supplier), p.Total)
		if err != nil {
			return fmt.Errorf("insert purchase %s: %w", p.ID, err)
		}
		for i, l := range p.Lines {
			var isBundle bool
			err := tx.GetContext(ctx, &isBundle, s.q(`SELECT is_bundle FROM products WHERE product_id = ?`), l.ProductID)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NewProductNotFoundError(l.ProductID)
			}
			if err != nil {
				return fmt.Errorf("read product %s: %w", l.ProductID, err)
			}
			if isBundle {
				return domain.NewInvalidProductError("stock", "bundle stock is derived from its components", l.ProductID)
			}
			_, err = tx.ExecContext(ctx, s.q(`INSERT INTO purchase_details (purchase_id, line_no, product_id, unit_id,
				quantity, base_quantity, unit_cost, subtotal) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				p.ID, i+1, l.ProductID, l.UnitID, l.Quantity, l.BaseQuantity, l.UnitCost, l.Subtotal)
			if err != nil {
				return fmt.Errorf("insert purchase line %d: %w", i+1, err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE products SET stock = stock + ? WHERE product_id = ?`),
				l.BaseQuantity, l.ProductID); err != nil {
				return fmt.Errorf("adjust stock of %s: %w", l.ProductID, err)
			}
		}
		return nil
	})
}

// ListPurchases returns recorded purchases with their lines, oldest first.
func (s *SQLStore) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	var rows []purchaseRow
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT purchase_id, purchase_date, supplier_name, total_amount
		FROM purchases ORDER BY purchase_date, purchase_id`))
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var details []purchaseDetailRow
	err = s.db.SelectContext(ctx, &details, s.q(`SELECT purchase_id, line_no, product_id, unit_id, quantity,
		base_quantity, unit_cost, subtotal FROM purchase_details ORDER BY purchase_id, line_no`))
	if err != nil {
		return nil, fmt.Errorf("list purchase lines: %w", err)
	}

	out := make([]domain.Purchase, len(rows))
	pos := make(map[string]int, len(rows))
	for i, r := range rows {
		out[i] = domain.Purchase{ID: r.ID, Date: r.Date, Supplier: r.Supplier.String, Total: r.Total}
		pos[r.ID] = i
	}
	for _, d := range details {
		i, ok := pos[d.PurchaseID]
		if !ok {
			continue
		}
		out[i].Lines = append(out[i].Lines, domain.PurchaseLine{
			ProductID:    d.ProductID,
			UnitID:       d.UnitID,
			Quantity:     d.Quantity,
			BaseQuantity: d.BaseQuantity,
			UnitCost:     d.UnitCost,
			Subtotal:     d.Subtotal,
		})
	}
	return out, nil
}
