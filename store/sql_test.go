package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"inventory_manager/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"product_id", "product_name", "alternate_names", "cost_price", "stock",
	"is_bundle", "warning_stock_level", "warning_stock_unit_id"}

func newMockStore(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(sqlx.NewDb(db, driver)), mock
}

func TestSQLStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	for _, table := range []string{"products", "product_links", "product_unit_conversions", "purchases", "purchase_details"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table + " (")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateProduct(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	bundle := domain.Product{ID: "kit", Name: "Kit", IsBundle: true,
		Components: []domain.BundleComponent{{ProductID: "soap", QuantityPerBundle: decimal.NewFromInt(2)}}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE product_id = ?")).
		WithArgs("kit").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (")).
		WithArgs("kit", "Kit", nil, nil, 0, true, 0, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_links")).
		WithArgs("kit", "soap", "2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.CreateProduct(context.Background(), bundle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateProductDuplicate(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE product_id = ?")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := s.CreateProduct(context.Background(), domain.Product{ID: "p1", Name: "P"})
	assert.True(t, domain.IsDuplicateProductError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateProductInvalidSkipsDatabase(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	err := s.CreateProduct(context.Background(), domain.Product{ID: "p1"})
	assert.True(t, domain.IsInvalidProductError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE product_id = ?")).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(productCols))

		_, err := s.GetProduct(ctx, "nope")
		assert.True(t, domain.IsProductNotFoundError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bundle with components", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE product_id = ?")).
			WithArgs("kit").
			WillReturnRows(sqlmock.NewRows(productCols).AddRow("kit", "Kit", nil, "12500.00", 0, true, 2, "pcs"))
		mock.ExpectQuery(regexp.QuoteMeta("FROM product_links WHERE bundle_product_id IN (?)")).
			WithArgs("kit").
			WillReturnRows(sqlmock.NewRows([]string{"bundle_product_id", "component_product_id", "quantity_per_bundle"}).
				AddRow("kit", "shampoo", "1.0000").
				AddRow("kit", "soap", "2.0000"))

		got, err := s.GetProduct(ctx, "kit")
		require.NoError(t, err)
		assert.True(t, got.IsBundle)
		require.NotNil(t, got.CostPrice)
		assert.True(t, got.CostPrice.Equal(decimal.NewFromInt(12500)))
		assert.Equal(t, "pcs", got.WarningStockUnitID)
		require.Len(t, got.Components, 2)
		assert.Equal(t, "soap", got.Components[1].ProductID)
		assert.True(t, got.Components[1].QuantityPerBundle.Equal(decimal.NewFromInt(2)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_ListProductsPostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE (LOWER(product_name) LIKE $1 OR LOWER(COALESCE(alternate_names, '')) LIKE $2 OR product_id IN (SELECT product_id FROM product_unit_conversions WHERE LOWER(barcode) LIKE $3)) ORDER BY stock DESC, product_id ASC")).
		WithArgs("%sabun%", "%sabun%", "%sabun%").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("a", "Lifebuoy", "sabun mandi", nil, 40, false, 0, nil).
			AddRow("b", "Nuvo", "sabun", nil, 10, false, 0, nil))

	out, err := s.ListProducts(context.Background(), domain.ListFilter{Search: " Sabun ", SortBy: "stock", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "sabun mandi", out[0].AlternateNames)
	assert.Nil(t, out[1].CostPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_AdjustStock(t *testing.T) {
	ctx := context.Background()
	stockCols := []string{"stock", "is_bundle"}

	t.Run("applies delta", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT stock, is_bundle FROM products WHERE product_id = ?")).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows(stockCols).AddRow(5, false))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + ? WHERE product_id = ?")).
			WithArgs(24, "p1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.AdjustStock(ctx, "p1", 24))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects bundle", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT stock, is_bundle FROM products")).
			WithArgs("kit").
			WillReturnRows(sqlmock.NewRows(stockCols).AddRow(0, true))
		mock.ExpectRollback()

		assert.True(t, domain.IsInvalidProductError(s.AdjustStock(ctx, "kit", 1)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects negative result", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT stock, is_bundle FROM products")).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows(stockCols).AddRow(2, false))
		mock.ExpectRollback()

		assert.True(t, domain.IsInvalidProductError(s.AdjustStock(ctx, "p1", -3)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_DeleteProductNotFound(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE product_id = ?")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.True(t, domain.IsProductNotFoundError(s.DeleteProduct(context.Background(), "gone")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveConversion(t *testing.T) {
	ctx := context.Background()
	box := unit("soap", "box", "Box", "12")
	box.Barcode = "8991234"

	t.Run("inserts new unit", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE product_id = ?")).
			WithArgs("soap").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE barcode = ? AND NOT (product_id = ? AND unit_id = ?)")).
			WithArgs("8991234", "soap", "box").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM product_unit_conversions WHERE product_id = ? AND unit_id = ?")).
			WithArgs("soap", "box").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_unit_conversions")).
			WithArgs("soap", "box", "Box", "12", nil, nil, "8991234", false).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, s.SaveConversion(ctx, box))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate barcode", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE product_id = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE barcode = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		assert.True(t, domain.IsDuplicateBarcodeError(s.SaveConversion(ctx, box)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_DeleteConversion(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT conversion_factor FROM product_unit_conversions WHERE product_id = ? AND unit_id = ?")

	t.Run("base unit", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(query).WithArgs("soap", "pcs").
			WillReturnRows(sqlmock.NewRows([]string{"conversion_factor"}).AddRow("1.0000"))
		mock.ExpectRollback()

		assert.True(t, domain.IsBaseUnitDeletionError(s.DeleteConversion(ctx, "soap", "pcs")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(query).WithArgs("soap", "crate").
			WillReturnRows(sqlmock.NewRows([]string{"conversion_factor"}))
		mock.ExpectRollback()

		assert.True(t, domain.IsConversionNotFoundError(s.DeleteConversion(ctx, "soap", "crate")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes larger unit", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(query).WithArgs("soap", "box").
			WillReturnRows(sqlmock.NewRows([]string{"conversion_factor"}).AddRow("12.0000"))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM product_unit_conversions WHERE product_id = ? AND unit_id = ?")).
			WithArgs("soap", "box").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.DeleteConversion(ctx, "soap", "box"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_LoadAllUnitConversions(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	mock.ExpectQuery(regexp.QuoteMeta("FROM product_unit_conversions ORDER BY product_id, conversion_factor, unit_id")).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "unit_id", "unit_name", "conversion_factor",
			"selling_price", "cost_price", "barcode", "is_stock_only"}).
			AddRow("soap", "pcs", "Pcs", "1.0000", "3500.00", nil, nil, false).
			AddRow("soap", "box", "Box", "12.0000", nil, "36000.00", "8991234", true))

	out, err := s.LoadAllUnitConversions(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsBaseUnit())
	require.NotNil(t, out[0].SellingPrice)
	assert.True(t, out[0].SellingPrice.Equal(decimal.NewFromInt(3500)))
	assert.Empty(t, out[0].Barcode)
	assert.Nil(t, out[1].SellingPrice)
	assert.Equal(t, "8991234", out[1].Barcode)
	assert.True(t, out[1].IsStockOnly)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_BulkImport(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects before writing", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		err := s.BulkImport(ctx, []domain.Product{
			{ID: "a", Name: "A"},
			{ID: "a", Name: "A"},
			{ID: "b", Name: ""},
		})
		require.Error(t, err)
		assert.True(t, domain.IsDuplicateProductError(err))
		assert.True(t, domain.IsInvalidProductError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("single transaction", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		for _, id := range []string{"a", "b"} {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE product_id = ?")).
				WithArgs(id).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (")).
				WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()

		require.NoError(t, s.BulkImport(ctx, []domain.Product{{ID: "a", Name: "A"}, {ID: "b", Name: "B", Stock: 4}}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_RecordPurchase(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := domain.Purchase{ID: "po-1", Supplier: "PT Sumber", Date: date, Total: decimal.NewFromInt(60000),
		Lines: []domain.PurchaseLine{{ProductID: "soap", UnitID: "box", Quantity: 2, BaseQuantity: 24,
			UnitCost: decimal.NewFromInt(30000), Subtotal: decimal.NewFromInt(60000)}}}

	t.Run("one transaction", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM purchases WHERE purchase_id = ?")).
			WithArgs("po-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
			WithArgs("po-1", date, "PT Sumber", "60000").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_bundle FROM products WHERE product_id = ?")).
			WithArgs("soap").
			WillReturnRows(sqlmock.NewRows([]string{"is_bundle"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchase_details")).
			WithArgs("po-1", 1, "soap", "box", 2, 24, "30000", "60000").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + ? WHERE product_id = ?")).
			WithArgs(24, "soap").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.RecordPurchase(ctx, p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on a bundle line", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM purchases")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_bundle FROM products")).
			WillReturnRows(sqlmock.NewRows([]string{"is_bundle"}).AddRow(true))
		mock.ExpectRollback()

		assert.True(t, domain.IsInvalidProductError(s.RecordPurchase(ctx, p)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the stock update fails", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM purchases")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_bundle FROM products")).
			WillReturnRows(sqlmock.NewRows([]string{"is_bundle"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchase_details")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock")).
			WillReturnError(errors.New("lock wait timeout"))
		mock.ExpectRollback()

		assert.ErrorContains(t, s.RecordPurchase(ctx, p), "lock wait timeout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid purchase skips the database", func(t *testing.T) {
		s, mock := newMockStore(t, "mysql")
		assert.True(t, domain.IsInvalidProductError(s.RecordPurchase(ctx, domain.Purchase{ID: "po-2"})))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_ListPurchases(t *testing.T) {
	s, mock := newMockStore(t, "postgres")
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases ORDER BY purchase_date, purchase_id")).
		WillReturnRows(sqlmock.NewRows([]string{"purchase_id", "purchase_date", "supplier_name", "total_amount"}).
			AddRow("po-1", date, "PT Sumber", "67800").
			AddRow("po-2", date, nil, "100"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM purchase_details ORDER BY purchase_id, line_no")).
		WillReturnRows(sqlmock.NewRows([]string{"purchase_id", "line_no", "product_id", "unit_id", "quantity",
			"base_quantity", "unit_cost", "subtotal"}).
			AddRow("po-1", 1, "soap", "box", 2, 24, "30000", "60000").
			AddRow("po-1", 2, "soap", "pcs", 3, 3, "2600", "7800").
			AddRow("po-2", 1, "towel", "pcs", 1, 1, "100", "100"))

	out, err := s.ListPurchases(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "PT Sumber", out[0].Supplier)
	require.Len(t, out[0].Lines, 2)
	assert.Equal(t, 24, out[0].Lines[0].BaseQuantity)
	assert.True(t, out[0].Total.Equal(decimal.NewFromInt(67800)))
	assert.Empty(t, out[1].Supplier)
	require.Len(t, out[1].Lines, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
