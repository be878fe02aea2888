package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"inventory_manager/domain"
)

// FileStore is a JSON file-backed domain.CatalogStore. Reads are served from
// memory; every successful write rewrites the file.
type FileStore struct {
	mu   sync.Mutex // serialises write+save
	mem  *InMemoryStore
	path string
}

// compile-time assertion
var _ domain.CatalogStore = (*FileStore)(nil)

// NewFileStore constructs a FileStore at the given path. If the file exists it will be loaded.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		mem:  NewInMemoryStore(),
		path: path,
	}
	if err := s.loadFromFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) loadFromFile() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// no file yet; that's fine
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	var doc domain.CatalogDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	for _, p := range doc.Products {
		s.mem.products[p.ID] = cloneProduct(p)
	}
	for _, c := range doc.Conversions {
		s.mem.conversions[conversionKey{c.ProductID, c.UnitID}] = c
	}
	for _, p := range doc.Purchases {
		s.mem.purchases = append(s.mem.purchases, clonePurchase(p))
	}
	return nil
}

func (s *FileStore) saveToFile(ctx context.Context) error {
	products, err := s.mem.LoadAllProducts(ctx)
	if err != nil {
		return err
	}
	conversions, err := s.mem.LoadAllUnitConversions(ctx)
	if err != nil {
		return err
	}
	purchases, err := s.mem.ListPurchases(ctx)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	doc := domain.CatalogDocument{Products: products, Conversions: conversions, Purchases: purchases}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// write applies fn to the in-memory state and persists on success. When the
// file cannot be written the in-memory state is put back, so memory never
// holds changes the file does not.
func (s *FileStore) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.mem.snapshot()
	if err := fn(); err != nil {
		return err
	}
	if err := s.saveToFile(context.WithoutCancel(ctx)); err != nil {
		s.mem.restore(before)
		return err
	}
	return nil
}

func (s *FileStore) CreateProduct(ctx context.Context, product domain.Product) error {
	return s.write(ctx, func() error { return s.mem.CreateProduct(ctx, product) })
}

func (s *FileStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.mem.GetProduct(ctx, id)
}

func (s *FileStore) UpdateProduct(ctx context.Context, id string, product domain.Product) error {
	return s.write(ctx, func() error { return s.mem.UpdateProduct(ctx, id, product) })
}

func (s *FileStore) DeleteProduct(ctx context.Context, id string) error {
	return s.write(ctx, func() error { return s.mem.DeleteProduct(ctx, id) })
}

func (s *FileStore) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	return s.mem.ListProducts(ctx, filter)
}

func (s *FileStore) AdjustStock(ctx context.Context, id string, delta int) error {
	return s.write(ctx, func() error { return s.mem.AdjustStock(ctx, id, delta) })
}

func (s *FileStore) SaveConversion(ctx context.Context, conversion domain.UnitConversion) error {
	return s.write(ctx, func() error { return s.mem.SaveConversion(ctx, conversion) })
}

func (s *FileStore) DeleteConversion(ctx context.Context, productID, unitID string) error {
	return s.write(ctx, func() error { return s.mem.DeleteConversion(ctx, productID, unitID) })
}

func (s *FileStore) LoadAllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.mem.LoadAllProducts(ctx)
}

func (s *FileStore) LoadAllUnitConversions(ctx context.Context) ([]domain.UnitConversion, error) {
	return s.mem.LoadAllUnitConversions(ctx)
}

func (s *FileStore) RecordPurchase(ctx context.Context, purchase domain.Purchase) error {
	return s.write(ctx, func() error { return s.mem.RecordPurchase(ctx, purchase) })
}

func (s *FileStore) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.mem.ListPurchases(ctx)
}

// BulkImport creates every valid product and saves once. Errors for the
// rejected ones are aggregated; accepted products are still persisted. If the
// save fails nothing is kept.
func (s *FileStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mem.snapshot()
	importErr := s.mem.BulkImport(ctx, products)
	if err := s.saveToFile(context.WithoutCancel(ctx)); err != nil {
		s.mem.restore(before)
		if importErr == nil {
			return err
		}
		return errors.Join(importErr, err)
	}
	return importErr
}
