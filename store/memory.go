// Package store provides storage implementations for the inventory catalog.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"inventory_manager/domain"
)

type conversionKey struct {
	productID string
	unitID    string
}

// InMemoryStore is a thread-safe in-memory domain.CatalogStore
type InMemoryStore struct {
	mu          sync.RWMutex
	products    map[string]domain.Product
	conversions map[conversionKey]domain.UnitConversion
	purchases   []domain.Purchase
}

// NewInMemoryStore constructs a new InMemoryStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products:    make(map[string]domain.Product),
		conversions: make(map[conversionKey]domain.UnitConversion),
	}
}

// compile-time assertion that InMemoryStore implements domain.CatalogStore
var _ domain.CatalogStore = (*InMemoryStore)(nil)

// cloneProduct detaches the components slice from the caller's copy.
func cloneProduct(p domain.Product) domain.Product {
	if p.Components != nil {
		p.Components = append([]domain.BundleComponent(nil), p.Components...)
	}
	p.IsLowOnStock = false
	return p
}

func (s *InMemoryStore) CreateProduct(ctx context.Context, product domain.Product) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := domain.ValidateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return domain.NewDuplicateProductError(product.ID)
	}
	s.products[product.ID] = cloneProduct(product)
	return nil
}

func (s *InMemoryStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	return cloneProduct(p), nil
}

func (s *InMemoryStore) UpdateProduct(ctx context.Context, id string, product domain.Product) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	product.ID = id
	if err := domain.ValidateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.NewProductNotFoundError(id)
	}
	s.products[id] = cloneProduct(product)
	return nil
}

// DeleteProduct removes the product and its unit conversions. Bundles that
// reference it keep the dangling id and derive zero stock.
func (s *InMemoryStore) DeleteProduct(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.NewProductNotFoundError(id)
	}
	delete(s.products, id)
	for k := range s.conversions {
		if k.productID == id {
			delete(s.conversions, k)
		}
	}
	return nil
}

func (s *InMemoryStore) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	byBarcode := make(map[string]bool)
	if search != "" {
		for k, c := range s.conversions {
			if c.Barcode != "" && strings.Contains(strings.ToLower(c.Barcode), search) {
				byBarcode[k.productID] = true
			}
		}
	}
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.BundlesOnly && !p.IsBundle {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.AlternateNames), search) &&
			!byBarcode[p.ID] {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sortProducts(out, filter)
	return out, nil
}

func sortProducts(out []domain.Product, filter domain.ListFilter) {
	desc := filter.Order == "desc"
	switch filter.SortBy {
	case "stock":
		sort.Slice(out, func(i, j int) bool {
			if out[i].Stock == out[j].Stock {
				return out[i].ID < out[j].ID
			}
			if desc {
				return out[i].Stock > out[j].Stock
			}
			return out[i].Stock < out[j].Stock
		})
	default:
		sort.Slice(out, func(i, j int) bool {
			if out[i].Name == out[j].Name {
				return out[i].ID < out[j].ID
			}
			if desc {
				return out[i].Name > out[j].Name
			}
			return out[i].Name < out[j].Name
		})
	}
}

// AdjustStock adds delta base units to a non-bundle product.
func (s *InMemoryStore) AdjustStock(ctx context.Context, id string, delta int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.NewProductNotFoundError(id)
	}
	if p.IsBundle {
		return domain.NewInvalidProductError("stock", "bundle stock is derived from its components", id)
	}
	if p.Stock+delta < 0 {
		return domain.NewInvalidProductError("stock", "must be non-negative", p.Stock+delta)
	}
	p.Stock += delta
	s.products[id] = p
	return nil
}

// SaveConversion inserts or replaces the conversion keyed by product and unit.
func (s *InMemoryStore) SaveConversion(ctx context.Context, conversion domain.UnitConversion) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := domain.ValidateConversion(conversion); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[conversion.ProductID]; !ok {
		return domain.NewProductNotFoundError(conversion.ProductID)
	}
	key := conversionKey{conversion.ProductID, conversion.UnitID}
	if conversion.Barcode != "" {
		for k, c := range s.conversions {
			if k != key && c.Barcode == conversion.Barcode {
				return domain.NewDuplicateBarcodeError(conversion.Barcode)
			}
		}
	}
	s.conversions[key] = conversion
	return nil
}

// DeleteConversion removes a unit from a product. The base unit is kept.
func (s *InMemoryStore) DeleteConversion(ctx context.Context, productID, unitID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversionKey{productID, unitID}
	c, ok := s.conversions[key]
	if !ok {
		return domain.NewConversionNotFoundError(productID, unitID)
	}
	if c.IsBaseUnit() {
		return domain.NewBaseUnitDeletionError(productID, unitID)
	}
	delete(s.conversions, key)
	return nil
}

func (s *InMemoryStore) LoadAllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.ListProducts(ctx, domain.ListFilter{})
}

func (s *InMemoryStore) LoadAllUnitConversions(ctx context.Context) ([]domain.UnitConversion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UnitConversion, 0, len(s.conversions))
	for _, c := range s.conversions {
		out = append(out, c)
	}
	sortConversions(out)
	return out, nil
}

func sortConversions(out []domain.UnitConversion) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		if c := out[i].ConversionFactor.Cmp(out[j].ConversionFactor); c != 0 {
			return c < 0
		}
		return out[i].UnitID < out[j].UnitID
	})
}

func (s *InMemoryStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const maxWorkers = 10
	if len(products) == 0 {
		return nil
	}

	type result struct {
		id  string
		err error
	}

	jobs := make(chan domain.Product)
	results := make(chan result, len(products))

	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-jobs:
				if !ok {
					return
				}
				if err := s.CreateProduct(ctx, p); err != nil {
					results <- result{id: p.ID, err: fmt.Errorf("id=%s: %w", p.ID, err)}
				} else {
					results <- result{id: p.ID, err: nil}
				}
			}
		}
	}

	nWorkers := maxWorkers
	if len(products) < nWorkers {
		nWorkers = len(products)
	}

	wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		go worker()
	}

	// feed jobs
	go func() {
		defer close(jobs)
		for _, p := range products {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	// collect results
	var collected error
	received := 0
	for received < len(products) {
		select {
		case <-ctx.Done():
			// wait for workers to stop then return context error
			wg.Wait()
			return ctx.Err()
		case res := <-results:
			received++
			if res.err != nil {
				if collected == nil {
					collected = res.err
				} else {
					collected = fmt.Errorf("%v; %w", collected, res.err)
				}
			}
		}
	}

	// all results received; wait for workers
	wg.Wait()
	return collected
}

// RecordPurchase adds every line to stock and keeps the purchase. No stock
// moves unless all lines apply.
func (s *InMemoryStore) RecordPurchase(ctx context.Context, purchase domain.Purchase) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := domain.ValidatePurchase(purchase); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.purchases {
		if existing.ID == purchase.ID {
			return domain.NewInvalidProductError("id", "purchase already recorded", purchase.ID)
		}
	}
	next := make(map[string]int, len(purchase.Lines))
	for _, l := range purchase.Lines {
		p, ok := s.products[l.ProductID]
		if !ok {
			return domain.NewProductNotFoundError(l.ProductID)
		}
		if p.IsBundle {
			return domain.NewInvalidProductError("stock", "bundle stock is derived from its components", p.ID)
		}
		cur, seen := next[p.ID]
		if !seen {
			cur = p.Stock
		}
		next[p.ID] = cur + l.BaseQuantity
	}
	for id, stock := range next {
		p := s.products[id]
		p.Stock = stock
		s.products[id] = p
	}
	s.purchases = append(s.purchases, clonePurchase(purchase))
	return nil
}

// ListPurchases returns recorded purchases, oldest first.
func (s *InMemoryStore) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Purchase, len(s.purchases))
	for i, p := range s.purchases {
		out[i] = clonePurchase(p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func clonePurchase(p domain.Purchase) domain.Purchase {
	p.Lines = append([]domain.PurchaseLine(nil), p.Lines...)
	return p
}

// memState is a detached copy of an InMemoryStore's contents.
type memState struct {
	products    map[string]domain.Product
	conversions map[conversionKey]domain.UnitConversion
	purchases   []domain.Purchase
}

func (s *InMemoryStore) snapshot() memState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := memState{
		products:    make(map[string]domain.Product, len(s.products)),
		conversions: make(map[conversionKey]domain.UnitConversion, len(s.conversions)),
		purchases:   make([]domain.Purchase, len(s.purchases)),
	}
	for id, p := range s.products {
		st.products[id] = cloneProduct(p)
	}
	for k, c := range s.conversions {
		st.conversions[k] = c
	}
	for i, p := range s.purchases {
		st.purchases[i] = clonePurchase(p)
	}
	return st
}

func (s *InMemoryStore) restore(st memState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = st.products
	s.conversions = st.conversions
	s.purchases = st.purchases
}
