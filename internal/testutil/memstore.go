// Package testutil fournit des doubles de test partagés entre packages.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/store"
)

// MemStore est un store.Store en mémoire, sûr en concurrence.
//
// Il reproduit les contraintes de ScyllaStore (unicité du code, validation, upsert de panier)
// sans cluster. Fail, s'il est défini, est renvoyé par toutes les opérations.
type MemStore struct {
	mu       sync.Mutex
	carts    map[string]models.Cart
	products map[string]models.Product
	clock    time.Time

	Fail error
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		carts:    map[string]models.Cart{},
		products: map[string]models.Product{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick avance une horloge logique pour garder un ordre d'insertion déterministe.
func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func copyCart(c models.Cart) models.Cart {
	c.Products = append([]models.CartLine{}, c.Products...)
	return c
}

func copyProduct(p models.Product) models.Product {
	p.Thumbnails = append([]string{}, p.Thumbnails...)
	return p
}

func (m *MemStore) FindCart(_ context.Context, id string) (models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return models.Cart{}, m.Fail
	}
	c, ok := m.carts[id]
	if !ok {
		return models.Cart{}, store.ErrNotFound
	}
	return copyCart(c), nil
}

func (m *MemStore) CreateCart(_ context.Context, cart models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.carts[cart.ID] = copyCart(cart)
	return nil
}

func (m *MemStore) SaveCart(_ context.Context, cart models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	existing := m.carts[cart.ID]
	existing.ID = cart.ID
	existing.Products = append([]models.CartLine{}, cart.Products...)
	existing.UpdatedAt = cart.UpdatedAt
	m.carts[cart.ID] = existing
	return nil
}

func (m *MemStore) DeleteCart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.carts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.carts, id)
	return nil
}

func (m *MemStore) ProductExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	_, ok := m.products[id]
	return ok, nil
}

func (m *MemStore) FindProduct(_ context.Context, id string) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return models.Product{}, m.Fail
	}
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return copyProduct(p), nil
}

func (m *MemStore) FindProducts(_ context.Context, ids []string) (map[string]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make(map[string]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (m *MemStore) ListProducts(_ context.Context, q store.ProductQuery) (models.ProductPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return models.ProductPage{}, m.Fail
	}
	all := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, copyProduct(p))
	}
	return store.Paginate(all, q), nil
}

func (m *MemStore) codeTaken(code, except string) bool {
	for id, p := range m.products {
		if id != except && p.Code == code {
			return true
		}
	}
	return false
}

func (m *MemStore) CreateProduct(_ context.Context, p models.Product) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return models.Product{}, m.Fail
	}
	p, err := store.NormalizeProduct(p)
	if err != nil {
		return models.Product{}, err
	}
	if m.codeTaken(p.Code, "") {
		return models.Product{}, fmt.Errorf("%w: %q", store.ErrDuplicateCode, p.Code)
	}
	p.ID = uuid.NewString()
	now := m.tick()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.products[p.ID] = copyProduct(p)
	return p, nil
}

func (m *MemStore) UpdateProduct(_ context.Context, id string, upd models.ProductUpdate) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return models.Product{}, m.Fail
	}
	current, ok := m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	next, err := store.NormalizeProduct(store.ApplyUpdate(copyProduct(current), upd))
	if err != nil {
		return models.Product{}, err
	}
	if m.codeTaken(next.Code, id) {
		return models.Product{}, fmt.Errorf("%w: %q", store.ErrDuplicateCode, next.Code)
	}
	next.UpdatedAt = m.tick()
	m.products[id] = copyProduct(next)
	return next, nil
}

func (m *MemStore) DeleteProduct(_ context.Context, id string) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return models.Product{}, m.Fail
	}
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	delete(m.products, id)
	return p, nil
}

// SeedProduct insère un produit valide et renvoie son id.
func (m *MemStore) SeedProduct(title string, price float64) string {
	p, err := m.CreateProduct(context.Background(), models.Product{
		Title:       title,
		Description: title,
		Code:        "CODE-" + uuid.NewString()[:8],
		Price:       price,
		Stock:       10,
		Status:      true,
		Category:    "general",
	})
	if err != nil {
		panic(err)
	}
	return p.ID
}
