package viewer

import (
	"context"
	"errors"
	"sync"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/realtime"
)

// CartState est ce que l'écran affiche d'un panier.
type CartState struct {
	Cart    models.CartView
	Loaded  bool
	Deleted bool
	// LastError est le message de la dernière mutation refusée ; l'état affiché n'a pas changé.
	LastError string
}

// CartView suit un panier. L'état local est toujours remplacé en entier (snapshot), jamais fusionné.
type CartView struct {
	api *API
	cid string

	mu       sync.Mutex
	state    CartState
	push     bool
	onChange func(CartState)
}

func NewCartView(api *API, cid string) *CartView {
	return &CartView{api: api, cid: cid}
}

func (v *CartView) CartID() string {
	return v.cid
}

// OnChange est appelé après chaque changement d'état.
func (v *CartView) OnChange(fn func(CartState)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// SetPushActive indique si la websocket est ouverte. Sans push, chaque mutation est suivie d'une relecture.
func (v *CartView) SetPushActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.push = active
}

func (v *CartView) State() CartState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *CartView) update(fn func(*CartState)) {
	v.mu.Lock()
	fn(&v.state)
	state, notify := v.state, v.onChange
	v.mu.Unlock()

	if notify != nil {
		notify(state)
	}
}

// Load relit le panier. Un panier supprimé (404) passe l'état à Deleted.
func (v *CartView) Load(ctx context.Context) error {
	cart, err := v.api.GetCart(ctx, v.cid)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "NOT_FOUND" {
			v.update(func(s *CartState) {
				s.Cart = models.CartView{ID: v.cid}
				s.Deleted = true
				s.Loaded = true
			})
			return nil
		}
		return err
	}
	v.update(func(s *CartState) {
		s.Cart = cart
		s.Loaded = true
		s.Deleted = false
	})
	return nil
}

// Apply applique un événement poussé. Renvoie false s'il ne concerne pas ce panier.
func (v *CartView) Apply(ev realtime.Event) bool {
	if ev.CartID != v.cid {
		return false
	}
	switch ev.Type {
	case realtime.EventCartUpdated:
		if ev.Cart == nil {
			return false
		}
		cart := *ev.Cart
		v.update(func(s *CartState) {
			s.Cart = cart
			s.Loaded = true
			s.Deleted = false
		})
		return true
	case realtime.EventCartDeleted:
		v.update(func(s *CartState) {
			s.Cart = models.CartView{ID: v.cid}
			s.Deleted = true
		})
		return true
	}
	return false
}

// Mutate envoie une mutation. En cas d'échec, l'état affiché est conservé et l'erreur mémorisée.
// En cas de succès, la mise à jour arrive par la websocket ; sans websocket, le panier est relu.
func (v *CartView) Mutate(ctx context.Context, fn func(ctx context.Context, api *API, cid string) error) error {
	if err := fn(ctx, v.api, v.cid); err != nil {
		msg := err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		v.update(func(s *CartState) { s.LastError = msg })
		return err
	}

	v.mu.Lock()
	push := v.push
	v.state.LastError = ""
	v.mu.Unlock()

	if push {
		return nil
	}
	return v.Load(ctx)
}

// CatalogView suit la première page du catalogue.
type CatalogView struct {
	api *API

	mu       sync.Mutex
	products []models.Product
	onChange func([]models.Product)
}

func NewCatalogView(api *API) *CatalogView {
	return &CatalogView{api: api}
}

func (v *CatalogView) OnChange(fn func([]models.Product)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

func (v *CatalogView) Products() []models.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Product{}, v.products...)
}

func (v *CatalogView) set(products []models.Product) {
	v.mu.Lock()
	v.products = append([]models.Product{}, products...)
	notify := v.onChange
	v.mu.Unlock()

	if notify != nil {
		notify(products)
	}
}

// Load relit la première page (mêmes paramètres que la diffusion serveur).
func (v *CatalogView) Load(ctx context.Context) error {
	list, err := v.api.ListProducts(ctx, ListOptions{Page: 1, Limit: 10})
	if err != nil {
		return err
	}
	v.set(list.Payload)
	return nil
}

// Apply remplace la liste par celle de l'événement productsUpdated.
func (v *CatalogView) Apply(ev realtime.Event) bool {
	if ev.Type != realtime.EventProductsUpdated {
		return false
	}
	v.set(ev.Products)
	return true
}
