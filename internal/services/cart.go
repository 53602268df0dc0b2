package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/realtime"
	"cedra_shop_sync/internal/store"
)

// LineInput est une ligne du corps de remplacement complet d'un panier.
type LineInput struct {
	ProductID string
	Quantity  int
}

// CartService applique les mutations de panier puis diffuse le snapshot résolu.
type CartService struct {
	store     store.Store
	publisher realtime.Publisher
	thumbs    *ThumbnailStore
	now       func() time.Time
}

func NewCartService(st store.Store, pub realtime.Publisher) *CartService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &CartService{store: st, publisher: pub, now: func() time.Time { return time.Now().UTC() }}
}

// WithThumbnails signe les miniatures des produits résolus, comme le catalogue.
func (s *CartService) WithThumbnails(t *ThumbnailStore) *CartService {
	s.thumbs = t
	return s
}

// canonicalID valide un identifiant et le renvoie sous sa forme canonique (minuscules, tirets).
func canonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func canonicalPair(cid, pid string) (string, string, error) {
	cid, err := canonicalID(cid)
	if err != nil {
		return "", "", err
	}
	pid, err = canonicalID(pid)
	if err != nil {
		return "", "", err
	}
	return cid, pid, nil
}

func (s *CartService) CreateCart(ctx context.Context) (models.CartView, error) {
	now := s.now()
	cart := models.Cart{
		ID:        uuid.NewString(),
		Products:  []models.CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCart(ctx, cart); err != nil {
		return models.CartView{}, storageErr(err, nil)
	}
	return models.Resolve(cart, nil), nil
}

func (s *CartService) GetCart(ctx context.Context, cid string) (models.CartView, error) {
	cart, err := s.loadCart(ctx, cid)
	if err != nil {
		return models.CartView{}, err
	}
	return s.resolve(ctx, cart)
}

// AddItem ajoute une unité du produit : incrémente la ligne existante ou en crée une avec quantité 1.
func (s *CartService) AddItem(ctx context.Context, cid, pid string) (models.CartView, error) {
	cid, pid, err := canonicalPair(cid, pid)
	if err != nil {
		return models.CartView{}, err
	}

	cart, err := s.findCart(ctx, cid)
	if err != nil {
		return models.CartView{}, err
	}
	exists, err := s.store.ProductExists(ctx, pid)
	if err != nil {
		return models.CartView{}, storageErr(err, nil)
	}
	if !exists {
		return models.CartView{}, ErrProductNotFound
	}

	if i := cart.FindLine(pid); i >= 0 {
		cart.Products[i].Quantity++
	} else {
		cart.Products = append(cart.Products, models.CartLine{ProductID: pid, Quantity: 1})
	}
	return s.commit(ctx, cart)
}

// SetQuantity fixe exactement la quantité d'une ligne existante.
func (s *CartService) SetQuantity(ctx context.Context, cid, pid string, qty int) (models.CartView, error) {
	cid, pid, err := canonicalPair(cid, pid)
	if err != nil {
		return models.CartView{}, err
	}
	if qty <= 0 {
		return models.CartView{}, ErrBadQuantity
	}

	cart, err := s.findCart(ctx, cid)
	if err != nil {
		return models.CartView{}, err
	}
	i := cart.FindLine(pid)
	if i < 0 {
		return models.CartView{}, ErrItemNotFound
	}
	cart.Products[i].Quantity = qty
	return s.commit(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, cid, pid string) (models.CartView, error) {
	cid, pid, err := canonicalPair(cid, pid)
	if err != nil {
		return models.CartView{}, err
	}

	cart, err := s.findCart(ctx, cid)
	if err != nil {
		return models.CartView{}, err
	}
	i := cart.FindLine(pid)
	if i < 0 {
		return models.CartView{}, ErrItemNotFound
	}
	cart.Products = append(cart.Products[:i], cart.Products[i+1:]...)
	return s.commit(ctx, cart)
}

// ReplaceItems remplace toutes les lignes. Le panier doit exister (NotFound d'abord), puis le lot
// est validé en entier avant toute écriture : une seule ligne invalide rejette tout.
func (s *CartService) ReplaceItems(ctx context.Context, cid string, lines []LineInput) (models.CartView, error) {
	cid, err := canonicalID(cid)
	if err != nil {
		return models.CartView{}, err
	}
	cart, err := s.findCart(ctx, cid)
	if err != nil {
		return models.CartView{}, err
	}

	next := make([]models.CartLine, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		pid, err := canonicalID(l.ProductID)
		if err != nil || l.Quantity <= 0 {
			return models.CartView{}, ErrBadBody
		}
		if _, dup := seen[pid]; dup {
			return models.CartView{}, ErrBadBody
		}
		seen[pid] = struct{}{}
		next = append(next, models.CartLine{ProductID: pid, Quantity: l.Quantity})
	}

	cart.Products = next
	return s.commit(ctx, cart)
}

// EmptyCart vide le panier sans changer son identifiant.
func (s *CartService) EmptyCart(ctx context.Context, cid string) (models.CartView, error) {
	cart, err := s.loadCart(ctx, cid)
	if err != nil {
		return models.CartView{}, err
	}
	cart.Products = []models.CartLine{}
	return s.commit(ctx, cart)
}

func (s *CartService) DeleteCart(ctx context.Context, cid string) error {
	cid, err := canonicalID(cid)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCart(ctx, cid); err != nil {
		return storageErr(err, ErrCartNotFound)
	}
	s.publisher.PublishCartDeleted(ctx, cid)
	return nil
}

func (s *CartService) loadCart(ctx context.Context, cid string) (models.Cart, error) {
	cid, err := canonicalID(cid)
	if err != nil {
		return models.Cart{}, err
	}
	return s.findCart(ctx, cid)
}

func (s *CartService) findCart(ctx context.Context, cid string) (models.Cart, error) {
	cart, err := s.store.FindCart(ctx, cid)
	if err != nil {
		return models.Cart{}, storageErr(err, ErrCartNotFound)
	}
	return cart, nil
}

// commit persiste le panier, le résout et diffuse le snapshot. La diffusion n'échoue jamais la mutation.
func (s *CartService) commit(ctx context.Context, cart models.Cart) (models.CartView, error) {
	cart.UpdatedAt = s.now()
	if err := s.store.SaveCart(ctx, cart); err != nil {
		return models.CartView{}, storageErr(err, ErrCartNotFound)
	}

	view, err := s.resolve(ctx, cart)
	if err != nil {
		return models.CartView{}, err
	}
	s.publisher.PublishCart(ctx, cart.ID, view)
	return view, nil
}

func (s *CartService) resolve(ctx context.Context, cart models.Cart) (models.CartView, error) {
	if len(cart.Products) == 0 {
		return models.Resolve(cart, nil), nil
	}
	ids := make([]string, 0, len(cart.Products))
	for _, l := range cart.Products {
		ids = append(ids, l.ProductID)
	}
	products, err := s.store.FindProducts(ctx, ids)
	if err != nil {
		return models.CartView{}, storageErr(err, nil)
	}
	for id, p := range products {
		p.Thumbnails = s.thumbs.Sign(ctx, p.Thumbnails)
		products[id] = p
	}
	return models.Resolve(cart, products), nil
}
