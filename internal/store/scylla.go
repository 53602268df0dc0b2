package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"cedra_shop_sync/internal/database"
	"cedra_shop_sync/internal/models"
)

// ScyllaStore implémente Store sur ScyllaDB.
type ScyllaStore struct {
	session *gocql.Session
	now     func() time.Time
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session, now: time.Now}
}

func parseUUID(id string) (gocql.UUID, error) {
	u, err := gocql.ParseUUID(id)
	if err != nil {
		return gocql.UUID{}, fmt.Errorf("%w: identifiant invalide %q", ErrNotFound, id)
	}
	return u, nil
}

// =============================================
// PANIERS
// =============================================

func (s *ScyllaStore) FindCart(ctx context.Context, id string) (models.Cart, error) {
	cartUUID, err := parseUUID(id)
	if err != nil {
		return models.Cart{}, err
	}

	var (
		cartID       gocql.UUID
		productsJSON string
		cart         models.Cart
	)
	err = s.session.Query(database.CQLSelectCart, cartUUID).WithContext(ctx).
		Scan(&cartID, &productsJSON, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return models.Cart{}, ErrNotFound
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("lecture panier %s: %w", id, err)
	}

	cart.ID = cartID.String()
	cart.Products = []models.CartLine{}
	if productsJSON != "" {
		if err := json.Unmarshal([]byte(productsJSON), &cart.Products); err != nil {
			return models.Cart{}, fmt.Errorf("décodage panier %s: %w", id, err)
		}
	}
	return cart, nil
}

func (s *ScyllaStore) CreateCart(ctx context.Context, cart models.Cart) error {
	cartUUID, err := parseUUID(cart.ID)
	if err != nil {
		return err
	}
	data, err := encodeLines(cart.Products)
	if err != nil {
		return err
	}

	if err := s.session.Query(database.CQLInsertCart, cartUUID, data, cart.CreatedAt, cart.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("création panier: %w", err)
	}
	return nil
}

func (s *ScyllaStore) SaveCart(ctx context.Context, cart models.Cart) error {
	cartUUID, err := parseUUID(cart.ID)
	if err != nil {
		return err
	}
	data, err := encodeLines(cart.Products)
	if err != nil {
		return err
	}

	if err := s.session.Query(database.CQLUpdateCart, data, cart.UpdatedAt, cartUUID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("sauvegarde panier %s: %w", cart.ID, err)
	}
	return nil
}

func (s *ScyllaStore) DeleteCart(ctx context.Context, id string) error {
	cartUUID, err := parseUUID(id)
	if err != nil {
		return err
	}

	applied, err := s.session.Query(database.CQLDeleteCart, cartUUID).WithContext(ctx).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("suppression panier %s: %w", id, err)
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

func encodeLines(lines []models.CartLine) (string, error) {
	if lines == nil {
		lines = []models.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encodage lignes panier: %w", err)
	}
	return string(data), nil
}

// =============================================
// PRODUITS
// =============================================

func scanProduct(scan func(dest ...interface{}) bool) (models.Product, bool) {
	var (
		p  models.Product
		id gocql.UUID
	)
	ok := scan(&id, &p.Title, &p.Description, &p.Code, &p.Price, &p.Stock, &p.Status, &p.Category,
		&p.Thumbnails, &p.CreatedAt, &p.UpdatedAt)
	p.ID = id.String()
	if p.Thumbnails == nil {
		p.Thumbnails = []string{}
	}
	return p, ok
}

func (s *ScyllaStore) ProductExists(ctx context.Context, id string) (bool, error) {
	productUUID, err := parseUUID(id)
	if err != nil {
		return false, nil
	}

	var found gocql.UUID
	err = s.session.Query(database.CQLProductExists, productUUID).WithContext(ctx).Scan(&found)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vérification produit %s: %w", id, err)
	}
	return true, nil
}

func (s *ScyllaStore) FindProduct(ctx context.Context, id string) (models.Product, error) {
	productUUID, err := parseUUID(id)
	if err != nil {
		return models.Product{}, err
	}

	var scanErr error
	p, _ := scanProduct(func(dest ...interface{}) bool {
		scanErr = s.session.Query(database.CQLSelectProduct, productUUID).WithContext(ctx).Scan(dest...)
		return scanErr == nil
	})
	if errors.Is(scanErr, gocql.ErrNotFound) {
		return models.Product{}, ErrNotFound
	}
	if scanErr != nil {
		return models.Product{}, fmt.Errorf("lecture produit %s: %w", id, scanErr)
	}
	return p, nil
}

func (s *ScyllaStore) FindProducts(ctx context.Context, ids []string) (map[string]models.Product, error) {
	result := make(map[string]models.Product, len(ids))

	uuids := make([]gocql.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := parseUUID(id); err == nil {
			uuids = append(uuids, u)
		}
	}
	if len(uuids) == 0 {
		return result, nil
	}

	iter := s.session.Query(database.CQLSelectAllProducts+" WHERE product_id IN ?", uuids).WithContext(ctx).Iter()
	for {
		p, ok := scanProduct(iter.Scan)
		if !ok {
			break
		}
		result[p.ID] = p
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture produits: %w", err)
	}
	return result, nil
}

// ListProducts charge le catalogue puis filtre/pagine en mémoire :
// ScyllaDB ne supporte ni LIKE ni tri global sur une colonne non-clustering.
func (s *ScyllaStore) ListProducts(ctx context.Context, q ProductQuery) (models.ProductPage, error) {
	iter := s.session.Query(database.CQLSelectAllProducts).WithContext(ctx).Iter()

	var all []models.Product
	for {
		p, ok := scanProduct(iter.Scan)
		if !ok {
			break
		}
		all = append(all, p)
	}
	if err := iter.Close(); err != nil {
		return models.ProductPage{}, fmt.Errorf("lecture produits: %w", err)
	}

	return Paginate(all, q), nil
}

func (s *ScyllaStore) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p, err := NormalizeProduct(p)
	if err != nil {
		return models.Product{}, err
	}

	productUUID := gocql.TimeUUID()
	p.ID = productUUID.String()
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.claimCode(ctx, p.Code, productUUID); err != nil {
		return models.Product{}, err
	}

	if err := s.insertProduct(ctx, productUUID, p); err != nil {
		s.releaseCode(ctx, p.Code, productUUID)
		return models.Product{}, err
	}
	return p, nil
}

func (s *ScyllaStore) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (models.Product, error) {
	current, err := s.FindProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	productUUID, _ := parseUUID(id)

	next, err := NormalizeProduct(ApplyUpdate(current, upd))
	if err != nil {
		return models.Product{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()

	codeChanged := next.Code != current.Code
	if codeChanged {
		if err := s.claimCode(ctx, next.Code, productUUID); err != nil {
			return models.Product{}, err
		}
	}

	if err := s.insertProduct(ctx, productUUID, next); err != nil {
		if codeChanged {
			s.releaseCode(ctx, next.Code, productUUID)
		}
		return models.Product{}, err
	}

	if codeChanged {
		s.releaseCode(ctx, current.Code, productUUID)
	}
	return next, nil
}

func (s *ScyllaStore) DeleteProduct(ctx context.Context, id string) (models.Product, error) {
	current, err := s.FindProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	productUUID, _ := parseUUID(id)

	if err := s.session.Query(database.CQLDeleteProduct, productUUID).WithContext(ctx).Exec(); err != nil {
		return models.Product{}, fmt.Errorf("suppression produit %s: %w", id, err)
	}
	s.releaseCode(ctx, current.Code, productUUID)
	return current, nil
}

func (s *ScyllaStore) insertProduct(ctx context.Context, id gocql.UUID, p models.Product) error {
	err := s.session.Query(database.CQLInsertProduct,
		id, p.Title, p.Description, p.Code, p.Price, p.Stock, p.Status, p.Category, p.Thumbnails,
		p.CreatedAt, p.UpdatedAt).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("écriture produit: %w", err)
	}
	return nil
}

// claimCode réserve le code pour ce produit (transaction légère).
func (s *ScyllaStore) claimCode(ctx context.Context, code string, id gocql.UUID) error {
	existing := map[string]interface{}{}
	applied, err := s.session.Query(database.CQLClaimCode, code, id).WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return fmt.Errorf("réservation code %q: %w", code, err)
	}
	if !applied {
		if owner, ok := existing["product_id"].(gocql.UUID); ok && owner == id {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrDuplicateCode, code)
	}
	return nil
}

func (s *ScyllaStore) releaseCode(ctx context.Context, code string, id gocql.UUID) {
	if _, err := s.session.Query(database.CQLReleaseCode, code, id).WithContext(ctx).
		MapScanCAS(map[string]interface{}{}); err != nil {
		log.Printf("⚠️ Libération du code %q échouée: %v", code, err)
	}
}
