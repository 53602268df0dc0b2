// Package store est l'adaptateur de persistance des produits et des paniers.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cedra_shop_sync/internal/models"
)

var (
	ErrNotFound      = errors.New("document introuvable")
	ErrDuplicateCode = errors.New("code produit déjà utilisé")
	ErrValidation    = errors.New("document invalide")
)

// Store est le contrat utilisé par les services. Une seule implémentation (ScyllaStore) ;
// les tests utilisent le double en mémoire de internal/testutil.
type Store interface {
	FindCart(ctx context.Context, id string) (models.Cart, error)
	CreateCart(ctx context.Context, cart models.Cart) error
	// SaveCart remplace entièrement la liste des lignes (upsert).
	SaveCart(ctx context.Context, cart models.Cart) error
	DeleteCart(ctx context.Context, id string) error

	ProductExists(ctx context.Context, id string) (bool, error)
	FindProduct(ctx context.Context, id string) (models.Product, error)
	// FindProducts ignore silencieusement les ids inexistants.
	FindProducts(ctx context.Context, ids []string) (map[string]models.Product, error)
	ListProducts(ctx context.Context, q ProductQuery) (models.ProductPage, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) (models.Product, error)
}

// ValidID indique si id est un identifiant bien formé.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NormalizeProduct applique les contraintes de schéma : champs obligatoires, bornes numériques.
func NormalizeProduct(p models.Product) (models.Product, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Code = strings.TrimSpace(p.Code)
	p.Category = strings.TrimSpace(p.Category)

	required := []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"code", p.Code},
		{"category", p.Category},
	}
	for _, f := range required {
		if f.value == "" {
			return p, fmt.Errorf("%w: champ obligatoire manquant: %s", ErrValidation, f.name)
		}
	}
	if p.Price < 0 {
		return p, fmt.Errorf("%w: price doit être >= 0", ErrValidation)
	}
	if p.Stock < 0 {
		return p, fmt.Errorf("%w: stock doit être >= 0", ErrValidation)
	}
	if p.Thumbnails == nil {
		p.Thumbnails = []string{}
	}
	return p, nil
}

// ApplyUpdate applique une mise à jour partielle. L'id n'est jamais modifié.
func ApplyUpdate(p models.Product, upd models.ProductUpdate) models.Product {
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Code != nil {
		p.Code = *upd.Code
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = int(*upd.Stock)
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Thumbnails != nil {
		p.Thumbnails = append([]string{}, (*upd.Thumbnails)...)
	}
	return p
}
