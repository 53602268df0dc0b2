// Package services porte la logique métier du panier et du catalogue.
// Les services sont sans état : ils ne gardent que des poignées vers le store et le publisher.
package services

import (
	"errors"
	"fmt"

	"cedra_shop_sync/internal/store"
)

var (
	ErrInvalidID       = errors.New("identifiant invalide")
	ErrNotFound        = errors.New("introuvable")
	ErrCartNotFound    = fmt.Errorf("panier %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("produit %w", ErrNotFound)
	ErrItemNotFound    = errors.New("produit absent du panier")
	ErrBadQuantity     = errors.New("la quantité doit être un entier supérieur à 0")
	ErrBadBody         = errors.New("corps de requête invalide")
	ErrStorage         = errors.New("erreur de stockage")
)

// storageErr traduit une erreur du store. ErrNotFound devient notFound, ErrValidation devient ErrBadBody,
// le reste (dont le code dupliqué) est une erreur de stockage avec le message d'origine.
func storageErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, store.ErrValidation):
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}
