package models

import (
	"time"
)

type Product struct {
	ID          string    `json:"_id" db:"product_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Code        string    `json:"code" db:"code"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	Status      bool      `json:"status" db:"status"`
	Category    string    `json:"category" db:"category"`
	Thumbnails  []string  `json:"thumbnails" db:"thumbnails"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductInput est le corps d'un POST /api/products.
// Les pointeurs distinguent "absent" de "valeur zéro" pour la validation des champs obligatoires.
type ProductInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Code        *string  `json:"code"`
	Price       *float64 `json:"price"`
	Stock       *float64 `json:"stock"`
	Status      *bool    `json:"status"`
	Category    *string  `json:"category"`
	Thumbnails  []string `json:"thumbnails"`
}

// ProductUpdate est une mise à jour partielle : seuls les champs non-nil sont appliqués.
// L'identifiant n'en fait jamais partie.
type ProductUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Code        *string   `json:"code"`
	Price       *float64  `json:"price"`
	Stock       *float64  `json:"stock"`
	Status      *bool     `json:"status"`
	Category    *string   `json:"category"`
	Thumbnails  *[]string `json:"thumbnails"`
}

// IsEmpty indique qu'aucun champ n'est à modifier.
func (u ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Code == nil && u.Price == nil &&
		u.Stock == nil && u.Status == nil && u.Category == nil && u.Thumbnails == nil
}

// ProductPage est une page du catalogue, avec les métadonnées de pagination.
type ProductPage struct {
	Docs        []Product `json:"docs"`
	TotalDocs   int       `json:"totalDocs"`
	Limit       int       `json:"limit"`
	Page        int       `json:"page"`
	TotalPages  int       `json:"totalPages"`
	HasPrevPage bool      `json:"hasPrevPage"`
	HasNextPage bool      `json:"hasNextPage"`
	PrevPage    *int      `json:"prevPage"`
	NextPage    *int      `json:"nextPage"`
}
