package cli

import (
	"encoding/json"
	"io"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/viewer"
)

func writeCart(w io.Writer, format string, s viewer.CartState) error {
	if format == "json" {
		return writeJSON(w, s.Cart)
	}
	return viewer.RenderCart(w, s)
}

func writeProducts(w io.Writer, format string, products []models.Product) error {
	if format == "json" {
		return writeJSON(w, products)
	}
	return viewer.RenderCatalog(w, products)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
