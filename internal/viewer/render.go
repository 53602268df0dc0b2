package viewer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"cedra_shop_sync/internal/models"
)

const removedLabel = "produit supprimé"

// RenderCart écrit le panier sous forme de tableau.
func RenderCart(w io.Writer, s CartState) error {
	if s.Deleted {
		_, err := fmt.Fprintf(w, "Panier %s supprimé\n", s.Cart.ID)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Panier %s\n", s.Cart.ID)
	fmt.Fprintln(tw, "PRODUIT\tPRIX\tQTÉ\tSOUS-TOTAL")
	if len(s.Cart.Products) == 0 {
		fmt.Fprintln(tw, "(vide)\t\t\t")
	}
	for _, line := range s.Cart.Products {
		if line.Product == nil {
			fmt.Fprintf(tw, "%s\t-\t%d\t-\n", removedLabel, line.Quantity)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%.2f\n", line.Product.Title, line.Product.Price, line.Quantity, line.Subtotal)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d ligne(s)\t%.2f\n", s.Cart.Count, s.Cart.Total)
	if s.LastError != "" {
		fmt.Fprintf(tw, "⚠️ %s\n", s.LastError)
	}
	return tw.Flush()
}

// RenderCatalog écrit une liste de produits.
func RenderCatalog(w io.Writer, products []models.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITRE\tCATÉGORIE\tPRIX\tSTOCK\tACTIF")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%t\n", p.ID, p.Title, p.Category, p.Price, p.Stock, p.Status)
	}
	return tw.Flush()
}
