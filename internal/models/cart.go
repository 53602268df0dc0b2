package models

import "time"

// Cart est le document persisté : uniquement des références produit + quantités.
type Cart struct {
	ID        string     `json:"_id"`
	Products  []CartLine `json:"products"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartLine struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// FindLine retourne l'index de la ligne du produit, ou -1.
func (c *Cart) FindLine(productID string) int {
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartView est le snapshot résolu d'un panier : c'est ce qui est renvoyé par chaque opération
// et diffusé aux clients connectés.
type CartView struct {
	ID        string         `json:"_id"`
	Products  []ResolvedLine `json:"products"`
	Total     float64        `json:"total"`
	Count     int            `json:"count"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ResolvedLine joint une ligne à l'état courant du produit.
// Product est nil quand le produit a été supprimé du catalogue depuis l'ajout.
type ResolvedLine struct {
	ProductID string   `json:"productId"`
	Product   *Product `json:"product"`
	Quantity  int      `json:"quantity"`
	Subtotal  float64  `json:"subtotal"`
	Removed   bool     `json:"removed,omitempty"`
}

// Resolve construit la vue d'un panier à partir des produits trouvés (indexés par id).
func Resolve(cart Cart, products map[string]Product) CartView {
	view := CartView{
		ID:        cart.ID,
		Products:  make([]ResolvedLine, 0, len(cart.Products)),
		Count:     len(cart.Products),
		UpdatedAt: cart.UpdatedAt,
	}

	for _, line := range cart.Products {
		resolved := ResolvedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
		if p, ok := products[line.ProductID]; ok {
			p := p
			resolved.Product = &p
			resolved.Subtotal = p.Price * float64(line.Quantity)
			view.Total += resolved.Subtotal
		} else {
			resolved.Removed = true
		}
		view.Products = append(view.Products, resolved)
	}

	return view
}
