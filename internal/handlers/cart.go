package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"cedra_shop_sync/internal/services"
	"cedra_shop_sync/internal/store"
)

type CartHandler struct {
	carts *services.CartService
}

func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// 🟢 POST /api/carts
func (h *CartHandler) Create(c *gin.Context) {
	view, err := h.carts.CreateCart(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusCreated, "Panier créé", "cart", view)
}

// 🟢 GET /api/carts/:cid
func (h *CartHandler) Get(c *gin.Context) {
	view, err := h.carts.GetCart(c.Request.Context(), c.Param("cid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Panier trouvé", "cart", view)
}

// 🟢 POST /api/carts/:cid/items/:pid
func (h *CartHandler) AddItem(c *gin.Context) {
	view, err := h.carts.AddItem(c.Request.Context(), c.Param("cid"), c.Param("pid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Produit ajouté au panier", "cart", view)
}

// 🟢 PUT /api/carts/:cid/items/:pid  {"quantity": n}
func (h *CartHandler) SetQuantity(c *gin.Context) {
	cid, pid := c.Param("cid"), c.Param("pid")
	if !store.ValidID(cid) || !store.ValidID(pid) {
		RespondError(c, services.ErrInvalidID)
		return
	}

	var body struct {
		Quantity *float64 `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Quantity == nil || !isWhole(*body.Quantity) {
		RespondError(c, services.ErrBadQuantity)
		return
	}

	view, err := h.carts.SetQuantity(c.Request.Context(), cid, pid, int(*body.Quantity))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Quantité mise à jour", "cart", view)
}

// 🟢 DELETE /api/carts/:cid/items/:pid
func (h *CartHandler) RemoveItem(c *gin.Context) {
	view, err := h.carts.RemoveItem(c.Request.Context(), c.Param("cid"), c.Param("pid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Produit retiré du panier", "cart", view)
}

// 🟢 PUT /api/carts/:cid  {"products": [{"product": id, "quantity": n}]}
func (h *CartHandler) Replace(c *gin.Context) {
	cid := c.Param("cid")
	if !store.ValidID(cid) {
		RespondError(c, services.ErrInvalidID)
		return
	}

	var body struct {
		Products *[]struct {
			Product  string   `json:"product"`
			Quantity *float64 `json:"quantity"`
		} `json:"products"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Products == nil {
		h.rejectBody(c, cid)
		return
	}

	// Une quantité absente ou non entière devient 0 : le service la rejette (BadBody) après avoir vérifié le panier
	lines := make([]services.LineInput, 0, len(*body.Products))
	for _, l := range *body.Products {
		qty := 0
		if l.Quantity != nil && isWhole(*l.Quantity) {
			qty = int(*l.Quantity)
		}
		lines = append(lines, services.LineInput{ProductID: l.Product, Quantity: qty})
	}

	view, err := h.carts.ReplaceItems(c.Request.Context(), cid, lines)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Panier remplacé", "cart", view)
}

// rejectBody répond BadBody à un corps illisible, sauf si le panier n'existe pas (NotFound d'abord).
func (h *CartHandler) rejectBody(c *gin.Context, cid string) {
	if _, err := h.carts.GetCart(c.Request.Context(), cid); err != nil {
		RespondError(c, err)
		return
	}
	RespondError(c, services.ErrBadBody)
}

// 🟢 DELETE /api/carts/:cid  (vide le panier, l'id est conservé)
func (h *CartHandler) Empty(c *gin.Context) {
	view, err := h.carts.EmptyCart(c.Request.Context(), c.Param("cid"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Panier vidé", "cart", view)
}

// 🟢 DELETE /api/carts/:cid/hard
func (h *CartHandler) Delete(c *gin.Context) {
	if err := h.carts.DeleteCart(c.Request.Context(), c.Param("cid")); err != nil {
		RespondError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, "Panier supprimé", "deleted", true)
}

func isWhole(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32
}
