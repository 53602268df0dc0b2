package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cedra_shop_sync/internal/handlers"
	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/services"
)

// 🟡 PUT /api/products/:pid  (mise à jour partielle, l'id n'est jamais modifié)
func (h *Handler) Update(c *gin.Context) {
	var upd models.ProductUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		handlers.RespondError(c, services.ErrBadBody)
		return
	}

	p, err := h.catalog.Update(c.Request.Context(), c.Param("pid"), upd)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondSuccess(c, http.StatusOK, "Produit mis à jour", "product", p)
}

// 🔴 DELETE /api/products/:pid  (les paniers qui le référencent ne sont pas modifiés)
func (h *Handler) Delete(c *gin.Context) {
	p, err := h.catalog.Delete(c.Request.Context(), c.Param("pid"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondSuccess(c, http.StatusOK, "Produit supprimé", "product", p)
}
