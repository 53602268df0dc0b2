package product

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cedra_shop_sync/internal/handlers"
	"cedra_shop_sync/internal/services"
)

// 🟢 POST /api/products/:pid/thumbnails  (multipart, champ "file")
func (h *Handler) UploadThumbnail(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		handlers.RespondError(c, fmt.Errorf("%w: fichier manquant", services.ErrBadBody))
		return
	}
	defer file.Close()

	p, err := h.catalog.AddThumbnail(c.Request.Context(), c.Param("pid"),
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondSuccess(c, http.StatusOK, "Miniature ajoutée", "product", p)
}
