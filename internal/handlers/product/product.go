// Package product expose le catalogue en HTTP.
package product

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"cedra_shop_sync/internal/handlers"
	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/services"
	"cedra_shop_sync/internal/store"
)

type Handler struct {
	catalog *services.CatalogService
}

func NewHandler(catalog *services.CatalogService) *Handler {
	return &Handler{catalog: catalog}
}

// pageResponse est l'enveloppe du listing paginé.
type pageResponse struct {
	Status      string           `json:"status"`
	Payload     []models.Product `json:"payload"`
	TotalPages  int              `json:"totalPages"`
	PrevPage    *int             `json:"prevPage"`
	NextPage    *int             `json:"nextPage"`
	Page        int              `json:"page"`
	HasPrevPage bool             `json:"hasPrevPage"`
	HasNextPage bool             `json:"hasNextPage"`
	PrevLink    *string          `json:"prevLink"`
	NextLink    *string          `json:"nextLink"`
}

// parseQuery lit ?limit&page&sort&query. Les valeurs invalides retombent sur les défauts.
func parseQuery(c *gin.Context) store.ProductQuery {
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, _ := strconv.Atoi(c.Query("page"))
	return store.ProductQuery{
		Filter: store.ParseFilter(c.Query("query")),
		Page:   page,
		Limit:  limit,
		Sort:   c.Query("sort"),
	}.Normalize()
}

// pageLink construit le lien vers une autre page en gardant limit, sort et query.
func pageLink(c *gin.Context, q store.ProductQuery, page *int) *string {
	if page == nil {
		return nil
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(*page))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if raw := c.Query("query"); raw != "" {
		params.Set("query", raw)
	}
	link := c.Request.URL.Path + "?" + params.Encode()
	return &link
}

// 🟢 GET /api/products
func (h *Handler) List(c *gin.Context) {
	q := parseQuery(c)
	page, err := h.catalog.List(c.Request.Context(), q)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pageResponse{
		Status:      "success",
		Payload:     page.Docs,
		TotalPages:  page.TotalPages,
		PrevPage:    page.PrevPage,
		NextPage:    page.NextPage,
		Page:        page.Page,
		HasPrevPage: page.HasPrevPage,
		HasNextPage: page.HasNextPage,
		PrevLink:    pageLink(c, q, page.PrevPage),
		NextLink:    pageLink(c, q, page.NextPage),
	})
}

// 🟢 GET /api/products/:pid
func (h *Handler) Get(c *gin.Context) {
	p, err := h.catalog.Get(c.Request.Context(), c.Param("pid"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondSuccess(c, http.StatusOK, "Produit trouvé", "product", p)
}

// 🟢 POST /api/products
func (h *Handler) Create(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handlers.RespondError(c, services.ErrBadBody)
		return
	}

	p, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.RespondSuccess(c, http.StatusCreated, "Produit créé", "product", p)
}
