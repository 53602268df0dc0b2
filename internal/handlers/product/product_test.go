package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/services"
	"cedra_shop_sync/internal/testutil"
)

func newRouter(t *testing.T) (*gin.Engine, *testutil.MemStore, *testutil.RecordingPublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := testutil.NewMemStore()
	pub := &testutil.RecordingPublisher{}
	h := NewHandler(services.NewCatalogService(st, pub))

	r := gin.New()
	r.GET("/api/products", h.List)
	r.GET("/api/products/:pid", h.Get)
	r.POST("/api/products", h.Create)
	r.PUT("/api/products/:pid", h.Update)
	r.DELETE("/api/products/:pid", h.Delete)
	r.POST("/api/products/:pid/thumbnails", h.UploadThumbnail)
	return r, st, pub
}

type productBody struct {
	Status  string         `json:"status"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Product models.Product `json:"product"`
}

func send(t *testing.T, r http.Handler, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func decode(t *testing.T, data []byte) productBody {
	t.Helper()
	var b productBody
	require.NoError(t, json.Unmarshal(data, &b), string(data))
	return b
}

const mugJSON = `{"title":"Mug","description":"Mug en grès","code":"MUG-1","price":9.5,"stock":3,"category":"cuisine"}`

func TestCreateAndGet(t *testing.T) {
	r, _, pub := newRouter(t)

	code, data := send(t, r, http.MethodPost, "/api/products", mugJSON)
	require.Equal(t, http.StatusCreated, code, string(data))
	created := decode(t, data).Product
	assert.True(t, created.Status)
	assert.Len(t, pub.Events(), 1)

	code, data = send(t, r, http.MethodGet, "/api/products/"+created.ID, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Mug", decode(t, data).Product.Title)

	code, data = send(t, r, http.MethodPost, "/api/products", mugJSON)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "STORAGE_FAILURE", decode(t, data).Error)

	code, data = send(t, r, http.MethodPost, "/api/products", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_BODY", decode(t, data).Error)

	code, _ = send(t, r, http.MethodGet, "/api/products/nope", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = send(t, r, http.MethodGet, "/api/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateAndDelete(t *testing.T) {
	r, st, pub := newRouter(t)
	pid := st.SeedProduct("Bol", 4)

	code, data := send(t, r, http.MethodPut, "/api/products/"+pid, `{"price":5,"_id":"ignored"}`)
	require.Equal(t, http.StatusOK, code, string(data))
	updated := decode(t, data).Product
	assert.Equal(t, pid, updated.ID)
	assert.InDelta(t, 5.0, updated.Price, 1e-9)

	code, _ = send(t, r, http.MethodPut, "/api/products/"+pid, `{"stock":-1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, data = send(t, r, http.MethodDelete, "/api/products/"+pid, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, pid, decode(t, data).Product.ID)

	code, _ = send(t, r, http.MethodDelete, "/api/products/"+pid, "")
	assert.Equal(t, http.StatusNotFound, code)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "productsUpdated", events[1].Type)
}

func TestList_EnvelopeAndLinks(t *testing.T) {
	r, st, _ := newRouter(t)
	for i := 0; i < 5; i++ {
		st.SeedProduct(fmt.Sprintf("Produit %d", i), float64(10-i))
	}

	code, data := send(t, r, http.MethodGet, "/api/products?limit=2&page=2&sort=asc", "")
	require.Equal(t, http.StatusOK, code)

	var page struct {
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
	require.NoError(t, json.Unmarshal(data, &page))

	assert.Equal(t, "success", page.Status)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Payload, 2)
	assert.InDelta(t, 8.0, page.Payload[0].Price, 1e-9)
	assert.True(t, page.HasPrevPage)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.PrevLink)
	assert.Equal(t, "/api/products?limit=2&page=1&sort=asc", *page.PrevLink)
	require.NotNil(t, page.NextLink)
	assert.Equal(t, "/api/products?limit=2&page=3&sort=asc", *page.NextLink)

	code, data = send(t, r, http.MethodGet, "/api/products?query=category:general&limit=abc", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Len(t, page.Payload, 5)
	assert.Nil(t, page.PrevLink)
	assert.Nil(t, page.NextLink)
	assert.Nil(t, page.PrevPage)
}

func TestList_HugePageAndLimit(t *testing.T) {
	r, st, _ := newRouter(t)
	st.SeedProduct("Mug", 2)
	st.SeedProduct("Bol", 3)

	var page struct {
		Payload    []models.Product `json:"payload"`
		TotalPages int              `json:"totalPages"`
		NextLink   *string          `json:"nextLink"`
	}

	code, data := send(t, r, http.MethodGet, "/api/products?page=9223372036854775807&limit=10", "")
	require.Equal(t, http.StatusOK, code, string(data))
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Empty(t, page.Payload)
	assert.Nil(t, page.NextLink)

	code, data = send(t, r, http.MethodGet, "/api/products?page=1&limit=9223372036854775807", "")
	require.Equal(t, http.StatusOK, code, string(data))
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Len(t, page.Payload, 2)
	assert.Equal(t, 1, page.TotalPages)
}

func TestUploadThumbnail(t *testing.T) {
	r, st, _ := newRouter(t)
	pid := st.SeedProduct("Bol", 4)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "bol.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/"+pid+"/thumbnails", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "MinIO non configuré")

	code, data := send(t, r, http.MethodPost, "/api/products/"+pid+"/thumbnails", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_BODY", decode(t, data).Error)
}
