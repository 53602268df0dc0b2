package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cedra_shop_sync/internal/handlers"
	"cedra_shop_sync/internal/handlers/product"
	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/realtime"
	"cedra_shop_sync/internal/routes"
	"cedra_shop_sync/internal/services"
	"cedra_shop_sync/internal/testutil"
)

type apiFixture struct {
	store  *testutil.MemStore
	hub    *realtime.Hub
	router *gin.Engine
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := testutil.NewMemStore()
	hub := realtime.NewHub()
	pub := realtime.NewLocalPublisher(hub)
	catalog := services.NewCatalogService(st, pub)
	hub.HandleCommands(catalog)

	r := gin.New()
	routes.RegisterRoutes(r, routes.Deps{
		Carts:       handlers.NewCartHandler(services.NewCartService(st, pub)),
		Products:    product.NewHandler(catalog),
		WebSocket:   handlers.NewWebSocketHandler(hub, catalog, []string{"*"}),
		CORSOrigins: []string{"*"},
	})
	t.Cleanup(hub.Close)
	return &apiFixture{store: st, hub: hub, router: r}
}

type envelope struct {
	Status  string          `json:"status"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Cart    models.CartView `json:"cart"`
	Deleted bool            `json:"deleted"`
}

func (a *apiFixture) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *apiFixture) newCart(t *testing.T) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/carts", nil)
	require.Equal(t, http.StatusCreated, code)
	return env.Cart.ID
}

func TestCartAPI_AddTwice(t *testing.T) {
	a := newAPI(t)
	cid := a.newCart(t)
	pid := a.store.SeedProduct("Mug", 3)

	a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+pid, nil)
	code, env := a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+pid, nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", env.Status)
	require.Len(t, env.Cart.Products, 1)
	assert.Equal(t, 2, env.Cart.Products[0].Quantity)
	assert.InDelta(t, 6.0, env.Cart.Total, 1e-9)
}

func TestCartAPI_Errors(t *testing.T) {
	a := newAPI(t)
	cid := a.newCart(t)
	pid := a.store.SeedProduct("Mug", 3)
	missing := uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"id panier invalide", http.MethodGet, "/api/carts/abc", nil, 400, handlers.CodeInvalidID},
		{"panier inconnu", http.MethodGet, "/api/carts/" + missing, nil, 404, handlers.CodeNotFound},
		{"produit inconnu", http.MethodPost, "/api/carts/" + cid + "/items/" + missing, nil, 404, handlers.CodeNotFound},
		{"id produit invalide", http.MethodPost, "/api/carts/" + cid + "/items/x", nil, 400, handlers.CodeInvalidID},
		{"quantité zéro", http.MethodPut, "/api/carts/" + cid + "/items/" + pid, map[string]int{"quantity": 0}, 400, handlers.CodeBadQuantity},
		{"quantité décimale", http.MethodPut, "/api/carts/" + cid + "/items/" + pid, map[string]float64{"quantity": 1.5}, 400, handlers.CodeBadQuantity},
		{"quantité texte", http.MethodPut, "/api/carts/" + cid + "/items/" + pid, `{"quantity":"2"}`, 400, handlers.CodeBadQuantity},
		{"quantité absente", http.MethodPut, "/api/carts/" + cid + "/items/" + pid, `{}`, 400, handlers.CodeBadQuantity},
		{"ligne absente", http.MethodPut, "/api/carts/" + cid + "/items/" + pid, map[string]int{"quantity": 2}, 404, handlers.CodeItemNotFound},
		{"retrait ligne absente", http.MethodDelete, "/api/carts/" + cid + "/items/" + pid, nil, 404, handlers.CodeItemNotFound},
		{"remplacement sans products", http.MethodPut, "/api/carts/" + cid, `{}`, 400, handlers.CodeBadBody},
		{"remplacement json invalide", http.MethodPut, "/api/carts/" + cid, `{`, 400, handlers.CodeBadBody},
		{"remplacement id invalide", http.MethodPut, "/api/carts/nope", `{"products":[]}`, 400, handlers.CodeInvalidID},
		{"remplacement panier inconnu, lignes invalides", http.MethodPut, "/api/carts/" + missing, `{"products":[{"product":"x","quantity":-1}]}`, 404, handlers.CodeNotFound},
		{"remplacement panier inconnu, corps invalide", http.MethodPut, "/api/carts/" + missing, `{`, 404, handlers.CodeNotFound},
		{"remplacement quantité décimale", http.MethodPut, "/api/carts/" + cid, `{"products":[{"product":"` + pid + `","quantity":1.5}]}`, 400, handlers.CodeBadBody},
		{"vider panier inconnu", http.MethodDelete, "/api/carts/" + missing, nil, 404, handlers.CodeNotFound},
		{"supprimer panier inconnu", http.MethodDelete, "/api/carts/" + missing + "/hard", nil, 404, handlers.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.code, env.Error)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestCartAPI_ProductAndCartNotFoundAreDistinct(t *testing.T) {
	a := newAPI(t)
	cid := a.newCart(t)
	pid := a.store.SeedProduct("Mug", 3)

	_, env := a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+uuid.NewString(), nil)
	assert.Equal(t, "produit introuvable", env.Message)

	_, env = a.do(t, http.MethodPost, "/api/carts/"+uuid.NewString()+"/items/"+pid, nil)
	assert.Equal(t, "panier introuvable", env.Message)
}

func TestCartAPI_ReplaceIsAllOrNothing(t *testing.T) {
	a := newAPI(t)
	cid := a.newCart(t)
	p1 := a.store.SeedProduct("A", 1)
	p2 := a.store.SeedProduct("B", 2)
	a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+p1, nil)

	body := map[string]interface{}{"products": []map[string]interface{}{
		{"product": p1, "quantity": 2},
		{"product": p2, "quantity": -1},
	}}
	code, env := a.do(t, http.MethodPut, "/api/carts/"+cid, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, handlers.CodeBadBody, env.Error)

	_, env = a.do(t, http.MethodGet, "/api/carts/"+cid, nil)
	require.Len(t, env.Cart.Products, 1)
	assert.Equal(t, 1, env.Cart.Products[0].Quantity)

	body = map[string]interface{}{"products": []map[string]interface{}{
		{"product": p2, "quantity": 4},
	}}
	code, env = a.do(t, http.MethodPut, "/api/carts/"+cid, body)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, env.Cart.Products, 1)
	assert.Equal(t, p2, env.Cart.Products[0].ProductID)
	assert.InDelta(t, 8.0, env.Cart.Total, 1e-9)
}

func TestCartAPI_EmptyThenHardDelete(t *testing.T) {
	a := newAPI(t)
	cid := a.newCart(t)
	pid := a.store.SeedProduct("A", 1)
	a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+pid, nil)

	code, env := a.do(t, http.MethodDelete, "/api/carts/"+cid, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, cid, env.Cart.ID)
	assert.Empty(t, env.Cart.Products)

	code, env = a.do(t, http.MethodDelete, "/api/carts/"+cid+"/hard", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Deleted)

	code, _ = a.do(t, http.MethodGet, "/api/carts/"+cid, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCartAPI_DanglingProductRendered(t *testing.T) {
	a := newAPI(t)
	cid := a.newCart(t)
	pid := a.store.SeedProduct("A", 1)
	a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+pid, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+pid, nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	_, env := a.do(t, http.MethodGet, "/api/carts/"+cid, nil)
	require.Len(t, env.Cart.Products, 1)
	assert.True(t, env.Cart.Products[0].Removed)
	assert.Nil(t, env.Cart.Products[0].Product)
}

// --- Temps réel ---

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func dialViewer(t *testing.T, srv *httptest.Server, cid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?cid=" + cid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	assert.Equal(t, realtime.EventConnected, readEvent(t, conn).Type)
	assert.Equal(t, realtime.EventProductsUpdated, readEvent(t, conn).Type)
	return conn
}

func TestRealtime_TwoViewersConverge(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	cid := a.newCart(t)
	pid := a.store.SeedProduct("Mug", 2)

	v1 := dialViewer(t, srv, cid)
	v2 := dialViewer(t, srv, cid)
	require.Eventually(t, func() bool { return a.hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	a.do(t, http.MethodPost, "/api/carts/"+cid+"/items/"+pid, nil)
	a.do(t, http.MethodPut, "/api/carts/"+cid+"/items/"+pid, map[string]int{"quantity": 4})

	for _, v := range []*websocket.Conn{v1, v2} {
		first := readEvent(t, v)
		assert.Equal(t, realtime.EventCartUpdated, first.Type)
		assert.Equal(t, 1, first.Cart.Products[0].Quantity)

		last := readEvent(t, v)
		assert.Equal(t, cid, last.CartID)
		require.NotNil(t, last.Cart)
		assert.Equal(t, 4, last.Cart.Products[0].Quantity)
		assert.InDelta(t, 8.0, last.Cart.Total, 1e-9)
	}
}

func TestRealtime_OtherCartNotNotified(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	watched := a.newCart(t)
	other := a.newCart(t)
	pid := a.store.SeedProduct("Mug", 2)

	v := dialViewer(t, srv, watched)
	require.Eventually(t, func() bool { return a.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.do(t, http.MethodPost, "/api/carts/"+other+"/items/"+pid, nil)
	a.do(t, http.MethodDelete, "/api/carts/"+watched+"/hard", nil)

	ev := readEvent(t, v)
	assert.Equal(t, realtime.EventCartDeleted, ev.Type)
	assert.Equal(t, watched, ev.CartID)
}

func TestRealtime_CatalogCommandsOverWebsocket(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	sender := dialViewer(t, srv, a.newCart(t))
	watcher := dialViewer(t, srv, a.newCart(t))
	require.Eventually(t, func() bool { return a.hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.WriteJSON(map[string]interface{}{
		"type": realtime.MessageNewProduct,
		"product": map[string]interface{}{
			"title": "Bol", "description": "Bol en grès", "code": "BOL-1",
			"price": 4, "stock": 2, "category": "cuisine",
		},
	}))
	var pid string
	for _, v := range []*websocket.Conn{sender, watcher} {
		ev := readEvent(t, v)
		assert.Equal(t, realtime.EventProductsUpdated, ev.Type)
		require.Len(t, ev.Products, 1)
		assert.Equal(t, "Bol", ev.Products[0].Title)
		pid = ev.Products[0].ID
	}

	require.NoError(t, sender.WriteJSON(map[string]string{"type": realtime.MessageDeleteProduct, "pid": pid}))
	for _, v := range []*websocket.Conn{sender, watcher} {
		ev := readEvent(t, v)
		assert.Equal(t, realtime.EventProductsUpdated, ev.Type)
		assert.Empty(t, ev.Products)
	}

	require.NoError(t, sender.WriteJSON(map[string]string{"type": realtime.MessageDeleteProduct, "pid": "nope"}))
	ev := readEvent(t, sender)
	assert.Equal(t, realtime.EventError, ev.Type)
	assert.Equal(t, services.ErrInvalidID.Error(), ev.Message)
}

func TestRealtime_InvalidCartID(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/ws?cid=nope", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), handlers.CodeInvalidID)
}
