package viewer

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

type server struct {
	*httptest.Server
	store *testutil.MemStore
	hub   *realtime.Hub
	api   *API
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := testutil.NewMemStore()
	hub := realtime.NewHub()
	pub := realtime.NewLocalPublisher(hub)
	catalog := services.NewCatalogService(st, pub)

	r := gin.New()
	routes.RegisterRoutes(r, routes.Deps{
		Carts:     handlers.NewCartHandler(services.NewCartService(st, pub)),
		Products:  product.NewHandler(catalog),
		WebSocket: handlers.NewWebSocketHandler(hub, catalog, []string{"*"}),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &server{Server: srv, store: st, hub: hub, api: NewAPI(srv.URL, nil)}
}

func (s *server) newCart(t *testing.T) string {
	t.Helper()
	cart, err := s.api.CreateCart(context.Background())
	require.NoError(t, err)
	return cart.ID
}

func TestAPI_ErrorsAreStructured(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.api.GetCart(ctx, "abc")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "INVALID_ID", apiErr.Code)

	cid := s.newCart(t)
	_, err = s.api.AddItem(ctx, cid, uuid.NewString())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "produit introuvable", apiErr.Message)

	err = s.api.DeleteCart(ctx, cid)
	require.NoError(t, err)
	err = s.api.DeleteCart(ctx, cid)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
}

func TestAPI_CartOperations(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	cid := s.newCart(t)
	p1 := s.store.SeedProduct("A", 2)
	p2 := s.store.SeedProduct("B", 3)

	_, err := s.api.AddItem(ctx, cid, p1)
	require.NoError(t, err)
	cart, err := s.api.SetQuantity(ctx, cid, p1, 3)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, cart.Total, 1e-9)

	cart, err = s.api.ReplaceItems(ctx, cid, []models.CartLine{{ProductID: p2, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, p2, cart.Products[0].ProductID)

	cart, err = s.api.RemoveItem(ctx, cid, p2)
	require.NoError(t, err)
	assert.Empty(t, cart.Products)

	cart, err = s.api.EmptyCart(ctx, cid)
	require.NoError(t, err)
	assert.Equal(t, cid, cart.ID)

	list, err := s.api.ListProducts(ctx, ListOptions{Sort: "desc", Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Payload, 1)
	assert.Equal(t, "B", list.Payload[0].Title)
	assert.True(t, list.HasNextPage)
}

func TestCartView_FailedMutationKeepsState(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	cid := s.newCart(t)
	pid := s.store.SeedProduct("A", 2)

	view := NewCartView(s.api, cid)
	require.NoError(t, view.Mutate(ctx, func(ctx context.Context, api *API, cid string) error {
		_, err := api.AddItem(ctx, cid, pid)
		return err
	}))
	before := view.State()
	require.Len(t, before.Cart.Products, 1)

	err := view.Mutate(ctx, func(ctx context.Context, api *API, cid string) error {
		_, err := api.SetQuantity(ctx, cid, pid, 0)
		return err
	})
	require.Error(t, err)

	after := view.State()
	assert.Equal(t, before.Cart, after.Cart)
	assert.Equal(t, "la quantité doit être un entier supérieur à 0", after.LastError)
}

func TestCartView_ApplyIgnoresOtherCarts(t *testing.T) {
	view := NewCartView(NewAPI("http://unused", nil), "c1")

	assert.False(t, view.Apply(realtime.Event{Type: realtime.EventCartUpdated, CartID: "c2", Cart: &models.CartView{ID: "c2"}}))
	assert.True(t, view.Apply(realtime.Event{Type: realtime.EventCartUpdated, CartID: "c1", Cart: &models.CartView{ID: "c1", Count: 3}}))
	assert.Equal(t, 3, view.State().Cart.Count)

	assert.True(t, view.Apply(realtime.Event{Type: realtime.EventCartDeleted, CartID: "c1"}))
	assert.True(t, view.State().Deleted)
}

func TestWatchCart_TwoViewersConvergeByPush(t *testing.T) {
	s := newServer(t)
	cid := s.newCart(t)
	pid := s.store.SeedProduct("Mug", 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := []*CartView{NewCartView(s.api, cid), NewCartView(s.api, cid)}
	for _, v := range views {
		v := v
		go func() { _ = WatchCart(ctx, v, NewSubscriber(s.URL), time.Hour) }()
	}
	require.Eventually(t, func() bool { return s.hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	_, err := s.api.AddItem(ctx, cid, pid)
	require.NoError(t, err)
	_, err = s.api.AddItem(ctx, cid, pid)
	require.NoError(t, err)

	for _, v := range views {
		v := v
		require.Eventually(t, func() bool {
			st := v.State()
			return len(st.Cart.Products) == 1 && st.Cart.Products[0].Quantity == 2
		}, 2*time.Second, 10*time.Millisecond)
		assert.InDelta(t, 10.0, v.State().Cart.Total, 1e-9)
	}

	require.NoError(t, s.api.DeleteCart(ctx, cid))
	for _, v := range views {
		v := v
		require.Eventually(t, func() bool { return v.State().Deleted }, 2*time.Second, 10*time.Millisecond)
	}
}

func TestWatchCart_PullFallback(t *testing.T) {
	s := newServer(t)
	cid := s.newCart(t)
	pid := s.store.SeedProduct("Mug", 5)

	// Websocket injoignable : la vue retombe sur la relecture périodique
	dead := httptest.NewServer(nil)
	dead.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	view := NewCartView(s.api, cid)
	go func() { _ = WatchCart(ctx, view, NewSubscriber(dead.URL), 20*time.Millisecond) }()

	require.Eventually(t, func() bool { return view.State().Loaded }, 2*time.Second, 10*time.Millisecond)
	_, err := s.api.AddItem(ctx, cid, pid)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(view.State().Cart.Products) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.hub.Count())
}

func TestWatchCart_RedialsAfterDrop(t *testing.T) {
	s := newServer(t)
	cid := s.newCart(t)
	pid := s.store.SeedProduct("Mug", 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	view := NewCartView(s.api, cid)
	go func() { _ = WatchCart(ctx, view, NewSubscriber(s.URL), time.Hour) }()
	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Coupure côté serveur : la vue repasse en relecture puis se reconnecte
	s.hub.Close()
	require.Eventually(t, func() bool { return s.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 5*time.Second, 20*time.Millisecond)

	// Le poll d'une heure ne peut pas expliquer la mise à jour : elle arrive par push
	_, err := s.api.AddItem(ctx, cid, pid)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(view.State().Cart.Products) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchCatalog_ReceivesProductsUpdated(t *testing.T) {
	s := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := NewCatalogView(s.api)
	go func() { _ = WatchCatalog(ctx, view, NewSubscriber(s.URL), time.Hour) }()
	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	title, desc, code, cat := "Bol", "Bol à soupe", "BOL-1", "cuisine"
	price, stock := 4.0, 2.0
	catalog := services.NewCatalogService(s.store, realtime.NewLocalPublisher(s.hub))
	_, err := catalog.Create(ctx, models.ProductInput{
		Title: &title, Description: &desc, Code: &code, Price: &price, Stock: &stock, Category: &cat,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		products := view.Products()
		return len(products) == 1 && products[0].Title == "Bol"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRenderCart(t *testing.T) {
	p := models.Product{Title: "Mug", Price: 2.5}
	state := CartState{Cart: models.CartView{
		ID: "c1",
		Products: []models.ResolvedLine{
			{ProductID: "p1", Product: &p, Quantity: 2, Subtotal: 5},
			{ProductID: "p2", Quantity: 1, Removed: true},
		},
		Total: 5,
		Count: 2,
	}, LastError: "produit introuvable"}

	var buf bytes.Buffer
	require.NoError(t, RenderCart(&buf, state))
	out := buf.String()
	assert.Contains(t, out, "Mug")
	assert.Contains(t, out, "produit supprimé")
	assert.Contains(t, out, "5.00")
	assert.Contains(t, out, "produit introuvable")

	buf.Reset()
	require.NoError(t, RenderCart(&buf, CartState{Cart: models.CartView{ID: "c1"}, Deleted: true}))
	assert.Contains(t, buf.String(), "supprimé")
}

func TestNewSubscriber_URL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", NewSubscriber("http://localhost:8080/").url)
	assert.Equal(t, "wss://shop.example.com/ws", NewSubscriber("https://shop.example.com").url)
}
