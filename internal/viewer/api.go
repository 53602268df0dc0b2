// Package viewer est le côté client : il lit l'état par l'API, applique les snapshots poussés
// et retombe sur la relecture quand la websocket n'est pas disponible.
package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cedra_shop_sync/internal/models"
)

// APIError est l'erreur structurée renvoyée par le serveur.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// API est un client HTTP pour les routes /api.
type API struct {
	base   string
	client *http.Client
}

func NewAPI(base string, client *http.Client) *API {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{base: strings.TrimRight(base, "/"), client: client}
}

// BaseURL retourne l'adresse du serveur, sans slash final.
func (a *API) BaseURL() string {
	return a.base
}

type response struct {
	Status  string          `json:"status"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Cart    models.CartView `json:"cart"`
	Product models.Product  `json:"product"`
}

// ProductList est l'enveloppe du listing paginé.
type ProductList struct {
	Payload     []models.Product `json:"payload"`
	TotalPages  int              `json:"totalPages"`
	Page        int              `json:"page"`
	HasPrevPage bool             `json:"hasPrevPage"`
	HasNextPage bool             `json:"hasNextPage"`
	PrevLink    *string          `json:"prevLink"`
	NextLink    *string          `json:"nextLink"`
}

// ListOptions reprend les paramètres de GET /api/products. Les zéros prennent les valeurs du serveur.
type ListOptions struct {
	Page  int
	Limit int
	Sort  string
	Query string
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var r response
		if err := json.NewDecoder(res.Body).Decode(&r); err != nil || r.Error == "" {
			return &APIError{Status: res.StatusCode, Code: "HTTP_ERROR", Message: res.Status}
		}
		return &APIError{Status: res.StatusCode, Code: r.Error, Message: r.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("décodage réponse %s %s: %w", method, path, err)
	}
	return nil
}

func (a *API) cart(ctx context.Context, method, path string, body interface{}) (models.CartView, error) {
	var r response
	if err := a.do(ctx, method, path, body, &r); err != nil {
		return models.CartView{}, err
	}
	return r.Cart, nil
}

func cartPath(cid string) string {
	return "/api/carts/" + url.PathEscape(cid)
}

func itemPath(cid, pid string) string {
	return cartPath(cid) + "/items/" + url.PathEscape(pid)
}

func (a *API) CreateCart(ctx context.Context) (models.CartView, error) {
	return a.cart(ctx, http.MethodPost, "/api/carts", nil)
}

func (a *API) GetCart(ctx context.Context, cid string) (models.CartView, error) {
	return a.cart(ctx, http.MethodGet, cartPath(cid), nil)
}

func (a *API) AddItem(ctx context.Context, cid, pid string) (models.CartView, error) {
	return a.cart(ctx, http.MethodPost, itemPath(cid, pid), nil)
}

func (a *API) SetQuantity(ctx context.Context, cid, pid string, qty int) (models.CartView, error) {
	return a.cart(ctx, http.MethodPut, itemPath(cid, pid), map[string]int{"quantity": qty})
}

func (a *API) RemoveItem(ctx context.Context, cid, pid string) (models.CartView, error) {
	return a.cart(ctx, http.MethodDelete, itemPath(cid, pid), nil)
}

func (a *API) ReplaceItems(ctx context.Context, cid string, lines []models.CartLine) (models.CartView, error) {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return a.cart(ctx, http.MethodPut, cartPath(cid), map[string]interface{}{"products": lines})
}

func (a *API) EmptyCart(ctx context.Context, cid string) (models.CartView, error) {
	return a.cart(ctx, http.MethodDelete, cartPath(cid), nil)
}

func (a *API) DeleteCart(ctx context.Context, cid string) error {
	return a.do(ctx, http.MethodDelete, cartPath(cid)+"/hard", nil, nil)
}

func (a *API) ListProducts(ctx context.Context, opts ListOptions) (ProductList, error) {
	params := url.Values{}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	if opts.Query != "" {
		params.Set("query", opts.Query)
	}
	path := "/api/products"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var list ProductList
	if err := a.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return ProductList{}, err
	}
	return list, nil
}
