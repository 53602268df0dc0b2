package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"

	"cedra_shop_sync/internal/cache"
	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/realtime"
	"cedra_shop_sync/internal/store"
)

// CatalogService gère le CRUD produit et le listing paginé.
// Après chaque mutation : cache invalidé, index mis à jour, première page diffusée.
type CatalogService struct {
	store     store.Store
	publisher realtime.Publisher
	cache     *cache.ProductPages
	search    *SearchIndex
	thumbs    *ThumbnailStore
}

func NewCatalogService(st store.Store, pub realtime.Publisher) *CatalogService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &CatalogService{store: st, publisher: pub}
}

func (s *CatalogService) WithCache(c *cache.ProductPages) *CatalogService {
	s.cache = c
	return s
}

func (s *CatalogService) WithSearch(idx *SearchIndex) *CatalogService {
	s.search = idx
	return s
}

func (s *CatalogService) WithThumbnails(t *ThumbnailStore) *CatalogService {
	s.thumbs = t
	return s
}

// List renvoie une page du catalogue. La recherche texte passe par Elasticsearch quand il est
// disponible, sinon par le filtre en mémoire du store.
func (s *CatalogService) List(ctx context.Context, q store.ProductQuery) (models.ProductPage, error) {
	q = q.Normalize()

	// La génération est lue avant le store : une mutation concurrente rend cette lecture inutilisable
	gen, cacheable := s.cache.Generation(ctx)
	var (
		page models.ProductPage
		ok   bool
	)
	if cacheable {
		page, ok = s.cache.Get(ctx, gen, q)
	}
	if !ok {
		lookup := q
		if q.Filter.Text != "" && s.search.enabled() {
			ids, err := s.search.Search(ctx, q.Filter.Text)
			if err != nil {
				log.Printf("⚠️ Recherche Elastic indisponible, filtre local: %v", err)
			} else {
				lookup.Filter.IDs = ids
				lookup.Filter.Text = ""
			}
		}

		var err error
		page, err = s.store.ListProducts(ctx, lookup)
		if err != nil {
			return models.ProductPage{}, storageErr(err, nil)
		}
		if cacheable {
			s.cache.Set(ctx, gen, q, page)
		}
	}

	for i := range page.Docs {
		page.Docs[i].Thumbnails = s.thumbs.Sign(ctx, page.Docs[i].Thumbnails)
	}
	return page, nil
}

// FirstPage est la page diffusée après chaque mutation et à la connexion d'un client.
func (s *CatalogService) FirstPage(ctx context.Context) ([]models.Product, error) {
	page, err := s.List(ctx, store.ProductQuery{Page: store.DefaultPage, Limit: store.DefaultLimit})
	if err != nil {
		return nil, err
	}
	return page.Docs, nil
}

func (s *CatalogService) Get(ctx context.Context, pid string) (models.Product, error) {
	pid, err := canonicalID(pid)
	if err != nil {
		return models.Product{}, err
	}
	p, err := s.store.FindProduct(ctx, pid)
	if err != nil {
		return models.Product{}, storageErr(err, ErrProductNotFound)
	}
	p.Thumbnails = s.thumbs.Sign(ctx, p.Thumbnails)
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in models.ProductInput) (models.Product, error) {
	p, err := productFromInput(in)
	if err != nil {
		return models.Product{}, err
	}
	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return models.Product{}, storageErr(err, nil)
	}
	s.afterChange(ctx, &created, "")
	created.Thumbnails = s.thumbs.Sign(ctx, created.Thumbnails)
	return created, nil
}

func (s *CatalogService) Update(ctx context.Context, pid string, upd models.ProductUpdate) (models.Product, error) {
	pid, err := canonicalID(pid)
	if err != nil {
		return models.Product{}, err
	}
	if upd.IsEmpty() {
		return models.Product{}, fmt.Errorf("%w: aucun champ à modifier", ErrBadBody)
	}
	if upd.Stock != nil && !isWhole(*upd.Stock) {
		return models.Product{}, fmt.Errorf("%w: stock doit être un entier", ErrBadBody)
	}

	updated, err := s.store.UpdateProduct(ctx, pid, upd)
	if err != nil {
		return models.Product{}, storageErr(err, ErrProductNotFound)
	}
	s.afterChange(ctx, &updated, "")
	updated.Thumbnails = s.thumbs.Sign(ctx, updated.Thumbnails)
	return updated, nil
}

// Delete supprime le produit sans toucher aux paniers qui le référencent.
func (s *CatalogService) Delete(ctx context.Context, pid string) (models.Product, error) {
	pid, err := canonicalID(pid)
	if err != nil {
		return models.Product{}, err
	}
	deleted, err := s.store.DeleteProduct(ctx, pid)
	if err != nil {
		return models.Product{}, storageErr(err, ErrProductNotFound)
	}
	s.afterChange(ctx, nil, deleted.ID)
	deleted.Thumbnails = s.thumbs.Sign(ctx, deleted.Thumbnails)
	return deleted, nil
}

// AddThumbnail envoie une image dans MinIO et l'ajoute en fin de liste des miniatures.
func (s *CatalogService) AddThumbnail(ctx context.Context, pid, filename, contentType string, r io.Reader, size int64) (models.Product, error) {
	if !s.thumbs.enabled() {
		return models.Product{}, ErrThumbnailsDisabled
	}
	pid, err := canonicalID(pid)
	if err != nil {
		return models.Product{}, err
	}
	current, err := s.store.FindProduct(ctx, pid)
	if err != nil {
		return models.Product{}, storageErr(err, ErrProductNotFound)
	}

	ref, err := s.thumbs.Upload(ctx, pid, filename, contentType, r, size)
	if err != nil {
		return models.Product{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	thumbnails := append(append([]string{}, current.Thumbnails...), ref)
	updated, err := s.store.UpdateProduct(ctx, pid, models.ProductUpdate{Thumbnails: &thumbnails})
	if err != nil {
		return models.Product{}, storageErr(err, ErrProductNotFound)
	}
	s.afterChange(ctx, &updated, "")

	updated.Thumbnails = s.thumbs.Sign(ctx, updated.Thumbnails)
	return updated, nil
}

// afterChange propage une mutation réussie. Aucune de ces étapes ne fait échouer la mutation.
func (s *CatalogService) afterChange(ctx context.Context, changed *models.Product, deletedID string) {
	s.cache.Invalidate(ctx)
	if changed != nil {
		s.search.Index(ctx, *changed)
	}
	if deletedID != "" {
		s.search.Delete(ctx, deletedID)
	}

	products, err := s.FirstPage(ctx)
	if err != nil {
		log.Printf("⚠️ Diffusion du catalogue impossible: %v", err)
		return
	}
	s.publisher.PublishProducts(ctx, products)
}

func productFromInput(in models.ProductInput) (models.Product, error) {
	missing := func(name string) error {
		return fmt.Errorf("%w: champ obligatoire manquant: %s", ErrBadBody, name)
	}
	switch {
	case in.Title == nil:
		return models.Product{}, missing("title")
	case in.Description == nil:
		return models.Product{}, missing("description")
	case in.Code == nil:
		return models.Product{}, missing("code")
	case in.Price == nil:
		return models.Product{}, missing("price")
	case in.Stock == nil:
		return models.Product{}, missing("stock")
	case in.Category == nil:
		return models.Product{}, missing("category")
	}
	if !isWhole(*in.Stock) {
		return models.Product{}, fmt.Errorf("%w: stock doit être un entier", ErrBadBody)
	}

	p := models.Product{
		Title:       *in.Title,
		Description: *in.Description,
		Code:        *in.Code,
		Price:       *in.Price,
		Stock:       int(*in.Stock),
		Status:      true,
		Category:    *in.Category,
		Thumbnails:  append([]string{}, in.Thumbnails...),
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	return p, nil
}

func isWhole(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}
