// Package cache garde les pages du catalogue dans Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cedra_shop_sync/internal/models"
	"cedra_shop_sync/internal/store"
)

const (
	ProductPageTTL = 10 * time.Minute
	pageKeyPrefix  = "products:page:"
	// generationKey est incrémenté à chaque invalidation ; il fait partie de la clé des pages.
	generationKey = "products:generation"
)

// ProductPages met en cache les pages de listing. Un ProductPages nil ne cache rien.
type ProductPages struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductPages(rdb *redis.Client) *ProductPages {
	if rdb == nil {
		return nil
	}
	return &ProductPages{rdb: rdb, ttl: ProductPageTTL}
}

// Key identifie une requête de listing normalisée, pour une génération du catalogue.
func Key(gen int64, q store.ProductQuery) string {
	q = q.Normalize()
	f := q.Filter
	var b strings.Builder
	fmt.Fprintf(&b, "%s%d:%d:%d:%s", pageKeyPrefix, gen, q.Page, q.Limit, q.Sort)
	if f.Category != nil {
		fmt.Fprintf(&b, ":c=%s", strings.ToLower(*f.Category))
	}
	if f.Status != nil {
		fmt.Fprintf(&b, ":s=%t", *f.Status)
	}
	if f.Text != "" {
		fmt.Fprintf(&b, ":q=%s", strings.ToLower(f.Text))
	}
	return b.String()
}

// Generation lit la génération courante. À lire avant le store : une page lue pendant une
// invalidation est rangée sous l'ancienne génération et n'est plus jamais servie.
// ok est faux quand le cache est désactivé ou Redis injoignable.
func (p *ProductPages) Generation(ctx context.Context) (gen int64, ok bool) {
	if p == nil {
		return 0, false
	}
	gen, err := p.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

// Get récupère une page depuis Redis. Toute erreur est un cache miss.
func (p *ProductPages) Get(ctx context.Context, gen int64, q store.ProductQuery) (models.ProductPage, bool) {
	if p == nil {
		return models.ProductPage{}, false
	}
	data, err := p.rdb.Get(ctx, Key(gen, q)).Bytes()
	if err != nil {
		return models.ProductPage{}, false
	}
	var page models.ProductPage
	if json.Unmarshal(data, &page) != nil {
		return models.ProductPage{}, false
	}
	return page, true
}

func (p *ProductPages) Set(ctx context.Context, gen int64, q store.ProductQuery, page models.ProductPage) {
	if p == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, Key(gen, q), data, p.ttl).Err(); err != nil {
		log.Printf("⚠️ Mise en cache du catalogue impossible: %v", err)
	}
}

// Invalidate change de génération après une mutation du catalogue, puis supprime les pages existantes.
func (p *ProductPages) Invalidate(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.rdb.Incr(ctx, generationKey).Err(); err != nil {
		log.Printf("⚠️ Invalidation du cache catalogue: %v", err)
	}

	iter := p.rdb.Scan(ctx, 0, pageKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️ Nettoyage du cache catalogue: %v", err)
		return
	}
	if len(keys) > 0 {
		p.rdb.Del(ctx, keys...)
	}
}
