package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"cedra_shop_sync/internal/models"
)

// Publisher diffuse l'état après un commit. Best-effort : les erreurs sont journalisées,
// jamais remontées à la mutation qui a déjà réussi.
type Publisher interface {
	PublishCart(ctx context.Context, cid string, view models.CartView)
	PublishCartDeleted(ctx context.Context, cid string)
	PublishProducts(ctx context.Context, products []models.Product)
}

// RedisPublisher publie sur Redis ; chaque instance du serveur relaie ensuite via son Hub.
type RedisPublisher struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisPublisher(client *redis.Client, timeout time.Duration) *RedisPublisher {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &RedisPublisher{client: client, timeout: timeout}
}

func (p *RedisPublisher) PublishCart(ctx context.Context, cid string, view models.CartView) {
	p.publish(ctx, CartChannel(cid), Event{Type: EventCartUpdated, CartID: cid, Cart: &view})
}

func (p *RedisPublisher) PublishCartDeleted(ctx context.Context, cid string) {
	p.publish(ctx, CartChannel(cid), Event{Type: EventCartDeleted, CartID: cid})
}

func (p *RedisPublisher) PublishProducts(ctx context.Context, products []models.Product) {
	p.publish(ctx, ProductsChannel, Event{Type: EventProductsUpdated, Products: products})
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Encodage événement %s: %v", ev.Type, err)
		return
	}

	// La requête HTTP peut être annulée après la réponse : la diffusion ne doit pas en dépendre
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("⚠️ Diffusion %s sur %s perdue: %v", ev.Type, channel, err)
		return
	}
	log.Printf("📡 %s publié sur %s", ev.Type, channel)
}

// LocalPublisher remet les événements directement au Hub du processus (mode sans Redis).
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) PublishCart(_ context.Context, cid string, view models.CartView) {
	p.hub.Dispatch(Event{Type: EventCartUpdated, CartID: cid, Cart: &view})
}

func (p *LocalPublisher) PublishCartDeleted(_ context.Context, cid string) {
	p.hub.Dispatch(Event{Type: EventCartDeleted, CartID: cid})
}

func (p *LocalPublisher) PublishProducts(_ context.Context, products []models.Product) {
	p.hub.Dispatch(Event{Type: EventProductsUpdated, Products: products})
}

// NopPublisher ne diffuse rien : les clients n'ont que le chemin "pull".
type NopPublisher struct{}

func (NopPublisher) PublishCart(context.Context, string, models.CartView) {}
func (NopPublisher) PublishCartDeleted(context.Context, string)           {}
func (NopPublisher) PublishProducts(context.Context, []models.Product)    {}
