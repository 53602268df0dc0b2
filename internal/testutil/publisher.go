package testutil

import (
	"context"
	"sync"

	"cedra_shop_sync/internal/models"
)

// PublishedEvent garde une trace d'un appel au publisher.
type PublishedEvent struct {
	Type     string
	CartID   string
	Cart     *models.CartView
	Products []models.Product
}

// RecordingPublisher enregistre les événements diffusés, dans l'ordre.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (r *RecordingPublisher) PublishCart(_ context.Context, cid string, view models.CartView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, PublishedEvent{Type: "cartUpdated", CartID: cid, Cart: &view})
}

func (r *RecordingPublisher) PublishCartDeleted(_ context.Context, cid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, PublishedEvent{Type: "cartDeleted", CartID: cid})
}

func (r *RecordingPublisher) PublishProducts(_ context.Context, products []models.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, PublishedEvent{Type: "productsUpdated", Products: products})
}

func (r *RecordingPublisher) Events() []PublishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishedEvent{}, r.events...)
}

func (r *RecordingPublisher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
