package viewer

import (
	"context"
	"log"
	"time"

	"cedra_shop_sync/internal/realtime"
)

const DefaultPollInterval = 2 * time.Second

// Délais de reconnexion de la websocket, doublés à chaque échec
const (
	redialMin = time.Second
	redialMax = 30 * time.Second
)

// watch relit l'état, puis suit la websocket. Tant qu'elle est absente ou tombée, la vue est relue
// toutes les poll et la connexion est retentée avec un délai croissant, jusqu'à l'annulation de ctx.
func watch(ctx context.Context, sub *Subscriber, cid string, poll time.Duration,
	reload func(context.Context) error, setPush func(bool), apply func(realtime.Event)) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if err := reload(ctx); err != nil {
		return err
	}
	if sub == nil {
		pollUntil(ctx, poll, nil, reload)
		return nil
	}

	backoff := redialMin
	for {
		opened := false
		err := sub.Run(ctx, cid, func() {
			opened = true
			setPush(true)
			// Des événements ont pu être publiés pendant que la websocket était fermée
			if err := reload(ctx); err != nil {
				log.Printf("⚠️ Relecture après connexion: %v", err)
			}
		}, apply)
		setPush(false)
		if ctx.Err() != nil {
			return nil
		}
		if opened {
			backoff = redialMin
		}
		log.Printf("⚠️ Push indisponible, relecture toutes les %s, reconnexion dans %s: %v", poll, backoff, err)

		redial := time.NewTimer(backoff)
		pollUntil(ctx, poll, redial.C, reload)
		redial.Stop()
		if ctx.Err() != nil {
			return nil
		}
		if backoff *= 2; backoff > redialMax {
			backoff = redialMax
		}
	}
}

// pollUntil relit la vue toutes les poll jusqu'à l'annulation de ctx ou un signal sur stop.
func pollUntil(ctx context.Context, poll time.Duration, stop <-chan time.Time, reload func(context.Context) error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := reload(ctx); err != nil && ctx.Err() == nil {
				log.Printf("⚠️ Relecture impossible: %v", err)
			}
		}
	}
}

// WatchCart garde view à jour. sub nil force le mode relecture.
func WatchCart(ctx context.Context, view *CartView, sub *Subscriber, poll time.Duration) error {
	return watch(ctx, sub, view.CartID(), poll, view.Load, view.SetPushActive, func(ev realtime.Event) {
		view.Apply(ev)
	})
}

// WatchCatalog garde la première page du catalogue à jour.
func WatchCatalog(ctx context.Context, view *CatalogView, sub *Subscriber, poll time.Duration) error {
	return watch(ctx, sub, "", poll, view.Load, func(bool) {}, func(ev realtime.Event) {
		view.Apply(ev)
	})
}
