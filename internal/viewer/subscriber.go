package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cedra_shop_sync/internal/realtime"
)

// Subscriber ouvre la websocket /ws et livre les événements reçus.
type Subscriber struct {
	url    string
	dialer *websocket.Dialer
}

func NewSubscriber(baseURL string) *Subscriber {
	ws := strings.TrimRight(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return &Subscriber{
		url:    ws,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

// Run se connecte (abonné au panier cid s'il est fourni) et appelle handle pour chaque événement.
// onOpen est appelé une fois la connexion établie. Renvoie nil à l'annulation de ctx,
// une erreur si la connexion échoue ou tombe.
func (s *Subscriber) Run(ctx context.Context, cid string, onOpen func(), handle func(realtime.Event)) error {
	target := s.url
	if cid != "" {
		target += "?cid=" + url.QueryEscape(cid)
	}

	conn, _, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("connexion websocket: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if onOpen != nil {
		onOpen()
	}
	log.Printf("🔌 Websocket connectée: %s", target)

	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("websocket fermée par le serveur")
			}
			return fmt.Errorf("lecture websocket: %w", err)
		}
		handle(ev)
	}
}
