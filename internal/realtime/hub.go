package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"cedra_shop_sync/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second // Ping pour garder la connexion active
	maxMessageSize = 4096
	sendBuffer     = 32
	commandTimeout = 10 * time.Second
)

// CatalogCommands exécute les commandes catalogue reçues par websocket. La diffusion de
// productsUpdated reste à la charge de l'implémentation, comme pour une mutation HTTP.
type CatalogCommands interface {
	Create(ctx context.Context, in models.ProductInput) (models.Product, error)
	Delete(ctx context.Context, pid string) (models.Product, error)
}

// Hub relaie les événements vers les websockets connectées.
// Les événements de panier ne vont qu'aux clients abonnés à ce panier ; ceux du catalogue vont à tous.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	commands CatalogCommands

	ready     chan struct{}
	readyOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		ready:   make(chan struct{}),
	}
}

// Ready est fermé quand l'abonnement Redis est confirmé.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Run s'abonne aux canaux Redis et relaie chaque message jusqu'à l'annulation de ctx.
func (h *Hub) Run(ctx context.Context, rdb *redis.Client) error {
	pubsub := rdb.PSubscribe(ctx, CartChannelPattern)
	defer pubsub.Close()

	if err := pubsub.Subscribe(ctx, ProductsChannel); err != nil {
		return fmt.Errorf("abonnement %s: %w", ProductsChannel, err)
	}
	// Deux confirmations attendues : psubscribe + subscribe
	for i := 0; i < 2; i++ {
		if _, err := pubsub.Receive(ctx); err != nil {
			return fmt.Errorf("confirmation abonnement Redis: %w", err)
		}
	}
	h.readyOnce.Do(func() { close(h.ready) })
	log.Printf("✅ Hub temps réel abonné à %s et %s", CartChannelPattern, ProductsChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("⚠️ Message ignoré sur %s: %v", msg.Channel, err)
				continue
			}
			h.Dispatch(ev)
		}
	}
}

// HandleCommands branche les commandes newProduct / deleteProduct. Sans handler, elles sont refusées.
func (h *Hub) HandleCommands(cmds CatalogCommands) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = cmds
}

func (h *Hub) catalogCommands() CatalogCommands {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.commands
}

// Dispatch envoie l'événement sans jamais bloquer : si le tampon d'un client est plein,
// l'événement est perdu pour ce client.
func (h *Hub) Dispatch(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Encodage événement %s: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		if ev.scoped() && !c.Subscribed(ev.CartID) {
			continue
		}
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("⚠️ %s perdu pour %d client(s) lent(s)", ev.Type, dropped)
	}
}

// Count retourne le nombre de clients connectés.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close déconnecte tous les clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve prend en charge une connexion déjà upgradée et bloque jusqu'à sa fermeture.
// Les événements initiaux sont envoyés avant tout événement diffusé.
func (h *Hub) Serve(conn *websocket.Conn, cartIDs []string, initial ...Event) {
	c := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		carts: make(map[string]struct{}),
	}
	for _, cid := range cartIDs {
		c.Subscribe(cid)
	}
	for _, ev := range initial {
		if data, err := json.Marshal(ev); err == nil {
			c.send <- data
		}
	}

	h.register(c)
	go c.writePump()
	c.readPump()
}

// Client est une connexion websocket et l'ensemble des paniers qu'elle suit.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.Mutex
	carts map[string]struct{}
}

type clientMessage struct {
	Type      string              `json:"type"`
	CartID    string              `json:"cid"`
	ProductID string              `json:"pid"`
	Product   models.ProductInput `json:"product"`
}

func (c *Client) Subscribe(cid string) {
	if cid == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[cid] = struct{}{}
}

func (c *Client) Unsubscribe(cid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, cid)
}

func (c *Client) Subscribed(cid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.carts[cid]
	return ok
}

func (c *Client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("❌ WebSocket fermée: %v", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MessageSubscribe:
			c.Subscribe(msg.CartID)
		case MessageUnsubscribe:
			c.Unsubscribe(msg.CartID)
		case MessageNewProduct, MessageDeleteProduct:
			c.runCommand(msg)
		}
	}
}

// runCommand exécute une commande catalogue. Le succès se voit par le productsUpdated diffusé ;
// l'échec n'est renvoyé qu'à ce client.
func (c *Client) runCommand(msg clientMessage) {
	cmds := c.hub.catalogCommands()
	if cmds == nil {
		c.reply(Event{Type: EventError, Message: "commandes catalogue non disponibles"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case MessageNewProduct:
		_, err = cmds.Create(ctx, msg.Product)
	case MessageDeleteProduct:
		_, err = cmds.Delete(ctx, msg.ProductID)
	}
	if err != nil {
		log.Printf("⚠️ Commande %s refusée: %v", msg.Type, err)
		c.reply(Event{Type: EventError, Message: err.Error()})
	}
}

// reply envoie un événement à ce seul client, sans bloquer. Appelé depuis readPump,
// donc avant que unregister ne ferme send.
func (c *Client) reply(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("⚠️ %s perdu pour un client lent", ev.Type)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
