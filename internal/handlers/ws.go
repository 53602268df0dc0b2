package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cedra_shop_sync/internal/realtime"
	"cedra_shop_sync/internal/services"
)

// WebSocketHandler branche les navigateurs et les viewers terminal sur le hub.
type WebSocketHandler struct {
	hub      *realtime.Hub
	catalog  *services.CatalogService
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *realtime.Hub, catalog *services.CatalogService, origins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		catalog: catalog,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // clients non navigateur
		}
		_, ok := allowed[origin]
		return ok
	}
}

// 🔌 GET /ws?cid=<cid>
// Envoie "connected" puis la première page du catalogue, puis relaie les événements.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	var cartIDs []string
	if cid := c.Query("cid"); cid != "" {
		parsed, err := uuid.Parse(cid)
		if err != nil {
			RespondError(c, services.ErrInvalidID)
			return
		}
		cartIDs = append(cartIDs, parsed.String())
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}

	initial := []realtime.Event{{Type: realtime.EventConnected, Message: "Synchronisation temps réel activée"}}
	products, err := h.catalog.FirstPage(c.Request.Context())
	if err != nil {
		log.Printf("⚠️ Catalogue initial indisponible: %v", err)
	} else {
		initial = append(initial, realtime.Event{Type: realtime.EventProductsUpdated, Products: products})
	}

	h.hub.Serve(conn, cartIDs, initial...)
}
