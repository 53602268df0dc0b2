// Package realtime diffuse les snapshots de paniers et du catalogue aux clients connectés.
//
// Livraison au plus une fois, sans file ni rejeu : un client connecté après un événement
// ne le reçoit jamais et doit relire l'état par l'API.
package realtime

import (
	"strings"

	"cedra_shop_sync/internal/models"
)

const (
	EventConnected       = "connected"
	EventCartUpdated     = "cartUpdated"
	EventCartDeleted     = "cartDeleted"
	EventProductsUpdated = "productsUpdated"
	// EventError n'est envoyé qu'au client dont la commande a échoué.
	EventError = "error"
)

// Messages acceptés depuis un client
const (
	MessageSubscribe     = "subscribe"
	MessageUnsubscribe   = "unsubscribe"
	MessageNewProduct    = "newProduct"
	MessageDeleteProduct = "deleteProduct"
)

// Canaux Redis
const (
	ProductsChannel    = "products"
	cartChannelPrefix  = "cart:"
	CartChannelPattern = cartChannelPrefix + "*"
)

type Event struct {
	Type     string           `json:"type"`
	CartID   string           `json:"cid,omitempty"`
	Cart     *models.CartView `json:"cart,omitempty"`
	Products []models.Product `json:"products,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func CartChannel(cid string) string {
	return cartChannelPrefix + cid
}

// CartIDFromChannel extrait l'id d'un canal "cart:<cid>".
func CartIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, cartChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, cartChannelPrefix), true
}

// scoped indique si l'événement ne concerne que les abonnés d'un panier.
func (e Event) scoped() bool {
	return e.Type == EventCartUpdated || e.Type == EventCartDeleted
}
