// Package handlers expose le panier et le temps réel en HTTP (gin).
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cedra_shop_sync/internal/services"
)

// Codes d'erreur renvoyés dans le champ "error"
const (
	CodeInvalidID      = "INVALID_ID"
	CodeNotFound       = "NOT_FOUND"
	CodeItemNotFound   = "ITEM_NOT_FOUND"
	CodeBadQuantity    = "BAD_QUANTITY"
	CodeBadBody        = "BAD_BODY"
	CodeStorageFailure = "STORAGE_FAILURE"
	CodeUnavailable    = "UNAVAILABLE"
)

// classify associe une erreur de service à un statut HTTP et un code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidID
	case errors.Is(err, services.ErrBadQuantity):
		return http.StatusBadRequest, CodeBadQuantity
	case errors.Is(err, services.ErrBadBody):
		return http.StatusBadRequest, CodeBadBody
	case errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound, CodeItemNotFound
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, services.ErrThumbnailsDisabled):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeStorageFailure
	}
}

// RespondError écrit la réponse d'erreur structurée. Les erreurs 5xx sont journalisées.
func RespondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"status":  "error",
		"error":   code,
		"message": err.Error(),
	})
}

// RespondSuccess écrit {"status":"success","message":...,<key>:<value>}.
func RespondSuccess(c *gin.Context, status int, message, key string, value interface{}) {
	body := gin.H{"status": "success", "message": message}
	if key != "" {
		body[key] = value
	}
	c.JSON(status, body)
}
