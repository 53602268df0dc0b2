package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cedra_shop_sync/internal/handlers"
	"cedra_shop_sync/internal/handlers/product"
	"cedra_shop_sync/internal/middleware"
)

// Deps regroupe ce dont les routes ont besoin. Redis peut être nil.
type Deps struct {
	Carts     *handlers.CartHandler
	Products  *product.Handler
	WebSocket *handlers.WebSocketHandler

	Redis         *redis.Client
	CartRateLimit int
	CORSOrigins   []string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", d.WebSocket.Serve)

	api := r.Group("/api")

	// Produits
	products := api.Group("/products")
	products.GET("", d.Products.List)
	products.GET("/:pid", d.Products.Get)
	products.POST("", d.Products.Create)
	products.PUT("/:pid", d.Products.Update)
	products.DELETE("/:pid", d.Products.Delete)
	products.POST("/:pid/thumbnails", d.Products.UploadThumbnail)

	// Paniers
	carts := api.Group("/carts", middleware.CartRateLimit(d.Redis, d.CartRateLimit))
	carts.POST("", d.Carts.Create)
	carts.GET("/:cid", d.Carts.Get)
	carts.PUT("/:cid", d.Carts.Replace)
	carts.DELETE("/:cid", d.Carts.Empty)
	carts.DELETE("/:cid/hard", d.Carts.Delete)
	carts.POST("/:cid/items/:pid", d.Carts.AddItem)
	carts.PUT("/:cid/items/:pid", d.Carts.SetQuantity)
	carts.DELETE("/:cid/items/:pid", d.Carts.RemoveItem)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
