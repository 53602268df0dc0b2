package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cedra_shop_sync/internal/cache"
	"cedra_shop_sync/internal/config"
	"cedra_shop_sync/internal/database"
	"cedra_shop_sync/internal/handlers"
	"cedra_shop_sync/internal/handlers/product"
	"cedra_shop_sync/internal/realtime"
	"cedra_shop_sync/internal/routes"
	"cedra_shop_sync/internal/services"
	"cedra_shop_sync/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases impossible: %v", err)
	}
	defer conns.Close()

	st := store.NewScyllaStore(conns.Scylla)

	// Temps réel : Redis relie les instances, sinon diffusion directe au hub local
	hub := realtime.NewHub()
	var publisher realtime.Publisher
	if conns.Redis != nil {
		publisher = realtime.NewRedisPublisher(conns.Redis, cfg.PublishTimeout)
		go func() {
			if err := hub.Run(ctx, conns.Redis); err != nil {
				log.Printf("❌ Hub temps réel arrêté: %v", err)
			}
		}()
	} else {
		publisher = realtime.NewLocalPublisher(hub)
	}

	thumbs := services.NewThumbnailStore(conns.MinIO, conns.Bucket)
	carts := services.NewCartService(st, publisher).WithThumbnails(thumbs)
	catalog := services.NewCatalogService(st, publisher).
		WithCache(cache.NewProductPages(conns.Redis)).
		WithSearch(services.NewSearchIndex(conns.Elastic)).
		WithThumbnails(thumbs)
	hub.HandleCommands(catalog)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	routes.RegisterRoutes(r, routes.Deps{
		Carts:         handlers.NewCartHandler(carts),
		Products:      product.NewHandler(catalog),
		WebSocket:     handlers.NewWebSocketHandler(hub, catalog, cfg.CORSOrigins),
		Redis:         conns.Redis,
		CartRateLimit: cfg.CartRateLimit,
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Serveur lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Serveur HTTP: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt demandé")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Les websockets ne sont pas suivies par Shutdown : on les ferme explicitement
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt forcé: %v", err)
		os.Exit(1)
	}
	log.Println("👋 Bye")
}
