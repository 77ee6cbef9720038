package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/princekumarofficial/impact-stories/docs"
	"github.com/princekumarofficial/impact-stories/internal/app"
	"github.com/princekumarofficial/impact-stories/internal/cache"
	"github.com/princekumarofficial/impact-stories/internal/config"
	"github.com/princekumarofficial/impact-stories/internal/events"
	"github.com/princekumarofficial/impact-stories/internal/http/handlers/stories"
	wsHandler "github.com/princekumarofficial/impact-stories/internal/http/handlers/websocket"
	"github.com/princekumarofficial/impact-stories/internal/http/middleware"
	"github.com/princekumarofficial/impact-stories/internal/websocket"
)

// @title Impact Stories API
// @version 1.0
// @description Stories with localized text and image/video media kept in object storage.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()
	app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// live events
	hub := websocket.NewHub()
	go hub.Run(ctx)

	application, err := app.New(ctx, cfg, events.NewEventPublisher(hub))
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer application.Close()

	// auth on every write, plus rate limiting when Redis is around
	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	protect := auth
	var limits *middleware.RateLimitConfig
	if application.Redis != nil {
		limits = middleware.NewRateLimitConfig(application.Redis, cfg.RateLimit.StoriesPerMinute)
		protect = func(h http.Handler) http.Handler {
			return middleware.Chain(h, auth, limits.RateLimitMiddleware(middleware.ActionStories))
		}
	}

	// setup router
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	stories.Register(router, application.Stories, protect)
	router.HandleFunc("GET /ws", wsHandler.WebSocketHandler(hub, cfg.JWTSecret))
	router.Handle("GET /ws/stats", auth(wsHandler.Stats(hub)))
	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	if application.Redis != nil {
		router.HandleFunc("GET /cache/stats", cache.GetCacheStats(application.Redis))
		router.Handle("DELETE /cache", protect(cache.ClearCache(application.Redis)))
		router.Handle("GET /rate-limit", auth(limits.RateLimitStatus(middleware.ActionStories)))
	}

	server := http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server started", slog.String("address", cfg.HTTPServer.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
