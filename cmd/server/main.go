package main

import (
	"context"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Sagar-CK/pinpoint-ai/internal/config"
	"github.com/Sagar-CK/pinpoint-ai/internal/http"
	"github.com/Sagar-CK/pinpoint-ai/internal/hub"
	"github.com/Sagar-CK/pinpoint-ai/internal/logger"
	"github.com/Sagar-CK/pinpoint-ai/internal/oracle/llm"
	"github.com/Sagar-CK/pinpoint-ai/internal/oracle/places"
	"github.com/Sagar-CK/pinpoint-ai/internal/policy"
	"github.com/Sagar-CK/pinpoint-ai/internal/search"
	"github.com/Sagar-CK/pinpoint-ai/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Infow("starting server", "http_port", cfg.HTTPPort, "store_dsn", cfg.StoreDSN)

	// Initialize store
	var store search.Store
	if cfg.StoreDSN != "" {
		sqliteStore, err := search.NewSQLiteStore(cfg.StoreDSN)
		if err != nil {
			zlog.Fatalw("failed to initialize store", "error", err)
		}
		store = sqliteStore
	} else {
		store = search.NewMemoryStore()
	}
	defer store.Close()

	// Initialize oracle clients
	llmClient := llm.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	placesClient := places.NewClient(cfg.PlacesAPIURL, cfg.PlacesAPIKey, cfg.LLMTimeout)

	// Initialize policy engine
	guard, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		zlog.Fatalw("failed to initialize policy engine", "error", err)
	}

	// Initialize core service and hub
	svc := search.NewService(store, llmClient, zlog)

	connectionHub := hub.NewHub(zlog)
	go connectionHub.Run()

	// Initialize handlers
	wsServer := ws.NewServer(cfg, connectionHub, svc, placesClient, guard, zlog)
	httpHandler := http.NewHandler(connectionHub, svc, placesClient, llmClient, zlog)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/ws", wsServer.HandleWebSocket)
	httpHandler.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != nethttp.ErrServerClosed {
			zlog.Fatalw("failed to start server", "error", err)
		}
	}()

	zlog.Infow("server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Errorw("failed to shutdown server gracefully", "error", err)
	}

	zlog.Info("server stopped")
}
