package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/Selvababu93/realtime-inventory/internal/adapter/bus"
	"github.com/Selvababu93/realtime-inventory/internal/adapter/handler"
	"github.com/Selvababu93/realtime-inventory/internal/adapter/storage"
	"github.com/Selvababu93/realtime-inventory/internal/config"
	"github.com/Selvababu93/realtime-inventory/internal/core/service"
	"github.com/Selvababu93/realtime-inventory/internal/port"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Event bus
	var eventBus port.EventBus
	var rdb *redis.Client
	switch cfg.Bus.Driver {
	case "redis":
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Println("connected to redis")
		eventBus = bus.NewRedisBus(rdb, cfg.Bus.Channel)
	case "memory":
		eventBus = bus.NewMemoryBus()
		log.Println("using in-memory event bus")
	}

	// Wiring: store fires change capture into the bus; the gateway
	// holds the one subscription and fans out to websockets.
	store := storage.NewMySQLAdapter(db, eventBus)
	inventory := service.NewInventoryService(store)
	gateway := handler.NewGateway(eventBus)
	httpHandler := handler.NewHTTPHandler(inventory)

	go func() {
		if err := gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("gateway stopped: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpHandler.Routes(gateway),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	cancel()

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Println("connections closed")
}
