package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"talentbridge/internal/config"
	"talentbridge/internal/database"
	"talentbridge/internal/engine"
	"talentbridge/internal/handlers"
	"talentbridge/internal/middleware"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close(context.Background())
	slog.Info("Database ready", "type", cfg.Database.Type)

	metrics := utils.NewMetricsCollector()

	// Realtime layer: gate -> hub -> presence, plus the optional backends.
	gate := realtime.NewGate(store)
	hub := realtime.NewHub(gate, metrics)

	var rdb *redis.Client
	if cfg.Realtime.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Realtime.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			slog.Warn("Redis unreachable; presence mirror disabled", "err", err)
			rdb = nil
		} else {
			slog.Info("Presence mirror enabled", "addr", cfg.Realtime.RedisAddr)
		}
	}
	hub.SetPresence(realtime.NewPresence(hub, rdb))

	var bus *realtime.Bus
	if cfg.Realtime.NATSURL != "" {
		bus, err = realtime.NewBus(cfg.Realtime.NATSURL)
		if err != nil {
			log.Fatalf("Failed to connect event bus: %v", err)
		}
		defer bus.Close()
		if err := bus.Bind(hub); err != nil {
			log.Fatalf("Failed to bind event bus: %v", err)
		}
	}

	dispatcher := realtime.NewDispatcher(hub, bus)

	go hub.Run()

	// Initialize actor system and the engine supervising the actors.
	system := actor.NewActorSystem()
	appEngine := engine.NewEngine(system, store, dispatcher, metrics)

	server := handlers.NewServer(system, appEngine, hub, store, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/users", server.HandleUsers())
	mux.HandleFunc("/ws", server.HandleWebSocket())
	mux.HandleFunc("/conversations", middleware.ApplyJWTMiddleware(server.HandleConversations()))
	mux.HandleFunc("/conversations/messages", middleware.ApplyJWTMiddleware(server.HandleMessages()))
	mux.HandleFunc("/conversations/read", middleware.ApplyJWTMiddleware(server.HandleMarkRead()))
	mux.HandleFunc("/conversations/status", middleware.ApplyJWTMiddleware(server.HandleStatusChange()))
	mux.HandleFunc("/notifications", middleware.ApplyJWTMiddleware(server.HandleNotifications()))
	mux.HandleFunc("/notifications/read", middleware.ApplyJWTMiddleware(server.HandleNotificationRead()))
	if cfg.Server.MetricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	handler := middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.AllowedOrigins))(mux)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("Starting server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func openStore(cfg *config.Config) (database.DBAdapter, error) {
	switch cfg.Database.Type {
	case "postgres":
		db, err := database.NewPostgresDB(cfg.Database.URI)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.InitializeTables(ctx); err != nil {
			db.Close(ctx)
			return nil, err
		}
		return db, nil
	case "mongo":
		return database.NewMongoDB(cfg.Database.URI)
	case "memory":
		return database.NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}
