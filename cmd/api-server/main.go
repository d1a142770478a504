// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-platform/api"
	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/server"
	"content-platform/internal/config"
	"content-platform/internal/shared/cache"
	rediscache "content-platform/internal/shared/cache/redis"
	"content-platform/internal/shared/objstore"
	"content-platform/internal/shared/storage"
	"content-platform/internal/shared/storage/memstore"
	"content-platform/internal/shared/storage/mongostore"
	"content-platform/pkg/logging"
)

func main() {
	configDirFlag := flag.String("config", "", "配置文件目录（或 YAML 文件路径）")
	flag.Parse()

	if *configDirFlag != "" {
		config.SetConfigDir(*configDirFlag)
	}

	// 加载配置（自动加载 .env，根据 APP_ENV 选择 YAML）
	cfg := config.Load()
	logger := logging.Default("api-server")

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	ctx := context.Background()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	sessions, err := openSessionCache(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer sessions.Close()

	tokens := auth.NewTokenService(store, sessions, auth.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		AccessTokenTTL: cfg.Auth.AccessTokenDuration(),
		CookieSecure:   cfg.Auth.CookieSecure,
		FrontendAPIKey: cfg.Auth.FrontendAPIKey,
	})
	guard := auth.NewGuard(tokens, cfg.Auth.FrontendAPIKey)

	if err := auth.EnsureAdminUser(ctx, tokens, store, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to bootstrap admin user: %v", err)
	}

	h := server.NewHandler(store, tokens, guard)
	h.SetLogger(logger)

	if cfg.MinIO.Enabled() {
		objects, err := openObjectStore(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		h.SetObjectStore(objects)
		log.Printf("Document storage enabled: %s/%s", cfg.MinIO.Endpoint, cfg.MinIO.Bucket)
	} else {
		log.Println("Document storage disabled (MINIO_ENDPOINT / credentials not set)")
	}

	doc, err := api.Load(ctx)
	if err != nil {
		log.Fatalf("Invalid OpenAPI document: %v", err)
	}
	if err := h.SetOpenAPI(doc); err != nil {
		log.Fatalf("Failed to serve OpenAPI document: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

// openStore 按配置选择存储驱动
func openStore(cfg *config.Config) (storage.PersistentStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		log.Println("Using in-memory store (data is lost on restart)")
		return memstore.NewStore(), nil
	case config.DriverMongoDB:
		store, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseDBName)
		if err != nil {
			return nil, err
		}
		log.Println("Connected to MongoDB")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// openSessionCache 启用 Redis 时使用 Redis 会话缓存，否则使用进程内缓存
func openSessionCache(cfg *config.Config) (cache.SessionCache, error) {
	ttl := cfg.Auth.AccessTokenDuration()
	if !cfg.RedisEnabled {
		return cache.NewMemoryCache(ttl), nil
	}
	redisStore, err := rediscache.NewStoreFromURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to Redis")
	return redisStore.WithTTL(ttl), nil
}

func openObjectStore(ctx context.Context, cfg config.MinIOConfig) (*objstore.Client, error) {
	client, err := objstore.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
