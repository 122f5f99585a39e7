package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/snapvid/snapvid/internal/captions"
	"github.com/snapvid/snapvid/internal/database"
	"github.com/snapvid/snapvid/internal/geoip"
	"github.com/snapvid/snapvid/internal/ratelimit"
	"github.com/snapvid/snapvid/internal/server"
	"github.com/snapvid/snapvid/internal/storage"
	"github.com/snapvid/snapvid/internal/stream"
)

func main() {
	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET is required")
	}

	streamLibraryID := os.Getenv("STREAM_LIBRARY_ID")
	if streamLibraryID == "" {
		log.Fatal("STREAM_LIBRARY_ID is required")
	}
	streamAccessKey := os.Getenv("STREAM_ACCESS_KEY")
	if streamAccessKey == "" {
		log.Fatal("STREAM_ACCESS_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:3900"),
		PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
		Bucket:         getEnv("S3_BUCKET", "snapvid"),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		Region:         getEnv("S3_REGION", "eu-central-1"),
		CDNBaseURL:     getEnv("CDN_BASE_URL", "http://localhost:3900/snapvid"),
	})
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("storage bucket check failed: %v", err)
	}
	log.Println("storage bucket ready")

	streamClient := stream.New(
		getEnv("STREAM_BASE_URL", "https://video.bunnycdn.com/library"),
		streamLibraryID,
		streamAccessKey,
	)

	captionsClient := captions.New(getEnv("CAPTIONS_BASE_URL", "https://vz-cdn.b-cdn.net"))

	windowSize := time.Duration(getEnvInt64("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	windowMax := int(getEnvInt64("RATE_LIMIT_MAX_REQUESTS", 2))

	var limiter ratelimit.Gate
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		gate, err := ratelimit.NewRedisGate(redisAddr, os.Getenv("REDIS_PASSWORD"), windowSize, windowMax)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer func() { _ = gate.Close() }()
		limiter = gate
		log.Println("rate limiting backed by redis")
	} else {
		limiter = ratelimit.NewFixedWindow(windowSize, windowMax)
		log.Println("rate limiting in process memory")
	}

	geoResolver, err := geoip.New(os.Getenv("GEOIP_DB_PATH"))
	if err != nil {
		log.Fatalf("geoip initialization failed: %v", err)
	}
	defer func() { _ = geoResolver.Close() }()

	embedBaseURL := fmt.Sprintf("%s/%s",
		getEnv("EMBED_BASE_URL", "https://iframe.mediadelivery.net/embed"),
		streamLibraryID,
	)

	srv := server.New(server.Config{
		DB:            db.Pool,
		Pinger:        db,
		Storage:       store,
		Stream:        streamClient,
		Transcripts:   captionsClient,
		Limiter:       limiter,
		GeoResolver:   geoResolver,
		SessionSecret: sessionSecret,
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		EmbedBaseURL:  embedBaseURL,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("snapvid listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
