package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"envelope-service/pkg/api"
	"envelope-service/pkg/clients/telemetry"
	"envelope-service/pkg/config"
	"envelope-service/pkg/idempotency"
	"envelope-service/pkg/metrics"
	"envelope-service/pkg/storage"
	"envelope-service/pkg/worker"
)

// @title Envelope Service API
// @version 1.0
// @description Notes API whose every response uses the {data|errors, message} envelope.

// @contact.name API Support
// @contact.email support@example.com

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

func main() {

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration Error: %v", err)
	}

	log.Printf("Envelope service starting on port %d", cfg.Server.Port)
	log.Printf("Store: %s", cfg.Store.Driver)
	log.Printf("Flatten payload: %t", cfg.Envelope.FlattenPayload)

	store, err := storage.NewNoteStore(cfg.Store.Driver, cfg.Store.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize NoteStore: %v", err)
	}
	defer store.Close()

	var guard idempotency.Guard = idempotency.NopGuard{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable at %s: %v", cfg.Redis.Addr, err)
		}
		cancel()

		guard = idempotency.NewRedisGuard(rdb, time.Duration(cfg.Redis.IdempotencyTTLSec)*time.Second)
		log.Printf("Idempotency keys: redis %s", cfg.Redis.Addr)
	}

	recorder := metrics.NewRecorder()
	telemetryClient := telemetry.NewClient(cfg.Influx, "envelope-service")

	purgeWorker := worker.NewPurgeWorker(store, cfg.Purge.QueueSize)
	purgeWorker.Start()

	var flushWorker *worker.FlushWorker
	if cfg.MetricsFlush.Enabled && telemetryClient.Enabled() {
		flushWorker = worker.NewFlushWorker(recorder, telemetryClient, time.Duration(cfg.MetricsFlush.FlushIntervalMs)*time.Millisecond)
		flushWorker.Start()
	} else {
		log.Println("[FlushWorker] Disabled (set INFLUX_HOST, INFLUX_TOKEN and METRICS_FLUSH_ENABLED=true)")
	}

	apiHandler := api.NewHandler(cfg, store, telemetryClient)
	notesHandler := api.NewNotesHandler(cfg, store, guard, purgeWorker)

	r := api.NewRouter(cfg, apiHandler, notesHandler, recorder)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	purgeWorker.Stop()
	if flushWorker != nil {
		flushWorker.Stop()
	}

	telemetryClient.Close()

	log.Println("Server exited")
}
