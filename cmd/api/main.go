package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentra.org/internal/auth"
	"sentra.org/internal/config"
	"sentra.org/internal/httpapi"
	"sentra.org/internal/items"
	"sentra.org/internal/obs"
	"sentra.org/internal/store/memory"
	"sentra.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	configPath := flag.String("config", os.Getenv("SENTRA_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("SENTRA_COMMIT"))

	// Without a DSN the service runs on the in-memory store. Useful for
	// local development; everything is lost on restart.
	var (
		store      auth.Store
		itemStore  items.Store
		readyProbe httpapi.ReadyProbe
		closeStore func() error
	)
	if cfg.Database.DSN != "" {
		pgStore, err := pg.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		itemStore = pgStore.Items()
		readyProbe = httpapi.ReadyProbe{DB: pgStore.DB()}
		closeStore = pgStore.Close
	} else {
		log.Println("no database DSN configured, using in-memory store")
		memStore := memory.NewStore()
		store = memStore
		itemStore = memStore.Items()
	}

	codec, err := cfg.Auth.Codec()
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	sessions := auth.NewSessions(codec, store,
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)
	engine := auth.NewEngine(store)

	api := httpapi.New(readyProbe, version, sessions, engine, store, itemStore)

	handler := api.Handler()
	handler = httpapi.Logging(handler)
	handler = httpapi.RateLimit(handler, cfg.Server.LoginRateBurst, cfg.Server.LoginRatePerSec)
	handler = httpapi.MaxBodyBytes(handler, cfg.Server.MaxBodyBytes)
	handler = httpapi.SecurityHeaders(handler)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	log.Printf("Starting sentra-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if closeStore != nil {
		_ = closeStore()
	}
	log.Println("Stopped")
}
