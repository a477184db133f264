package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kortio.se/internal/bank"
	"kortio.se/internal/config"
	"kortio.se/internal/httpapi"
	"kortio.se/internal/obs"
	"kortio.se/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	version := obs.Version()
	obs.Init(version)

	// No DSN means demo mode on the in-memory store.
	var (
		store bank.Store
		probe httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN, pg.PoolConfig{
			MaxOpenConns: cfg.PGMaxOpenConns,
			MaxIdleConns: cfg.PGMaxIdleConns,
			ConnLifetime: cfg.PGConnLifetime,
		})
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("KORTIO_PG_DSN not set; serving from the in-memory store")
		store = bank.NewMemory()
	}

	api := httpapi.New(httpapi.Options{
		Store:          store,
		ReadyProbe:     probe,
		Version:        version,
		DevMode:        cfg.IsDev(),
		AuthSecret:     []byte(cfg.AuthSecret),
		TokenTTL:       cfg.TokenTTL,
		RequireAuth:    cfg.RequireAuth,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting kortio-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
