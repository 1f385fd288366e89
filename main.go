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

	"github.com/uberfrank/bierephilo/internal/api"
	"github.com/uberfrank/bierephilo/internal/config"
	"github.com/uberfrank/bierephilo/internal/game"
	"github.com/uberfrank/bierephilo/internal/i18n"
	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/session"
)

func main() {
	cfg, err := config.Load(getenv("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Fatalf("[Main] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	library, err := questionbank.LoadLibrary(cfg.Data.QuestionsDir, cfg.Data.Languages)
	if err != nil {
		log.Fatalf("[Main] questions: %v", err)
	}
	for _, lang := range cfg.Data.Languages {
		if b, ok := library.Bank(lang); ok {
			log.Printf("[Main] loaded %d questions for %s", b.Len(), lang)
		} else {
			log.Printf("[Main] no question bank for %s", lang)
		}
	}

	bundle, err := i18n.LoadBundle(cfg.Data.TranslationsDir, cfg.Data.Languages, cfg.Data.DefaultLanguage)
	if err != nil {
		log.Fatalf("[Main] translations: %v", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[Main] session store: %v", err)
	}
	defer closeStore()

	policy, ok := game.ParseCustomPolicy(cfg.Game.CustomPolicy)
	if !ok {
		log.Fatalf("[Main] unknown custom policy %q", cfg.Game.CustomPolicy)
	}

	opts := api.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RequestTimeout:  cfg.Server.RequestTimeout,
		DefaultLanguage: cfg.Data.DefaultLanguage,
		Languages:       cfg.Data.Languages,
	}
	if cfg.Server.RateLimit > 0 {
		opts.RateLimiter = api.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
		go opts.RateLimiter.Run(ctx, 5*time.Minute)
	}
	server := api.NewServer(library, bundle, session.NewManager(store), game.NewEngine(policy), opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] shutdown: %v", err)
		}
	}()

	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		log.Println("[Main] listening on :" + cfg.Server.Port + " (HTTPS)")
		err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		log.Println("[Main] listening on :" + cfg.Server.Port + " (HTTP)")
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Main] server: %v", err)
	}
	log.Println("[Main] stopped")
}

// openStore builds the configured session store and returns its cleanup.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Store.Driver {
	case "redis":
		client, err := session.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Game.SessionTTL)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Printf("[Main] sessions stored in redis (%s)", cfg.Redis.Mode)
		return store, func() { client.Close() }, nil
	default:
		store := session.NewMemoryStore(cfg.Game.SessionTTL)
		if cfg.Game.SweepInterval > 0 {
			go store.Run(ctx, cfg.Game.SweepInterval)
		}
		log.Println("[Main] sessions stored in memory")
		return store, func() {}, nil
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
