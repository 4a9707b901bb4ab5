package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/asherpoirier/streamvault/internal/auth"
	"github.com/asherpoirier/streamvault/internal/cache"
	"github.com/asherpoirier/streamvault/internal/config"
	"github.com/asherpoirier/streamvault/internal/server"
	"github.com/asherpoirier/streamvault/internal/service"
	"github.com/asherpoirier/streamvault/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if cfg.JWTSecret == config.DefaultJWTSecret {
		fmt.Fprintln(os.Stderr, "WARNING: JWT_SECRET is the built-in default; set it in production")
	}

	ctx := context.Background()

	// Run migrations.
	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	migrationsPath := "file://" + absMigrations
	if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	var appStore store.Store = pg
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(pg, rds)
		fmt.Fprintln(os.Stderr, "redis connected (caching and async refresh enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the background refresh worker when Redis is available.
	if rds != nil {
		go runRefreshWorker(ctx, rds, appStore, cfg)
	}

	authn := auth.New(cfg.JWTSecret, cfg.JWTExpiry)
	srv := server.New(appStore, cfg, authn, rds)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// runRefreshWorker continuously dequeues playlist refresh jobs from Redis
// and processes them. It stops when ctx is cancelled (graceful shutdown).
// A per-playlist lock keeps concurrent workers from refreshing the same
// playlist twice.
func runRefreshWorker(ctx context.Context, rds *cache.Redis, s store.Store, cfg *config.Config) {
	log.Println("refresh worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("refresh worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.DefaultQueue, 5*time.Second)
		if err != nil {
			log.Printf("refresh worker: dequeue error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("refresh worker: processing playlist=%s provider=%q", job.PlaylistID, job.ProviderName)

		unlock, err := cache.TryLock(ctx, rds, "streamvault:lock:refresh:"+job.PlaylistID, 10*time.Minute)
		if err != nil {
			if err == cache.ErrLocked {
				log.Printf("refresh worker: %q already refreshing, skipping", job.ProviderName)
			} else {
				log.Printf("refresh worker: lock error: %v", err)
			}
			continue
		}

		n, err := service.Refresh(ctx, s, job.PlaylistID, cfg.UserAgent, cfg.Timeout)
		unlock()
		if err != nil {
			log.Printf("refresh worker: refresh %q: %v", job.ProviderName, err)
			continue
		}
		log.Printf("refresh worker: %q refreshed, %d channels", job.ProviderName, n)
	}
}
