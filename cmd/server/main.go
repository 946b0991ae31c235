package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/rvetrov/flight-fare-search/internal/cache"
	"github.com/rvetrov/flight-fare-search/internal/config"
	"github.com/rvetrov/flight-fare-search/internal/database"
	"github.com/rvetrov/flight-fare-search/internal/handler"
	"github.com/rvetrov/flight-fare-search/internal/lock"
	"github.com/rvetrov/flight-fare-search/internal/queue"
	"github.com/rvetrov/flight-fare-search/internal/repository"
	"github.com/rvetrov/flight-fare-search/internal/router"
	"github.com/rvetrov/flight-fare-search/internal/scraper"
	"github.com/rvetrov/flight-fare-search/internal/search"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	scrCfg := config.LoadScraperConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the service runs uncached with an
	// in-process lock, which is fine for a single instance.
	rdb := config.NewRedisClient()
	var store cache.Store
	var gate lock.Gate
	if rdb != nil {
		store = cache.NewRedisStore(rdb)
		gate = lock.NewRedisGate(rdb, scrCfg.LockTTL)
	} else {
		log.Printf("redis unavailable, running without cache and with in-process locks")
		store = cache.NewNoOpStore()
		gate = lock.NewMemoryGate(scrCfg.LockTTL)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tickets := repository.NewTicketRepo(db)

	scr := scraper.New(scrCfg)
	svc := search.NewService(gate, store, tickets, scr, scrCfg.CacheTTL, queue.PublishSearchCompleted)

	go func() {
		if err := queue.StartSearchConsumer(); err != nil {
			log.Printf("search consumer stopped: %v", err)
		}
	}()

	// Refresh tokens accumulate one row per login; sweep the dead ones
	// twice a day.
	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if n, err := tokens.PurgeExpired(ctx); err != nil {
				log.Printf("token purge: %v", err)
			} else if n > 0 {
				log.Printf("token purge: removed %d stale refresh tokens", n)
			}
			cancel()
			time.Sleep(12 * time.Hour)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterSearch(e, handler.NewSearchHandler(svc, scrCfg.SearchTimeout), cfg.JWTSecret, rlCfg, rdb)
	router.RegisterTickets(e, handler.NewTicketHandler(tickets), cfg.JWTSecret)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, store), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUserHandler(users, store), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
