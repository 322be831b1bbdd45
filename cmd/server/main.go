package main // Entry point package

import (
	"context" // Context for startup maintenance and shutdown
	"log"     // Logging library
	"time"    // Durations for the sweeper and shutdown timeout

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticket-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/event-ticket-reservation/internal/database"   // MySQL connection helper
	"github.com/iliyamo/event-ticket-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/event-ticket-reservation/internal/middleware" // Rate limiting and response cache
	"github.com/iliyamo/event-ticket-reservation/internal/queue"      // Reservation event consumer
	"github.com/iliyamo/event-ticket-reservation/internal/repository" // DB repositories
	"github.com/iliyamo/event-ticket-reservation/internal/router"     // Route registration
	"github.com/iliyamo/event-ticket-reservation/internal/service"    // Reservation lifecycle service
	"github.com/iliyamo/event-ticket-reservation/internal/worker"     // Expiry sweeper
)

func main() {
	// Load a local .env file when present; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	// Connect to MySQL and verify the connection before serving traffic.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the response cache.  A nil client
	// disables both features rather than failing startup.
	rdb := config.NewRedisClient()

	// Repositories and the transactional store.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	reservations := repository.NewReservationRepo(db)
	store := repository.NewStore(db)

	// Reservation lifecycle service and its background sweeper.
	svc := service.NewReservationService(store)
	sweeper := worker.NewSweeper(svc, time.Duration(cfg.SweepInterval)*time.Second)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	// Startup maintenance: drop refresh tokens that expired over a day ago.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if n, err := tokens.PurgeExpired(ctx, time.Now().UTC().Add(-24*time.Hour)); err != nil {
			log.Printf("token purge failed: %v", err)
		} else if n > 0 {
			log.Printf("purged %d stale refresh token(s)", n)
		}
		cancel()
	}

	// Consume reservation lifecycle events in the background.  The
	// consumer reconnects on broker failures.
	go queue.StartReservationConsumer()

	e := echo.New() // Create Echo instance

	// Feature middleware built from their own config sections.
	rateCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	rateLimit := middleware.NewTokenBucket(rateCfg, rdb)
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	eventH := handler.NewEventHandler(events, cacheCfg, rdb)
	resvH := handler.NewReservationHandler(svc, reservations, events)

	// Routes.
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, rateLimit)
	router.RegisterEvents(e, eventH, cfg.JWTSecret, cache)
	router.RegisterReservations(e, resvH, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
