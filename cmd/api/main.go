// Conversation Runtime Core - API Gateway Service
//
// This service is the HTTP edge that lets a host (a phone-chat front end,
// or an integration test harness) drive the conversation runtime core as
// a long-running process: one conversation.Machine per loaded story
// session, each pinned to its own goroutine, fronted by Fiber.
//
// STARTUP SEQUENCE:
// 1. Load configuration from environment variables
// 2. Initialize structured logging with appropriate levels
// 3. Create worker pools for snapshot flushing and idle-session reaping
// 4. Establish Redis connection with fallback to an in-memory session store
// 5. Connect to PostgreSQL for the optional session-history adapter
// 6. Initialize the story-bundle source and session manager
// 7. Initialize the host-auth service
// 8. Setup HTTP handlers with dependency injection
// 9. Configure Fiber web server with middleware
// 10. Register API routes
// 11. Start background workers and setup graceful shutdown handling
// 12. Start the server
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"conversation-runtime/server/internal/auth"
	"conversation-runtime/server/internal/config"
	"conversation-runtime/server/internal/httpapi"
	"conversation-runtime/server/internal/middleware"
	"conversation-runtime/server/internal/runtime"
	"conversation-runtime/server/internal/sessionhistory"
	"conversation-runtime/server/internal/sessionstore"
	"conversation-runtime/server/internal/storysource"
	"conversation-runtime/server/internal/workers"
)

func main() {
	// PHASE 1: CONFIGURATION AND LOGGING SETUP
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Server.Environment == "development" {
		opts.Level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// PHASE 2: WORKER POOL INITIALIZATION
	// SnapshotWorkers flush live session state into the session store;
	// ReaperWorkers close sessions idle past the configured timeout.
	poolManager := workers.NewPoolManager(workers.PoolConfig{
		SnapshotWorkers: 5,
		ReaperWorkers:   2,
	})

	// PHASE 3: SESSION STORE SETUP WITH FALLBACK STRATEGY
	// Redis is the recommended production backing for live session
	// snapshots; falling back to memory keeps the service usable with
	// zero external dependencies.
	var redisAddr string
	if len(cfg.Redis.URL) > 8 && cfg.Redis.URL[:8] == "redis://" {
		redisAddr = cfg.Redis.URL[8:]
	} else {
		redisAddr = cfg.Redis.URL
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	var store sessionstore.Store
	var storeKind string
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis connection failed, falling back to memory session store", "error", err)
		redisClient.Close()
		store = sessionstore.NewMemoryStore()
		storeKind = "memory"
	} else {
		slog.Info("Redis connection established successfully", "addr", redisAddr)
		store = sessionstore.NewRedisStore(redisClient)
		storeKind = "redis"
	}
	pingCancel()

	// PHASE 4: OPTIONAL POSTGRES SESSION-HISTORY ADAPTER
	// A blank DATABASE_URL disables host auth and archival entirely —
	// the runtime core and its SSE edge still work with zero auth.
	var history *sessionhistory.DB
	if cfg.Database.Enabled() {
		slog.Info("Connecting to PostgreSQL for session history")
		db, err := sessionhistory.NewConnection(&cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to session-history database", "error", err)
			log.Fatal("database connection required when DATABASE_URL is set:", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			slog.Error("Session-history migration failed", "error", err)
		}
		history = db
		slog.Info("Session-history database ready")
	} else {
		slog.Warn("No database configured, host auth and session history are disabled")
	}

	// PHASE 5: STORY SOURCE AND SESSION MANAGER
	var storySrc storysource.Source
	if cfg.Story.RemoteEnabled() {
		slog.Info("Loading story bundles from remote registry", "base_url", cfg.Story.BaseURL)
		storySrc = storysource.NewRemoteSource(cfg.Story.BaseURL)
	} else {
		slog.Info("Loading story bundles from local directory", "dir", cfg.Story.BundleDir)
		storySrc = storysource.NewLocalSource(cfg.Story.BundleDir)
	}

	manager := runtime.NewManager(runtime.Config{
		Locale:       map[string]string{"default": cfg.Story.DefaultLocale},
		ReduceMotion: cfg.Session.ReduceMotionDefault,
		Logger:       logger,
	})

	// PHASE 6: HOST-AUTH SERVICE
	var authService *auth.Service
	if history != nil {
		authService = auth.NewService(history)
	}

	// PHASE 7: HTTP HANDLER INITIALIZATION WITH DEPENDENCY INJECTION
	slog.Info("Initializing HTTP handlers")
	var api *httpapi.App
	if authService != nil {
		api = httpapi.NewApp(cfg, manager, authService, store, storeKind, storySrc, history, poolManager)
	} else {
		slog.Warn("Skipping HTTP route registration for session/auth endpoints: no database configured")
	}

	// PHASE 8: FIBER WEB SERVER CONFIGURATION
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorHandler: middleware.ErrorHandler(),
	})

	// PHASE 9: MIDDLEWARE STACK SETUP
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// PHASE 10: API ROUTE REGISTRATION
	app.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	if api != nil {
		api.RegisterRoutes(app)
	} else {
		app.Get("/api/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"status":         "ok",
				"environment":    cfg.Server.Environment,
				"activeSessions": manager.Count(),
				"sessionStore":   storeKind,
				"timestamp":      time.Now(),
			})
		})
	}

	// PHASE 11: BACKGROUND WORKERS AND GRACEFUL SHUTDOWN
	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	flushJob := &workers.FlushJob{
		Manager: manager,
		Store:   store,
		TTL:     time.Duration(cfg.Session.SnapshotTTLSeconds) * time.Second,
	}
	go workers.RunPeriodic(workerCtx, 30*time.Second, "snapshot-flush", func(ctx context.Context) {
		flushJob.Run(poolManager, ctx)
	})

	reapJob := &workers.ReapJob{
		Manager:   manager,
		IdleAfter: time.Duration(cfg.Session.IdleTimeoutSeconds) * time.Second,
	}
	reapInterval := time.Duration(cfg.Session.IdleReapIntervalSec) * time.Second
	go workers.RunPeriodic(workerCtx, reapInterval, "idle-reap", func(ctx context.Context) {
		reapJob.Run(poolManager, ctx)
	})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		slog.Info("Shutting down server...")

		cancelWorkers()
		poolManager.Shutdown()

		if err := store.Close(); err != nil {
			slog.Error("Session store close error", "error", err)
		}
		if history != nil {
			if err := history.Close(); err != nil {
				slog.Error("Session-history close error", "error", err)
			}
		}
		if err := app.Shutdown(); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		slog.Info("Server shutdown complete")
		os.Exit(0)
	}()

	// PHASE 12: SERVER STARTUP
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	slog.Info("Starting Conversation Runtime API server",
		"address", addr,
		"environment", cfg.Server.Environment,
		"session_store", storeKind)

	if err := app.Listen(addr); err != nil {
		slog.Error("Server failed to start", "error", err)
		poolManager.Shutdown()
		log.Fatal(err)
	}
}
