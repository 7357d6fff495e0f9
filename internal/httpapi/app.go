// Package httpapi is the HTTP edge that lets a host drive the conversation
// runtime as a service: session lifecycle routes, an SSE stream of the
// event contract, optional host-auth routes, and a health endpoint, all
// wired through github.com/gofiber/fiber/v2 in a handler-struct-with-
// injected-deps style.
package httpapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"conversation-runtime/server/internal/auth"
	"conversation-runtime/server/internal/config"
	"conversation-runtime/server/internal/runtime"
	"conversation-runtime/server/internal/sessionhistory"
	"conversation-runtime/server/internal/sessionstore"
	"conversation-runtime/server/internal/storysource"
	"conversation-runtime/server/internal/workers"
)

// App bundles every collaborator a route handler needs. cmd/api/main.go
// constructs one of these after every service is wired up and hands it to
// RegisterRoutes.
type App struct {
	Config       *config.Config
	Manager      *runtime.Manager
	Auth         *auth.Service
	Store        sessionstore.Store
	StoreKind    string // "redis" or "memory", surfaced by /api/health
	StorySource  storysource.Source
	History      *sessionhistory.DB // nil when no Postgres archival backing is configured
	Pool         *workers.PoolManager

	owners *ownerRegistry
}

// NewApp wires the collaborators into an App ready for RegisterRoutes.
func NewApp(cfg *config.Config, mgr *runtime.Manager, authSvc *auth.Service, store sessionstore.Store, storeKind string, src storysource.Source, history *sessionhistory.DB, pool *workers.PoolManager) *App {
	return &App{
		Config:      cfg,
		Manager:     mgr,
		Auth:        authSvc,
		Store:       store,
		StoreKind:   storeKind,
		StorySource: src,
		History:     history,
		Pool:        pool,
		owners:      newOwnerRegistry(),
	}
}

// RegisterRoutes mounts every route this service exposes onto app.
func (a *App) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", a.handleHealth)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", a.handleSignup)
	authGroup.Post("/login", a.handleLogin)
	authGroup.Post("/check-email", a.handleCheckEmail)
	authGroup.Post("/logout", auth.RequireAuth(a.Auth), a.handleLogout)
	authGroup.Post("/logout-all", auth.RequireAuth(a.Auth), a.handleLogoutAll)
	authGroup.Get("/me", auth.RequireAuth(a.Auth), a.handleGetProfile)
	authGroup.Put("/profile", auth.RequireAuth(a.Auth), a.handleUpdateProfile)
	authGroup.Delete("/me", auth.RequireAuth(a.Auth), a.handleDeactivateAccount)

	sessions := api.Group("/sessions", auth.RequireAuth(a.Auth))
	sessions.Post("", a.handleCreateSession)
	sessions.Get("/:id/events", a.handleSessionEvents)
	sessions.Get("/:id/snapshot", a.handleSnapshot)
	sessions.Post("/:id/choose", a.handleChoose)
	sessions.Post("/:id/open-chat", a.handleOpenChat)
	sessions.Post("/:id/close-chat", a.handleCloseChat)
	sessions.Post("/:id/data-ready", a.handleDataReady)
	sessions.Post("/:id/reset", a.handleReset)
	sessions.Post("/:id/mark-chat-notified", a.handleMarkChatNotified)

	slog.Info("httpapi routes registered")
}
