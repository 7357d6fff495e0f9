package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"conversation-runtime/server/internal/models"
)

// handleHealth handles GET /api/health, reporting liveness plus the
// active session count, session-store backing, and worker pool stats, in
// the teacher's HealthHandler style.
func (a *App) handleHealth(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:         "ok",
		Environment:    a.Config.Server.Environment,
		ActiveSessions: a.Manager.Count(),
		SessionStore:   a.StoreKind,
		Timestamp:      time.Now(),
	}

	return c.JSON(fiber.Map{
		"health":  resp,
		"workers": a.Pool.GetStats(),
	})
}
