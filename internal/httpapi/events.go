package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"conversation-runtime/server/internal/events"
)

// sseEnvelope is what each SSE frame's data: line carries — the event
// contract's Name alongside its typed Payload.
type sseEnvelope struct {
	Event   events.Name `json:"event"`
	Payload interface{} `json:"payload"`
}

// handleSessionEvents handles GET /api/sessions/:id/events: a Server-Sent
// Events stream of the session's event contract, the same
// bufio.Writer + SetBodyStreamWriter pattern the teacher's
// handleStreamingChat uses for RAG token streaming, subscribed instead to
// this session's events.Bus.
func (a *App) handleSessionEvents(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Access-Control-Allow-Origin", "*")

	ctx := c.Context()

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		frames := make(chan events.Event, 64)
		unsubscribe := sess.Subscribe(func(ev events.Event) {
			select {
			case frames <- ev:
			default:
				slog.Warn("sse subscriber dropped event, consumer too slow", "session_id", sess.ID, "event", ev.Name)
			}
		})
		defer unsubscribe()

		for {
			select {
			case ev := <-frames:
				payload, err := json.Marshal(sseEnvelope{Event: ev.Name, Payload: ev.Payload})
				if err != nil {
					slog.Error("sse payload marshal failed", "session_id", sess.ID, "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload); err != nil {
					slog.Error("sse write failed", "session_id", sess.ID, "error", err)
					return
				}
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}
