package httpapi

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"conversation-runtime/server/internal/auth"
	"conversation-runtime/server/internal/conversation"
	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
	"conversation-runtime/server/internal/runtime"
	"conversation-runtime/server/internal/story"
	"conversation-runtime/server/internal/validation"
)

// handleCreateSession handles POST /api/sessions: STORY_LOADED.
// It fetches the compiled story bundle through StorySource, hydrates an
// Interpreter from it, and asks the Manager to spin up a fresh session.
func (a *App) handleCreateSession(c *fiber.Ctx) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validation.ValidateCreateSessionRequest(req.StoryID, req.KnownChats); err != nil {
		return err
	}

	bundle, err := a.StorySource.Load(c.Context(), req.StoryID)
	if err != nil {
		slog.Error("story load failed", "story_id", req.StoryID, "error", err)
		return errors.Wrap(err, errors.ErrStoryLoadFailed)
	}

	interp := story.NewFakeInterpreter()
	if len(bundle.Compiled) > 0 {
		if err := interp.Load(string(bundle.Compiled)); err != nil {
			return errors.Wrap(err, errors.ErrStoryLoadFailed)
		}
	}

	sess := a.Manager.CreateSession(interp, req.KnownChats, conversation.LoadInput{})
	a.owners.set(sess.ID, user.ID)

	return c.Status(fiber.StatusCreated).JSON(models.CreateSessionResponse{SessionID: sess.ID})
}

// sessionFromParam resolves :id to a live *runtime.Session, enforcing
// ownership and returning the standard AppError taxonomy on failure.
func (a *App) sessionFromParam(c *fiber.Ctx) (*runtime.Session, error) {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return nil, err
	}
	id := c.Params("id")
	if id == "" {
		return nil, errors.New(errors.ErrValidationFailed, "session id is required")
	}
	if err := a.owners.checkOwnership(id, user.ID); err != nil {
		return nil, err
	}
	sess, ok := a.Manager.Get(id)
	if !ok {
		return nil, errors.New(errors.ErrSessionNotFound, "session not found")
	}
	return sess, nil
}

func (a *App) handleChoose(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	var req models.ChooseRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validation.ValidateChooseRequest(req.Index); err != nil {
		return err
	}
	sess.Choose(req.Index)
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *App) handleOpenChat(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	var req models.OpenChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validation.ValidateOpenChatRequest(req.ChatID); err != nil {
		return err
	}
	sess.OpenChat(req.ChatID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *App) handleCloseChat(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	sess.CloseChat()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleDataReady handles POST /api/sessions/:id/data-ready: the core
// only needs the resume signal, source/payload are accepted for
// host bookkeeping and archived below when session history is enabled.
func (a *App) handleDataReady(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	var req models.DataReadyRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if a.History != nil {
		if id, perr := parseSessionUUID(sess.ID); perr == nil {
			if _, err := a.History.AppendEvent(c.Context(), id, "data-ready", req); err != nil {
				slog.Warn("session history append failed", "session_id", sess.ID, "error", err)
			}
		}
	}
	sess.DataReady()
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *App) handleReset(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	sess.Reset()
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *App) handleMarkChatNotified(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	var req models.MarkChatNotifiedRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.New(errors.ErrBadRequest, "invalid request body")
	}
	if err := validation.ValidateOpenChatRequest(req.ChatID); err != nil {
		return err
	}
	sess.MarkChatNotified(req.ChatID)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSnapshot handles GET /api/sessions/:id/snapshot: the on-demand
// serialization of the saved state layout.
func (a *App) handleSnapshot(c *fiber.Ctx) error {
	sess, err := a.sessionFromParam(c)
	if err != nil {
		return err
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return errors.Wrap(err, errors.ErrSnapshotFailed)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, errors.ErrSnapshotFailed)
	}
	return c.JSON(models.SnapshotResponse{Snapshot: string(data)})
}
