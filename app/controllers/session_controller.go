package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"speeddating/app/middlewares"
	"speeddating/app/models"
	"speeddating/app/services"
)

// SessionController handles session, registration and lifecycle HTTP requests
type SessionController struct {
	sessions     *services.SessionService
	registration *services.RegistrationService
}

// NewSessionController creates a new session controller instance
func NewSessionController(sessions *services.SessionService, registration *services.RegistrationService) *SessionController {
	return &SessionController{
		sessions:     sessions,
		registration: registration,
	}
}

// Create opens a new session with the caller as creator and first participant
func (c *SessionController) Create(ctx *fiber.Ctx) error {
	var req models.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request format")
	}

	session, err := c.sessions.CreateSession(ctx.UserContext(), middlewares.UserID(ctx), req)
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusCreated, fiber.Map{"id": session.ID, "session": session})
}

// FindAvailable lists open sessions, optionally filtered by ?interests=a,b
func (c *SessionController) FindAvailable(ctx *fiber.Ctx) error {
	var interests []string
	if raw := ctx.Query("interests"); raw != "" {
		interests = strings.Split(raw, ",")
	}

	sessions, err := c.sessions.FindAvailableSessions(ctx.UserContext(), interests)
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, sessions)
}

// Mine lists the caller's upcoming and running sessions
func (c *SessionController) Mine(ctx *fiber.Ctx) error {
	sessions, err := c.sessions.GetUpcomingSessionsForUser(ctx.UserContext(), middlewares.UserID(ctx))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, sessions)
}

// Get returns one session
func (c *SessionController) Get(ctx *fiber.Ctx) error {
	session, err := c.sessions.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, session)
}

// Register adds the caller to the session
func (c *SessionController) Register(ctx *fiber.Ctx) error {
	session, err := c.registration.Register(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, session)
}

// Leave removes the caller from a session that has not started
func (c *SessionController) Leave(ctx *fiber.Ctx) error {
	session, err := c.registration.Leave(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, session)
}

// Cancel lets the creator cancel the session
func (c *SessionController) Cancel(ctx *fiber.Ctx) error {
	session, err := c.sessions.CancelSession(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, session)
}

// UpdateStatus applies an explicit status change
func (c *SessionController) UpdateStatus(ctx *fiber.Ctx) error {
	var req models.UpdateSessionStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request format")
	}
	if req.Status == "" {
		return badRequest(ctx, "status is required")
	}

	session, err := c.sessions.UpdateSessionStatus(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"), req.Status)
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, session)
}

// AdvanceRound moves a running session to its next round, completing it after the last
func (c *SessionController) AdvanceRound(ctx *fiber.Ctx) error {
	session, err := c.sessions.AdvanceRound(ctx.UserContext(), middlewares.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return failure(ctx, err)
	}
	return success(ctx, fiber.StatusOK, session)
}
