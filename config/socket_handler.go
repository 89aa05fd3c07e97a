package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	socketio "github.com/doquangtan/socket.io/v4"
	"github.com/gofiber/fiber/v2"

	"speeddating/app/models"
	"speeddating/app/repository"
	"speeddating/app/utils"
)

const socketLookupTimeout = 5 * time.Second

// SessionSocketHandler serves socket.io clients watching sessions. Clients join the
// room of a session and receive every status, round and pairing change for it.
type SessionSocketHandler struct {
	io       *socketio.Io
	sessions repository.SessionRepository
	secret   string
}

// NewSessionSocketHandler creates the socket.io server. Connections must carry a valid
// bearer token in the token auth param.
func NewSessionSocketHandler(sessions repository.SessionRepository, jwtSecret string) *SessionSocketHandler {
	h := &SessionSocketHandler{
		io:       socketio.New(),
		sessions: sessions,
		secret:   jwtSecret,
	}
	h.setupSocketHandlers()
	return h
}

func (h *SessionSocketHandler) setupSocketHandlers() {
	h.io.OnAuthorization(h.authorize)

	h.io.OnConnection(func(socket *socketio.Socket) {
		slog.Debug("socket connected", "socket_id", socket.Id, "namespace", socket.Nps)

		socket.Emit(models.SocketEventConnect, models.ConnectResponse{
			Message:   "Connected to speed dating sessions",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			SocketID:  socket.Id,
			Status:    "connected",
			Event:     models.SocketEventConnect,
		})

		socket.On(models.SocketEventJoinSession, func(event *socketio.EventPayload) {
			sessionID, ok := h.sessionIDFromPayload(socket, event)
			if !ok {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), socketLookupTimeout)
			defer cancel()
			s, err := h.sessions.GetSession(ctx, sessionID)
			if err != nil {
				code, message := models.SocketErrorInternal, "Failed to load session"
				if errors.Is(err, models.ErrNotFound) {
					code, message = models.SocketErrorNotFound, "Session not found"
				} else {
					slog.Error("socket session lookup failed", "session_id", sessionID, "error", err)
				}
				socket.Emit(models.SocketEventError, models.NewConnectionError(socket.Id, code, "session_id", message))
				return
			}

			room := models.SessionRoom(sessionID)
			socket.Join(room)
			snapshot := models.NewSessionEvent(models.EventSessionUpdated, s)
			socket.Emit(models.SocketEventJoined, h.roomResponse(socket, sessionID, models.SocketEventJoined, &snapshot))
			slog.Debug("socket joined session room", "socket_id", socket.Id, "session_id", sessionID)
		})

		socket.On(models.SocketEventLeaveSession, func(event *socketio.EventPayload) {
			sessionID, ok := h.sessionIDFromPayload(socket, event)
			if !ok {
				return
			}
			socket.Leave(models.SessionRoom(sessionID))
			socket.Emit(models.SocketEventLeft, h.roomResponse(socket, sessionID, models.SocketEventLeft, nil))
		})

		socket.On(models.SocketEventPing, func(event *socketio.EventPayload) {
			socket.Emit(models.SocketEventPong, map[string]interface{}{
				"success":   true,
				"message":   "pong",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})

		socket.On("disconnect", func(event *socketio.EventPayload) {
			slog.Debug("socket disconnected", "socket_id", socket.Id)
		})
	})
}

// authorize accepts the handshake only with a valid token, optionally "Bearer " prefixed
func (h *SessionSocketHandler) authorize(params map[string]string) bool {
	token := strings.TrimPrefix(params["token"], "Bearer ")
	userID, err := utils.VerifyJWTToken(h.secret, token)
	if err != nil {
		slog.Debug("socket authorization rejected", "error", err)
		return false
	}
	slog.Debug("socket authorized", "user_id", userID)
	return true
}

func (h *SessionSocketHandler) sessionIDFromPayload(socket *socketio.Socket, event *socketio.EventPayload) (string, bool) {
	if len(event.Data) == 0 {
		socket.Emit(models.SocketEventError, models.NewConnectionError(socket.Id, models.SocketErrorMissingField, "session_id", "No session data provided"))
		return "", false
	}

	var sessionID string
	switch data := event.Data[0].(type) {
	case map[string]interface{}:
		sessionID, _ = data["session_id"].(string)
	case string:
		sessionID = data
	default:
		socket.Emit(models.SocketEventError, models.NewConnectionError(socket.Id, models.SocketErrorInvalidType, "session_id", "Invalid session data format"))
		return "", false
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		socket.Emit(models.SocketEventError, models.NewConnectionError(socket.Id, models.SocketErrorMissingField, "session_id", "session_id is required"))
		return "", false
	}
	return sessionID, true
}

func (h *SessionSocketHandler) roomResponse(socket *socketio.Socket, sessionID, event string, snapshot *models.SessionEvent) models.SessionRoomResponse {
	return models.SessionRoomResponse{
		Status:    "success",
		SessionID: sessionID,
		Room:      models.SessionRoom(sessionID),
		SocketID:  socket.Id,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Session:   snapshot,
	}
}

// NotifySession broadcasts event for s to the session room
func (h *SessionSocketHandler) NotifySession(event string, s *models.Session) {
	if s == nil {
		return
	}
	h.io.To(models.SessionRoom(s.ID)).Emit(event, models.NewSessionEvent(event, s))
	slog.Debug("session event broadcast", "event", event, "session_id", s.ID, "status", s.Status)
}

// GetIo returns the Socket.IO instance
func (h *SessionSocketHandler) GetIo() *socketio.Io {
	return h.io
}

// SetupSocketRoutes configures Socket.IO routes for the Fiber app
func (h *SessionSocketHandler) SetupSocketRoutes(app *fiber.App) {
	app.Use("/", h.io.Middleware)
	app.Route("/socket.io", h.io.FiberRoute)
}
