package models

import "time"

// Socket events handled and emitted by the session socket handler
const (
	SocketEventConnect      = "connect"
	SocketEventJoinSession  = "session:join"
	SocketEventLeaveSession = "session:leave"
	SocketEventJoined       = "session:joined"
	SocketEventLeft         = "session:left"
	SocketEventError        = "connection_error"
	SocketEventPing         = "ping"
	SocketEventPong         = "pong"
)

// Socket error codes
const (
	SocketErrorMissingField = "MISSING_FIELD"
	SocketErrorInvalidType  = "INVALID_FORMAT"
	SocketErrorNotFound     = ErrorCodeNotFound
	SocketErrorInternal     = ErrorCodeInternal
)

// SessionRoomPrefix prefixes the socket.io room of each session
const SessionRoomPrefix = "session:"

// SessionRoom returns the socket.io room name for sessionID
func SessionRoom(sessionID string) string {
	return SessionRoomPrefix + sessionID
}

// ConnectResponse is sent to a socket right after it connects
type ConnectResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	SocketID  string `json:"socket_id"`
	Status    string `json:"status"`
	Event     string `json:"event"`
}

// SessionRoomRequest is the payload of session:join and session:leave
type SessionRoomRequest struct {
	SessionID string `json:"session_id"`
}

// SessionRoomResponse acknowledges a join or leave
type SessionRoomResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Room      string `json:"room"`
	SocketID  string `json:"socket_id"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	// Session is the current snapshot, only set on join
	Session *SessionEvent `json:"session,omitempty"`
}

// ConnectionError represents error response
type ConnectionError struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	SocketID  string `json:"socket_id"`
	Event     string `json:"event"`
}

// NewConnectionError builds a connection_error payload for socketID
func NewConnectionError(socketID, code, field, message string) ConnectionError {
	return ConnectionError{
		Status:    "error",
		ErrorCode: code,
		Field:     field,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SocketID:  socketID,
		Event:     SocketEventError,
	}
}
