package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
	"github.com/msto63/mExpr/internal/repl"
)

// WebSocket upgrader; the service binds to localhost by default, so any
// origin is accepted
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types
const (
	TypeParse  = "parse"
	TypeEval   = "eval"
	TypeReset  = "reset"
	TypeVars   = "vars"
	TypePing   = "ping"
	TypeResult = "result"
	TypeError  = "error"
	TypePong   = "pong"
	TypeHello  = "hello"
)

// WSMessage represents a client message
type WSMessage struct {
	ID      string          `json:"id,omitempty"` // echoed in the response
	Type    string          `json:"type"`         // "parse", "eval", "reset", "vars", "ping"
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSInputPayload is the payload of parse and eval messages
type WSInputPayload struct {
	Input string `json:"input"`
}

// WSResponse represents a server message
type WSResponse struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"` // "hello", "result", "error", "pong"
	Payload interface{} `json:"payload,omitempty"`
}

// WSResultPayload carries a successful parse or evaluation
type WSResultPayload struct {
	Input     string                 `json:"input,omitempty"`
	Mode      string                 `json:"mode,omitempty"`
	Canonical string                 `json:"canonical,omitempty"`
	AST       map[string]interface{} `json:"ast,omitempty"`
	Value     *float64               `json:"value,omitempty"`
	Vars      map[string]float64     `json:"vars,omitempty"`
	Reset     bool                   `json:"reset,omitempty"`
}

// WSErrorPayload represents an error payload
type WSErrorPayload struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Offset   *int   `json:"offset,omitempty"`
}

// WSHelloPayload is sent once after the upgrade
type WSHelloPayload struct {
	SessionID string `json:"session_id"`
	Grammar   string `json:"grammar"`
	Version   string `json:"version"`
}

// WebSocketHandler handles websocket sessions. Each connection gets its own
// REPL session and variable environment; the parser is shared.
type WebSocketHandler struct {
	server *Server
}

// ServeHTTP handles WebSocket upgrade and connections
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.server

	active := s.sessions.Add(1)
	defer s.sessions.Add(-1)

	if limit := s.config.MaxSessions; limit > 0 && active > int64(limit) {
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnWithErr("WebSocket upgrade failed", err)
		return
	}

	s.track(conn)
	defer s.untrack(conn)

	h.handleConnection(r.Context(), conn)
}

// handleConnection handles a single WebSocket connection
func (h *WebSocketHandler) handleConnection(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	s := h.server

	session, err := repl.NewSession(repl.Options{
		Engine:   s.engine,
		Recorder: s.recorder(),
		Cache:    s.cache,
		Logger:   s.logger,
	})
	if err != nil {
		h.sendError(conn, "", err)
		return
	}

	logger := s.logger.WithSession(session.ID())
	logger.Info("WebSocket connection established", mdwlog.Fields{"remote": conn.RemoteAddr().String()})

	// Set read deadline for ping/pong
	idle := s.config.IdleTimeout
	conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(idle))
		return nil
	})

	h.sendResponse(conn, WSResponse{
		Type: TypeHello,
		Payload: WSHelloPayload{
			SessionID: session.ID(),
			Grammar:   s.engine.Registry().Name(),
			Version:   s.config.Version,
		},
	})

	// Read messages in a loop; messages of one connection are handled in order
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnWithErr("WebSocket read error", err)
			} else {
				logger.Info("WebSocket connection closed", mdwlog.Fields{"lines": session.Lines()})
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(idle))

		h.sendResponse(conn, h.handleMessage(ctx, session, msg))
	}
}

// handleMessage turns one client message into one response
func (h *WebSocketHandler) handleMessage(ctx context.Context, session *repl.Session, msg WSMessage) WSResponse {
	switch msg.Type {
	case TypePing:
		return WSResponse{ID: msg.ID, Type: TypePong}

	case TypeReset:
		session.Reset()
		return WSResponse{ID: msg.ID, Type: TypeResult, Payload: WSResultPayload{Reset: true}}

	case TypeVars:
		return WSResponse{ID: msg.ID, Type: TypeResult, Payload: WSResultPayload{Vars: session.Env().Snapshot()}}

	case TypeParse, TypeEval:
		var payload WSInputPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errorResponse(msg.ID, mdwerror.Wrap(err, "invalid payload").WithCode(mdwerror.CodeInvalidInput))
		}

		input := strings.TrimSpace(payload.Input)
		if input == "" || strings.HasPrefix(input, ":") {
			return errorResponse(msg.ID, mdwerror.New("input must be a non-empty expression").
				WithCode(mdwerror.CodeInvalidInput))
		}

		mode := repl.ModeParse
		if msg.Type == TypeEval {
			mode = repl.ModeEval
		}
		session.SetMode(mode)

		result := session.ProcessContext(ctx, input)
		if result.Err != nil {
			return errorResponse(msg.ID, result.Err)
		}

		return WSResponse{ID: msg.ID, Type: TypeResult, Payload: WSResultPayload{
			Input:     result.Input,
			Mode:      string(result.Mode),
			Canonical: mdwast.Canonical(result.Node),
			AST:       mdwast.ToMap(result.Node),
			Value:     result.Value,
		}}

	default:
		return errorResponse(msg.ID, mdwerror.Newf("unknown message type %q", msg.Type).
			WithCode(mdwerror.CodeInvalidInput).
			WithDetail("type", msg.Type))
	}
}

func errorResponse(id string, err error) WSResponse {
	code := mdwerror.GetCode(err)
	payload := WSErrorPayload{
		Code:     string(code),
		Category: code.Category(),
		Message:  err.Error(),
	}
	if offset, ok := repl.ErrorOffset(err); ok {
		payload.Offset = &offset
	}
	return WSResponse{ID: id, Type: TypeError, Payload: payload}
}

// sendResponse sends a response message via WebSocket
func (h *WebSocketHandler) sendResponse(conn *websocket.Conn, resp WSResponse) {
	if timeout := h.server.config.WriteTimeout; timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	data, err := json.Marshal(resp)
	if err != nil {
		h.server.logger.ErrorWithErr("WebSocket response not encodable", err, mdwlog.Fields{"type": resp.Type})
		data, _ = json.Marshal(errorResponse(resp.ID,
			mdwerror.Wrap(err, "response could not be encoded").WithCode(mdwerror.CodeInternal)))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.server.logger.WarnWithErr("WebSocket send error", err)
	}
}

// sendError sends an error response via WebSocket
func (h *WebSocketHandler) sendError(conn *websocket.Conn, id string, err error) {
	h.sendResponse(conn, errorResponse(id, err))
}
