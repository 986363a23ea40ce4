package server

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/internal/history/store"
	"github.com/msto63/mExpr/pkg/core/health"
)

type wsResponse struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, cfg Config, history store.Store) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(cfg, Options{Logger: mdwlog.Discard(), History: history})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	if srv.cache != nil {
		t.Cleanup(srv.cache.Close)
	}
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	hello := read(t, conn)
	if hello.Type != TypeHello {
		t.Fatalf("first message type = %q, want hello", hello.Type)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) wsResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return resp
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) wsResponse {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	return read(t, conn)
}

func TestWebSocket_Parse(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, `{"id":"1","type":"parse","payload":{"input":"1 + 2 * 3"}}`)
	if resp.Type != TypeResult || resp.ID != "1" {
		t.Fatalf("response = %+v", resp)
	}

	var result WSResultPayload
	if err := json.Unmarshal(resp.Payload, &result); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if result.Canonical != "(1 + (2 * 3))" || result.Mode != "parse" || result.Value != nil {
		t.Errorf("result = %+v", result)
	}
	if result.AST["type"] != "BinaryOp" || result.AST["operator"] != "+" {
		t.Errorf("ast = %v", result.AST)
	}
}

func TestWebSocket_EvalKeepsEnvironmentPerConnection(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)
	first := dial(t, ts)
	second := dial(t, ts)

	resp := roundTrip(t, first, `{"type":"eval","payload":{"input":"x = 6 / 4"}}`)
	var result WSResultPayload
	json.Unmarshal(resp.Payload, &result)
	if resp.Type != TypeResult || result.Value == nil || *result.Value != 1.5 {
		t.Fatalf("eval response = %s", resp.Payload)
	}

	resp = roundTrip(t, first, `{"type":"eval","payload":{"input":"x * 2"}}`)
	json.Unmarshal(resp.Payload, &result)
	if result.Value == nil || *result.Value != 3 {
		t.Errorf("x * 2 = %s", resp.Payload)
	}

	// The second connection has its own environment
	resp = roundTrip(t, second, `{"type":"eval","payload":{"input":"x"}}`)
	var errPayload WSErrorPayload
	json.Unmarshal(resp.Payload, &errPayload)
	if resp.Type != TypeError || errPayload.Code != string(mdwerror.CodeUndefinedVariable) {
		t.Errorf("second connection response = %+v %s", resp, resp.Payload)
	}

	resp = roundTrip(t, first, `{"type":"vars"}`)
	json.Unmarshal(resp.Payload, &result)
	if result.Vars["x"] != 1.5 {
		t.Errorf("vars = %v", result.Vars)
	}

	resp = roundTrip(t, first, `{"type":"reset"}`)
	if resp.Type != TypeResult {
		t.Errorf("reset response = %+v", resp)
	}
	resp = roundTrip(t, first, `{"type":"eval","payload":{"input":"x"}}`)
	if resp.Type != TypeError {
		t.Errorf("x after reset = %+v", resp)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)
	conn := dial(t, ts)

	tests := []struct {
		name     string
		msg      string
		code     mdwerror.Code
		offset   int
		category string
	}{
		{"unbalanced", `{"type":"parse","payload":{"input":"(1 + 2"}}`, mdwerror.CodeUnbalancedParens, 0, "parse"},
		{"lex", `{"type":"parse","payload":{"input":"1 $ 2"}}`, mdwerror.CodeUnrecognizedToken, 2, "lex"},
		{"empty", `{"type":"parse","payload":{"input":"  "}}`, mdwerror.CodeInvalidInput, -1, "generic"},
		{"meta command", `{"type":"eval","payload":{"input":":reset"}}`, mdwerror.CodeInvalidInput, -1, "generic"},
		{"bad payload", `{"type":"eval","payload":"nope"}`, mdwerror.CodeInvalidInput, -1, "generic"},
		{"unknown type", `{"type":"compile"}`, mdwerror.CodeInvalidInput, -1, "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip(t, conn, tt.msg)
			if resp.Type != TypeError {
				t.Fatalf("type = %q, want error", resp.Type)
			}
			var payload WSErrorPayload
			if err := json.Unmarshal(resp.Payload, &payload); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if payload.Code != string(tt.code) {
				t.Errorf("code = %s, want %s (%s)", payload.Code, tt.code, payload.Message)
			}
			if payload.Category != tt.category {
				t.Errorf("category = %s, want %s", payload.Category, tt.category)
			}
			if tt.offset >= 0 && (payload.Offset == nil || *payload.Offset != tt.offset) {
				t.Errorf("offset = %v, want %d", payload.Offset, tt.offset)
			}
		})
	}
}

func TestWebSocket_EvalOverflow(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)
	conn := dial(t, ts)

	big := "1" + strings.Repeat("0", 308)
	msg, _ := json.Marshal(map[string]interface{}{
		"id":      "big",
		"type":    TypeEval,
		"payload": WSInputPayload{Input: big + " * 10"},
	})
	resp := roundTrip(t, conn, string(msg))
	if resp.Type != TypeError || resp.ID != "big" {
		t.Fatalf("response = %+v, want error", resp)
	}
	var payload WSErrorPayload
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Code != string(mdwerror.CodeOverflow) || payload.Category != "eval" {
		t.Errorf("payload = %+v, want %s", payload, mdwerror.CodeOverflow)
	}

	if resp := roundTrip(t, conn, `{"type":"eval","payload":{"input":"2 * 3"}}`); resp.Type != TypeResult {
		t.Errorf("session unusable after overflow: %+v", resp)
	}
}

func TestSendResponse_UnencodablePayload(t *testing.T) {
	srv, err := New(DefaultConfig(), Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.cache != nil {
		t.Cleanup(srv.cache.Close)
	}
	h := &WebSocketHandler{server: srv}

	inf := math.Inf(1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		h.sendResponse(conn, WSResponse{ID: "x", Type: TypeResult, Payload: WSResultPayload{Value: &inf}})
		conn.ReadMessage() // wait for the client to close
	}))
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	resp := read(t, conn)
	if resp.Type != TypeError || resp.ID != "x" {
		t.Fatalf("response = %+v, want error", resp)
	}
	var payload WSErrorPayload
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Code != string(mdwerror.CodeInternal) {
		t.Errorf("code = %s, want %s", payload.Code, mdwerror.CodeInternal)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)
	conn := dial(t, ts)

	if resp := roundTrip(t, conn, `{"id":"p","type":"ping"}`); resp.Type != TypePong || resp.ID != "p" {
		t.Errorf("ping response = %+v", resp)
	}
}

func TestWebSocket_RecordsHistory(t *testing.T) {
	history := store.NewMemoryStore()
	_, ts := newTestServer(t, DefaultConfig(), history)
	conn := dial(t, ts)

	roundTrip(t, conn, `{"type":"eval","payload":{"input":"a = 2"}}`)
	roundTrip(t, conn, `{"type":"parse","payload":{"input":"a +"}}`)

	entries, err := history.Query(context.Background(), store.Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(entries))
	}
	if entries[0].ErrorCode != string(mdwerror.CodeUnexpectedEndOfInput) || entries[1].Mode != store.ModeEval {
		t.Errorf("entries = %+v, %+v", entries[0], entries[1])
	}
	if entries[0].SessionID != entries[1].SessionID {
		t.Error("entries of one connection should share a session ID")
	}
}

func TestWebSocket_MaxSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 1
	srv, ts := newTestServer(t, cfg, nil)

	dial(t, ts)
	if srv.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", srv.ActiveSessions())
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second Dial() succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("second Dial() response = %v", resp)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), store.NewMemoryStore())

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != health.StatusHealthy || len(report.Checks) != 4 {
		t.Errorf("report = %+v", report)
	}
}

func TestParseCache_SharedAcrossConnections(t *testing.T) {
	srv, ts := newTestServer(t, DefaultConfig(), nil)

	first := roundTrip(t, dial(t, ts), `{"id":"1","type":"parse","payload":{"input":"x * (y + 1)"}}`)
	second := roundTrip(t, dial(t, ts), `{"id":"2","type":"eval","payload":{"input":"x * (y + 1)"}}`)
	if first.Type != TypeResult {
		t.Fatalf("first response = %+v", first)
	}
	if second.Type != TypeError {
		t.Fatalf("second response = %+v, want undefined variable error", second)
	}

	stats := srv.cache.Stats()
	if stats.Size != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("cache stats = %+v, want one tree with one hit", stats)
	}
}

func TestParseCache_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParseCacheSize = 0
	srv, ts := newTestServer(t, cfg, nil)
	if srv.cache != nil {
		t.Fatal("cache created with size 0")
	}

	resp := roundTrip(t, dial(t, ts), `{"id":"1","type":"parse","payload":{"input":"1 + 1"}}`)
	if resp.Type != TypeResult {
		t.Errorf("response = %+v", resp)
	}
}

func TestServeListener_Shutdown(t *testing.T) {
	srv, err := New(DefaultConfig(), Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, listener) }()

	url := "ws://" + listener.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	read(t, conn) // hello

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeListener() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeListener() did not return after cancellation")
	}

	// Open websocket sessions are closed on shutdown
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after shutdown")
	}
}

func TestServer_Address(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 9999
	srv, err := New(cfg, Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Address() != "127.0.0.1:9999" {
		t.Errorf("Address() = %v", srv.Address())
	}
}
