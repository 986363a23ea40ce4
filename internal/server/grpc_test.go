package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/internal/history/store"
	coregrpc "github.com/msto63/mExpr/pkg/core/grpc"
)

// newGRPCTestServer serves HTTP on a loopback port and gRPC on an in-memory
// listener, and returns a client connection to the gRPC side
func newGRPCTestServer(t *testing.T, history store.Store) (*Server, *grpc.ClientConn) {
	t.Helper()

	srv, err := New(DefaultConfig(), Options{Logger: mdwlog.Discard(), History: history})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	httpListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	grpcListener := bufconn.Listen(1024 * 1024)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListeners(ctx, httpListener, grpcListener) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("ServeListeners() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("ServeListeners() did not return after cancellation")
		}
	})

	cfg := coregrpc.DefaultClientConfig("passthrough:///bufnet")
	cfg.Logger = mdwlog.Discard()
	conn, err := coregrpc.Dial(cfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return grpcListener.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func TestGRPC_Parse(t *testing.T) {
	_, conn := newGRPCTestServer(t, nil)
	client := NewExprClient(conn)

	resp, err := client.Parse(context.Background(), &ParseRequest{Input: " 1 + 2 * 3 "})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if resp.Input != "1 + 2 * 3" {
		t.Errorf("Input = %q", resp.Input)
	}
	if resp.Canonical != "(1 + (2 * 3))" {
		t.Errorf("Canonical = %q, want %q", resp.Canonical, "(1 + (2 * 3))")
	}
	if len(resp.AST) == 0 {
		t.Error("AST is empty")
	}
}

func TestGRPC_Eval(t *testing.T) {
	_, conn := newGRPCTestServer(t, nil)
	client := NewExprClient(conn)
	ctx := context.Background()

	resp, err := client.Eval(ctx, &EvalRequest{Input: "y = x / 2", Vars: map[string]float64{"x": 9}})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if resp.Value != 4.5 {
		t.Errorf("Value = %v, want 4.5", resp.Value)
	}
	if resp.Vars["x"] != 9 || resp.Vars["y"] != 4.5 || len(resp.Vars) != 2 {
		t.Errorf("Vars = %v", resp.Vars)
	}

	// calls do not share variables
	if _, err := client.Eval(ctx, &EvalRequest{Input: "y + 1"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Eval(y + 1) code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestGRPC_Errors(t *testing.T) {
	_, conn := newGRPCTestServer(t, nil)
	client := NewExprClient(conn)
	big := "1" + strings.Repeat("0", 308)

	tests := []struct {
		name     string
		call     func(ctx context.Context) error
		code     mdwerror.Code
		category string
		offset   string
	}{
		{"unbalanced", func(ctx context.Context) error {
			_, err := client.Parse(ctx, &ParseRequest{Input: "(1 + 2"})
			return err
		}, mdwerror.CodeUnbalancedParens, "parse", "0"},
		{"lex", func(ctx context.Context) error {
			_, err := client.Parse(ctx, &ParseRequest{Input: "1 $ 2"})
			return err
		}, mdwerror.CodeUnrecognizedToken, "lex", "2"},
		{"empty", func(ctx context.Context) error {
			_, err := client.Parse(ctx, &ParseRequest{Input: "  "})
			return err
		}, mdwerror.CodeInvalidInput, "generic", ""},
		{"meta command", func(ctx context.Context) error {
			_, err := client.Eval(ctx, &EvalRequest{Input: ":vars"})
			return err
		}, mdwerror.CodeInvalidInput, "generic", ""},
		{"division by zero", func(ctx context.Context) error {
			_, err := client.Eval(ctx, &EvalRequest{Input: "1 / 0"})
			return err
		}, mdwerror.CodeDivisionByZero, "eval", ""},
		{"overflow", func(ctx context.Context) error {
			_, err := client.Eval(ctx, &EvalRequest{Input: big + " * 10"})
			return err
		}, mdwerror.CodeOverflow, "eval", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(context.Background())
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %v, want InvalidArgument (err %v)", status.Code(err), err)
			}
			info, ok := ErrorInfo(err)
			if !ok {
				t.Fatal("no ErrorInfo detail")
			}
			if info.GetReason() != string(tt.code) || info.GetDomain() != ErrorDomain {
				t.Errorf("ErrorInfo = %s/%s, want %s/%s", info.GetDomain(), info.GetReason(), ErrorDomain, tt.code)
			}
			if got := info.GetMetadata()["category"]; got != tt.category {
				t.Errorf("category = %q, want %q", got, tt.category)
			}
			if tt.offset != "" && info.GetMetadata()["offset"] != tt.offset {
				t.Errorf("offset = %q, want %q", info.GetMetadata()["offset"], tt.offset)
			}
		})
	}
}

func TestGRPC_RecordsHistory(t *testing.T) {
	history := store.NewMemoryStore()
	_, conn := newGRPCTestServer(t, history)
	client := NewExprClient(conn)

	ctx := metadata.AppendToOutgoingContext(context.Background(), coregrpc.RequestIDHeader, "req-7")
	if _, err := client.Eval(ctx, &EvalRequest{Input: "a = 2"}); err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if _, err := client.Parse(context.Background(), &ParseRequest{Input: "a +"}); err == nil {
		t.Fatal("Parse(a +) succeeded")
	}

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
	if entries[1].SessionID != "req-7" {
		t.Errorf("SessionID = %q, want the request id", entries[1].SessionID)
	}
}

func TestGRPC_SharesParseCache(t *testing.T) {
	srv, conn := newGRPCTestServer(t, nil)
	client := NewExprClient(conn)

	for i := 0; i < 3; i++ {
		if _, err := client.Parse(context.Background(), &ParseRequest{Input: "1 + 2"}); err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
	}
	if stats := srv.cache.Stats(); stats.Hits != 2 || stats.Size != 1 {
		t.Errorf("cache stats = %+v, want 2 hits and 1 tree", stats)
	}
}

func TestGRPC_Health(t *testing.T) {
	_, conn := newGRPCTestServer(t, nil)
	client := healthpb.NewHealthClient(conn)

	for _, service := range []string{"", "mexpr", "parser", "sessions"} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", service, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v, want SERVING", service, resp.GetStatus())
		}
	}
}

func TestServer_GRPCAddress(t *testing.T) {
	srv, err := New(DefaultConfig(), Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if addr := srv.GRPCAddress(); addr != "" {
		t.Errorf("GRPCAddress() = %q, want empty when disabled", addr)
	}

	cfg := DefaultConfig()
	cfg.GRPCPort = 9998
	srv, err = New(cfg, Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if addr := srv.GRPCAddress(); addr != "127.0.0.1:9998" {
		t.Errorf("GRPCAddress() = %q", addr)
	}
}
