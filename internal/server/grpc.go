package server

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
	mdweval "github.com/msto63/mExpr/foundation/expr/eval"
	"github.com/msto63/mExpr/internal/repl"
	coregrpc "github.com/msto63/mExpr/pkg/core/grpc"
)

// ExprServiceName is the full gRPC service name. Messages are JSON encoded
// with the "json" content-subtype; there are no protobuf definitions.
const ExprServiceName = "mexpr.v1.ExprService"

// ErrorDomain is the domain of the ErrorInfo detail attached to failed calls
const ErrorDomain = "mexpr"

// ParseRequest asks for the syntax tree of one expression
type ParseRequest struct {
	Input string `json:"input"`
}

// ParseResponse carries the syntax tree
type ParseResponse struct {
	Input     string                 `json:"input"`
	Canonical string                 `json:"canonical"`
	AST       map[string]interface{} `json:"ast"`
}

// EvalRequest evaluates one expression against the given variables
type EvalRequest struct {
	Input string             `json:"input"`
	Vars  map[string]float64 `json:"vars,omitempty"`
}

// EvalResponse carries the value and the variables after evaluation
type EvalResponse struct {
	Input     string             `json:"input"`
	Canonical string             `json:"canonical"`
	Value     float64            `json:"value"`
	Vars      map[string]float64 `json:"vars,omitempty"`
}

// ExprServer is the server API of the expression service. Calls are
// stateless: every call gets a fresh environment.
type ExprServer interface {
	Parse(ctx context.Context, req *ParseRequest) (*ParseResponse, error)
	Eval(ctx context.Context, req *EvalRequest) (*EvalResponse, error)
}

// ExprServiceDesc describes the expression service for grpc.Server
var ExprServiceDesc = grpc.ServiceDesc{
	ServiceName: ExprServiceName,
	HandlerType: (*ExprServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Parse",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(ParseRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return unary(ctx, req, srv, "Parse", interceptor, func(ctx context.Context, req any) (any, error) {
					return srv.(ExprServer).Parse(ctx, req.(*ParseRequest))
				})
			},
		},
		{
			MethodName: "Eval",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(EvalRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				return unary(ctx, req, srv, "Eval", interceptor, func(ctx context.Context, req any) (any, error) {
					return srv.(ExprServer).Eval(ctx, req.(*EvalRequest))
				})
			},
		},
	},
	Metadata: "mexpr/v1/expr",
}

func unary(ctx context.Context, req, srv any, method string, interceptor grpc.UnaryServerInterceptor, handler grpc.UnaryHandler) (any, error) {
	if interceptor == nil {
		return handler(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ExprServiceName + "/" + method}
	return interceptor(ctx, req, info, handler)
}

// exprService runs each call in a short-lived REPL session sharing the
// server's engine, parse cache and history
type exprService struct {
	server *Server
}

func (e *exprService) Parse(ctx context.Context, req *ParseRequest) (*ParseResponse, error) {
	result, err := e.process(ctx, repl.ModeParse, req.Input, nil)
	if err != nil {
		return nil, err
	}
	return &ParseResponse{
		Input:     result.Input,
		Canonical: mdwast.Canonical(result.Node),
		AST:       mdwast.ToMap(result.Node),
	}, nil
}

func (e *exprService) Eval(ctx context.Context, req *EvalRequest) (*EvalResponse, error) {
	env := mdweval.NewEnv()
	for name, value := range req.Vars {
		env.Set(name, value)
	}

	result, err := e.process(ctx, repl.ModeEval, req.Input, env)
	if err != nil {
		return nil, err
	}
	resp := &EvalResponse{
		Input:     result.Input,
		Canonical: mdwast.Canonical(result.Node),
		Vars:      env.Snapshot(),
	}
	if result.Value != nil {
		resp.Value = *result.Value
	}
	return resp, nil
}

func (e *exprService) process(ctx context.Context, mode repl.Mode, input string, env *mdweval.Env) (repl.Result, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, ":") {
		return repl.Result{}, statusError(mdwerror.New("input must be a non-empty expression").
			WithCode(mdwerror.CodeInvalidInput))
	}

	s := e.server
	session, err := repl.NewSession(repl.Options{
		Engine:   s.engine,
		Env:      env,
		Mode:     mode,
		Recorder: s.recorder(),
		Cache:    s.cache,
		Logger:   s.logger,
		ID:       coregrpc.GetRequestID(ctx),
	})
	if err != nil {
		return repl.Result{}, statusError(err)
	}

	result := session.ProcessContext(ctx, input)
	if result.Err != nil {
		return result, statusError(result.Err)
	}
	return result, nil
}

// statusError converts err into a gRPC status carrying an ErrorInfo with
// the error code, its category and the input offset when known
func statusError(err error) error {
	code := mdwerror.GetCode(err)
	st := status.New(grpcCode(code), err.Error())

	info := &errdetails.ErrorInfo{
		Reason:   string(code),
		Domain:   ErrorDomain,
		Metadata: map[string]string{"category": code.Category()},
	}
	if offset, ok := repl.ErrorOffset(err); ok {
		info.Metadata["offset"] = strconv.Itoa(offset)
	}
	if detailed, derr := st.WithDetails(info); derr == nil {
		st = detailed
	}
	return st.Err()
}

func grpcCode(code mdwerror.Code) codes.Code {
	switch {
	case code == mdwerror.CodeInvalidInput, code.IsSyntax(), code.Category() == "eval":
		return codes.InvalidArgument
	case code == mdwerror.CodeNotFound:
		return codes.NotFound
	case code == mdwerror.CodeDatabaseError:
		return codes.Unavailable
	case code == mdwerror.CodeInternal:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// ErrorInfo returns the ErrorInfo detail of a failed call
func ErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return info, true
		}
	}
	return nil, false
}

// ExprClient calls the expression service over a client connection
type ExprClient struct {
	conn grpc.ClientConnInterface
}

// NewExprClient creates a client for the expression service
func NewExprClient(conn grpc.ClientConnInterface) *ExprClient {
	return &ExprClient{conn: conn}
}

// Parse returns the syntax tree of req.Input
func (c *ExprClient) Parse(ctx context.Context, req *ParseRequest, opts ...grpc.CallOption) (*ParseResponse, error) {
	resp := new(ParseResponse)
	if err := c.invoke(ctx, "Parse", req, resp, opts); err != nil {
		return nil, err
	}
	return resp, nil
}

// Eval evaluates req.Input with req.Vars
func (c *ExprClient) Eval(ctx context.Context, req *EvalRequest, opts ...grpc.CallOption) (*EvalResponse, error) {
	resp := new(EvalResponse)
	if err := c.invoke(ctx, "Eval", req, resp, opts); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ExprClient) invoke(ctx context.Context, method string, req, resp any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{coregrpc.JSON()}, opts...)
	return c.conn.Invoke(ctx, "/"+ExprServiceName+"/"+method, req, resp, opts...)
}
