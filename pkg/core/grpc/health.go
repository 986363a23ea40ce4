package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/msto63/mExpr/pkg/core/health"
)

// HealthServer serves grpc.health.v1.Health from a health registry. The
// empty service name and the registry's service name report the overall
// status; any other name runs the check of that name. Watch is not supported.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	registry *health.Registry
}

// NewHealthServer creates a health service backed by registry
func NewHealthServer(registry *health.Registry) *HealthServer {
	return &HealthServer{registry: registry}
}

// RegisterHealth registers the health service on s
func RegisterHealth(s *Server, registry *health.Registry) {
	healthpb.RegisterHealthServer(s.GRPCServer(), NewHealthServer(registry))
}

// Check reports the status of the service or of one check
func (h *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	name := req.GetService()
	if name == "" || name == h.registry.Service() {
		return &healthpb.HealthCheckResponse{Status: servingStatus(h.registry.Check(ctx).Status)}, nil
	}

	result, ok := h.registry.Run(ctx, name)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	return &healthpb.HealthCheckResponse{Status: servingStatus(result.Status)}, nil
}

// List reports the overall status under the service name and every check
// under its own name
func (h *HealthServer) List(ctx context.Context, req *healthpb.HealthListRequest) (*healthpb.HealthListResponse, error) {
	report := h.registry.Check(ctx)

	statuses := make(map[string]*healthpb.HealthCheckResponse, len(report.Checks)+1)
	statuses[h.registry.Service()] = &healthpb.HealthCheckResponse{Status: servingStatus(report.Status)}
	for _, check := range report.Checks {
		statuses[check.Name] = &healthpb.HealthCheckResponse{Status: servingStatus(check.Status)}
	}
	return &healthpb.HealthListResponse{Statuses: statuses}, nil
}

// servingStatus maps a registry status; a degraded component still serves
func servingStatus(s health.Status) healthpb.HealthCheckResponse_ServingStatus {
	switch s {
	case health.StatusHealthy, health.StatusDegraded:
		return healthpb.HealthCheckResponse_SERVING
	case health.StatusUnhealthy:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_UNKNOWN
	}
}
