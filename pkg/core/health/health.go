// Package health aggregates component checks of the expression service into
// one report. The same registry backs the /healthz endpoint and the gRPC
// health service.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health status of a component or the whole service
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// worse returns the more severe of two statuses. Unknown ranks below
// healthy because it is only reported for checks that do not exist.
func worse(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 2
	case StatusUnhealthy:
		return 3
	default:
		return 0
	}
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Duration  time.Duration          `json:"duration_ns"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Checker is a named health check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type funcChecker struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func (c funcChecker) Name() string                          { return c.name }
func (c funcChecker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return funcChecker{name: name, fn: fn}
}

// ErrorCheck creates a checker from a function that returns nil when the
// component works. An error reports unhealthy, or degraded when degradeOnly
// is set.
func ErrorCheck(name string, degradeOnly bool, fn func(ctx context.Context) error) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Status: StatusHealthy, Message: "ok"}
		if err := fn(ctx); err != nil {
			result.Status = StatusUnhealthy
			if degradeOnly {
				result.Status = StatusDegraded
			}
			result.Message = err.Error()
		}
		return result
	})
}

// Registry holds the checks of one service
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	service  string
	version  string
	startAt  time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(service, version string) *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		service:  service,
		version:  version,
		startAt:  time.Now(),
	}
}

// Service returns the service name reported in each report
func (r *Registry) Service() string {
	return r.service
}

// Register adds a checker, replacing one with the same name
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// RegisterFunc adds a check function under name
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Unregister removes a checker
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// Names returns the registered check names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a single check. The result is StatusUnknown with ok false
// when no check has that name.
func (r *Registry) Run(ctx context.Context, name string) (CheckResult, bool) {
	r.mu.RLock()
	checker, ok := r.checkers[name]
	r.mu.RUnlock()
	if !ok {
		return CheckResult{Name: name, Status: StatusUnknown, Message: "no such check", Timestamp: time.Now()}, false
	}
	return run(ctx, checker), true
}

// Check runs all checks concurrently. Results are sorted by name and the
// report status is the worst check status.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := StatusHealthy
	for _, result := range results {
		status = worse(status, result.Status)
	}

	return &Report{
		Service:   r.service,
		Version:   r.version,
		Status:    status,
		Uptime:    time.Since(r.startAt),
		Timestamp: time.Now(),
		Checks:    results,
	}
}

func run(ctx context.Context, c Checker) CheckResult {
	start := time.Now()
	result := c.Check(ctx)
	result.Duration = time.Since(start)
	result.Timestamp = time.Now()
	if result.Name == "" {
		result.Name = c.Name()
	}
	return result
}

// Report is the aggregated health of a service
type Report struct {
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Status    Status        `json:"status"`
	Uptime    time.Duration `json:"uptime_ns"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// String returns a one-line summary of the report
func (r *Report) String() string {
	return fmt.Sprintf("Service: %s, Status: %s, Uptime: %v, Checks: %d",
		r.Service, r.Status, r.Uptime, len(r.Checks))
}

// Handler serves the report as JSON. Unhealthy reports answer 503. With
// ?check=name only that check is run; an unknown name answers 404.
func Handler(r *Registry, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if name := req.URL.Query().Get("check"); name != "" {
			result, ok := r.Run(ctx, name)
			switch {
			case !ok:
				w.WriteHeader(http.StatusNotFound)
			case result.Status == StatusUnhealthy:
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(result)
			return
		}

		report := r.Check(ctx)
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}
