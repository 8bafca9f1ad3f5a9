package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker is returned when a checker name is registered twice.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is implemented by the storage backends and the remote source
// client so readiness can report on them.
type HealthChecker interface {
	// Name identifies the component in the readiness response.
	Name() string

	// Check returns nil when the component can serve requests.
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a plain function to HealthChecker.
type HealthCheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

// Name implements HealthChecker.
func (f HealthCheckFunc) Name() string { return f.CheckName }

// Check implements HealthChecker.
func (f HealthCheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

// NonCritical wraps c so its failure reports degraded instead of unhealthy.
// Readiness stays up while only non-critical checks fail.
func NonCritical(c HealthChecker) HealthChecker {
	return nonCritical{HealthChecker: c}
}

type nonCritical struct {
	HealthChecker
}

// HealthRegistry aggregates the registered checkers.
type HealthRegistry interface {
	// Register adds a checker. Names must be unique.
	Register(checker HealthChecker) error

	// CheckAll runs every checker concurrently under ctx.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is the state reported for a component or the whole service.
type HealthStatus string

const (
	// HealthStatusHealthy indicates all checks passed.
	HealthStatusHealthy HealthStatus = "healthy"

	// HealthStatusDegraded indicates only non-critical checks failed.
	HealthStatusDegraded HealthStatus = "degraded"

	// HealthStatusUnhealthy indicates at least one critical check failed.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the aggregate readiness report.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one checker.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DefaultHealthRegistry is a concurrency-safe HealthRegistry.
type DefaultHealthRegistry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{
		checkers: make([]HealthChecker, 0),
	}
}

// Register adds a checker, rejecting duplicate names.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	for _, c := range r.checkers {
		if c.Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
		}
	}

	r.checkers = append(r.checkers, checker)

	return nil
}

// CheckAll runs all registered checks concurrently.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := append([]HealthChecker(nil), r.checkers...)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: time.Now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, checker := range checkers {
		wg.Add(1)

		go func(c HealthChecker) {
			defer wg.Done()

			res := runCheck(ctx, c)

			mu.Lock()
			defer mu.Unlock()

			result.Checks[c.Name()] = res

			switch {
			case res.Status == HealthStatusUnhealthy:
				result.Status = HealthStatusUnhealthy
			case res.Status == HealthStatusDegraded && result.Status == HealthStatusHealthy:
				result.Status = HealthStatusDegraded
			}
		}(checker)
	}

	wg.Wait()

	return result
}

func runCheck(ctx context.Context, c HealthChecker) *CheckResult {
	start := time.Now()
	err := c.Check(ctx)

	res := &CheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start),
	}

	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()

		if _, ok := c.(nonCritical); ok {
			res.Status = HealthStatusDegraded
		}
	}

	return res
}
