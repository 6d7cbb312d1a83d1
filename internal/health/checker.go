// Package health checks the services a run depends on before the
// scheduler starts one.
//
//	m := health.NewManager()
//	m.AddChecker(health.NewRuntimeChecker(runtime))
//	m.AddChecker(health.NewDirChecker("journal", cfg.Journal.Dir))
//	for _, r := range m.Check(ctx) { ... }
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "runtime" or "game-api".
	Name() string
	// Check must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the health of one dependency.
type Status string

const (
	// StatusHealthy means the dependency works.
	StatusHealthy Status = "healthy"
	// StatusDegraded means runs go ahead without it.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means runs will fail.
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string { return string(s) }

// Result is the outcome of one check.
type Result struct {
	Name    string         `json:"name" yaml:"name"`
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult returns a result with an empty details map.
func NewResult(status Status, message string) *Result {
	return &Result{Status: status, Message: message, Details: map[string]any{}}
}

// WithDetail adds a detail and returns r.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

func Healthy(message string) *Result { return NewResult(StatusHealthy, message) }
func Degraded(message string) *Result { return NewResult(StatusDegraded, message) }
func Unhealthy(message string) *Result { return NewResult(StatusUnhealthy, message) }
