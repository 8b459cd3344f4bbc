package stage

import (
	"context"

	"dubber/internal/runstore"
)

// Handler is the contract each pipeline stage implements.
//
// Prepare validates inputs and records artifact paths on the run; Execute
// performs the work. Both may mutate the run, which the execution helper
// persists between and after the calls.
type Handler interface {
	Prepare(context.Context, *runstore.Run) error
	Execute(context.Context, *runstore.Run) error
}

// HealthChecker is implemented by handlers that can report readiness
// before any run state is touched.
type HealthChecker interface {
	Health(context.Context) Health
}

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
