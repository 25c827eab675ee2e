// File: api/schemas/interfaces.go
package schemas

import "context"

// ActionExecutor performs a requested action against the live desktop and
// returns the resulting observation. Implementations own the physical input
// channel exclusively for the run's duration.
type ActionExecutor interface {
	// Execute dispatches the action and captures a fresh screenshot.
	// A substrate failure is fatal for the run and is not retried.
	Execute(ctx context.Context, req *ActionRequest) (*Observation, error)
}

// StepNavigator moves a cursor through the process-documentation step chain.
// It backs the navigation tool exposed to the model in graph mode.
type StepNavigator interface {
	NextStep(ctx context.Context) (ProcessStep, error)
	PrevStep(ctx context.Context) (ProcessStep, error)
	CurrStep(ctx context.Context) (ProcessStep, error)
}
