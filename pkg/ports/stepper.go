package ports

import (
	"context"

	"github.com/aretw0/simgym/pkg/domain"
)

// Stepper translates one control action into one step result.
// Implementations never return errors: every failure maps to domain.FailedStep.
type Stepper interface {
	Step(ctx context.Context, action float64) domain.StepResult
}
