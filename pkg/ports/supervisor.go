package ports

import "github.com/aretw0/simgym/pkg/domain"

// Supervisor owns at most one external simulator process.
type Supervisor interface {
	// Start launches the simulator rooted at resultsDir and returns its PID.
	// Callers treat a launch error as non-fatal: it surfaces later as failed steps.
	Start(resultsDir string) (int, error)

	// Terminate stops the tracked process (graceful, then forced) and clears it.
	// It is a no-op when nothing is tracked and never fails or hangs.
	Terminate() domain.Termination

	// State reports the current lifecycle state.
	State() domain.ProcessState
}
