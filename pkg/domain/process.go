package domain

// ProcessState is the supervisor's view of the simulator process.
type ProcessState string

const (
	StateIdle        ProcessState = "idle"
	StateStarting    ProcessState = "starting"
	StateRunning     ProcessState = "running"
	StateTerminating ProcessState = "terminating"
)

// Termination describes which path a terminate call took.
type Termination string

const (
	// TerminationNone means no process was tracked.
	TerminationNone Termination = "none"
	// TerminationExited means the tracked process had already exited on its own.
	TerminationExited Termination = "exited"
	// TerminationGraceful means the process honoured the termination signal within the grace period.
	TerminationGraceful Termination = "graceful"
	// TerminationForced means the process was killed after the grace period elapsed.
	TerminationForced Termination = "forced"
)
