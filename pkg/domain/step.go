package domain

import "math"

// StepResult is the fixed four-part outcome of every step: observation, reward, done and info.
// Err is set only on the failure path and is never returned as a Go error.
type StepResult struct {
	Observation Observation    `json:"observation"`
	Reward      float64        `json:"reward"`
	Done        bool           `json:"done"`
	Info        map[string]any `json:"info"`
	Err         error          `json:"-"`
}

// FailedStep builds the uniform failure result: unknown observation, NaN reward, done.
// The NaN reward lets aggregation tell a failed call apart from a zero reward.
func FailedStep(cause error) StepResult {
	return StepResult{
		Observation: UnknownObservation,
		Reward:      math.NaN(),
		Done:        true,
		Info:        map[string]any{},
		Err:         cause,
	}
}

// Failed reports whether the result came from the failure path.
func (r StepResult) Failed() bool {
	return r.Err != nil || math.IsNaN(r.Reward)
}
