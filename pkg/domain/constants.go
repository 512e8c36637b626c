package domain

import "fmt"

// Field constants for the step protocol and the experience log.
const (
	// KeyAction is the request field carrying the control action.
	KeyAction = "action"

	// KeyNextState, KeyReward and KeyDone are the step response fields.
	KeyNextState = "next_state"
	KeyReward    = "reward"
	KeyDone      = "done"

	// EpisodePrefix names both per-episode result directories and saved experience files.
	EpisodePrefix = "episode_"
)

// EpisodeName returns the deterministic name used for episode n ("episode_<n>").
func EpisodeName(n int) string {
	return fmt.Sprintf("%s%d", EpisodePrefix, n)
}
