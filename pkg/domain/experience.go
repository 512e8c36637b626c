package domain

// Experience is one logged transition, persisted by the recorder at episode end.
type Experience struct {
	State     any     `json:"state"`
	Action    float64 `json:"action"`
	Reward    float64 `json:"reward"`
	NextState any     `json:"next_state"`
}
