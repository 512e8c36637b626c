package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEpisodeStart EventType = "episode_start"
	EventProcessStart EventType = "process_start"
	EventStep         EventType = "step"
	EventTerminate    EventType = "terminate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	EnvID     string    `json:"env_id"`
}

// EpisodeEvent is emitted once a new episode directory exists.
type EpisodeEvent struct {
	EventBase
	Episode    int    `json:"episode"`
	ResultsDir string `json:"results_dir"`
}

// ProcessEvent reports the outcome of launching the simulator.
type ProcessEvent struct {
	EventBase
	Episode int      `json:"episode"`
	PID     int      `json:"pid,omitempty"`
	Args    []string `json:"args"`
	Err     error    `json:"-"`
}

// StepEvent reports a completed step round trip.
type StepEvent struct {
	EventBase
	Episode  int           `json:"episode"`
	Action   float64       `json:"action"`
	Result   StepResult    `json:"result"`
	Duration time.Duration `json:"duration"`
}

// TerminateEvent reports how the simulator process was stopped.
type TerminateEvent struct {
	EventBase
	Episode  int           `json:"episode"`
	Mode     Termination   `json:"mode"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for environment observability.
type LifecycleHooks struct {
	OnEpisodeStart func(context.Context, *EpisodeEvent)
	OnProcessStart func(context.Context, *ProcessEvent)
	OnStep         func(context.Context, *StepEvent)
	OnTerminate    func(context.Context, *TerminateEvent)
}
