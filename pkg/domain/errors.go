package domain

import "errors"

// ErrInvalidConfig is returned when an environment or recorder is configured with missing or bad values.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrEpisodeNotFound is returned when no experiences were saved for an episode.
var ErrEpisodeNotFound = errors.New("episode not found")

// ErrMalformedResponse is returned when the control plane answers with a body that is not a valid step record.
var ErrMalformedResponse = errors.New("malformed step response")

// ErrUnexpectedStatus is returned when the control plane answers with a non-success status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrProcessRunning is returned when a second simulator process would be started while one is still tracked.
var ErrProcessRunning = errors.New("simulator process already running")
