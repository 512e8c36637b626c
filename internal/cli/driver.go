package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/aretw0/simgym/internal/logging"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/cenkalti/backoff/v4"
)

// Environment is the part of simgym.Env the driver needs.
type Environment interface {
	Reset(ctx context.Context) (domain.Observation, error)
	Step(ctx context.Context, action float64) domain.StepResult
}

// Recorder receives experiences and closes episodes. RecorderClient implements it.
type Recorder interface {
	Record(ctx context.Context, exp domain.Experience) error
	EndEpisode(ctx context.Context) (int, error)
}

// DriverOptions configures RunEpisodes.
type DriverOptions struct {
	Episodes int
	// MaxSteps bounds every episode; 0 means until done.
	MaxSteps int

	// Action is sent on every step unless ActionRange is set.
	Action      float64
	// ActionRange, when Min < Max, draws each action uniformly from [Min, Max).
	ActionRange *ActionRange

	// Recorder is optional. When set, every transition is posted and every
	// episode is closed with an episode-end call retried with backoff.
	Recorder   Recorder
	// NewBackOff builds the retry policy for episode-end calls.
	NewBackOff func() backoff.BackOff

	Logger *slog.Logger
}

// ActionRange bounds random actions.
type ActionRange struct {
	Min, Max float64
}

// EpisodeSummary describes one finished episode.
type EpisodeSummary struct {
	Episode int `json:"episode"`
	Steps   int `json:"steps"`

	// TotalReward ignores the NaN rewards of failed steps.
	TotalReward float64 `json:"total_reward"`
	Failed      bool    `json:"failed"`

	// Recorded is the episode number the recorder saved, 0 without a recorder.
	Recorded int `json:"recorded,omitempty"`
}

// DefaultBackOff retries quickly and gives up after about ten seconds.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// RunEpisodes drives env through opts.Episodes episodes and returns one summary
// per completed episode. A cancelled context stops the loop between steps.
func RunEpisodes(ctx context.Context, env Environment, opts DriverOptions) ([]EpisodeSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = DefaultBackOff
	}

	summaries := make([]EpisodeSummary, 0, opts.Episodes)
	for i := 1; i <= opts.Episodes; i++ {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		obs, err := env.Reset(ctx)
		if err != nil {
			return summaries, fmt.Errorf("reset failed: %w", err)
		}

		sum := EpisodeSummary{Episode: i}
		for opts.MaxSteps <= 0 || sum.Steps < opts.MaxSteps {
			if err := ctx.Err(); err != nil {
				return summaries, err
			}

			action := opts.action()
			res := env.Step(ctx, action)
			sum.Steps++

			if res.Failed() {
				sum.Failed = true
			} else if !math.IsNaN(res.Reward) {
				sum.TotalReward += res.Reward
			}

			if opts.Recorder != nil && !res.Failed() {
				exp := domain.Experience{State: obs, Action: action, Reward: res.Reward, NextState: res.Observation}
				if err := opts.Recorder.Record(ctx, exp); err != nil {
					logger.Warn("Failed to record experience", "episode", i, "err", err)
				}
			}
			obs = res.Observation

			if res.Done {
				break
			}
		}

		if opts.Recorder != nil {
			saved, err := endEpisode(ctx, opts.Recorder, newBackOff())
			if err != nil {
				logger.Error("Episode end was not recorded", "episode", i, "err", err)
			} else {
				sum.Recorded = saved
			}
		}

		logger.Info("Episode finished", "episode", i, "steps", sum.Steps, "total_reward", sum.TotalReward, "failed", sum.Failed)
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (o DriverOptions) action() float64 {
	if r := o.ActionRange; r != nil && r.Min < r.Max {
		return r.Min + rand.Float64()*(r.Max-r.Min)
	}
	return o.Action
}

func endEpisode(ctx context.Context, rec Recorder, b backoff.BackOff) (int, error) {
	var saved int
	op := func() error {
		n, err := rec.EndEpisode(ctx)
		if err != nil {
			return err
		}
		saved = n
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	return saved, err
}
