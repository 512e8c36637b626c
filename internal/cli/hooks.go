package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/simgym/pkg/domain"
)

// DebugHooks logs every lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEpisodeStart: func(ctx context.Context, e *domain.EpisodeEvent) {
			logger.Debug("Episode start", "episode", e.Episode, "results_dir", e.ResultsDir)
		},
		OnProcessStart: func(ctx context.Context, e *domain.ProcessEvent) {
			logger.Debug("Process start", "episode", e.Episode, "pid", e.PID, "args", e.Args, "err", e.Err)
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step", "episode", e.Episode, "action", e.Action,
				"reward", e.Result.Reward, "done", e.Result.Done, "duration", e.Duration, "err", e.Result.Err)
		},
		OnTerminate: func(ctx context.Context, e *domain.TerminateEvent) {
			logger.Debug("Terminate", "episode", e.Episode, "mode", e.Mode, "duration", e.Duration)
		},
	}
}

// MergeHooks fans every event out to each set of hooks in order.
func MergeHooks(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEpisodeStart: func(ctx context.Context, e *domain.EpisodeEvent) {
			for _, h := range all {
				if h.OnEpisodeStart != nil {
					h.OnEpisodeStart(ctx, e)
				}
			}
		},
		OnProcessStart: func(ctx context.Context, e *domain.ProcessEvent) {
			for _, h := range all {
				if h.OnProcessStart != nil {
					h.OnProcessStart(ctx, e)
				}
			}
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range all {
				if h.OnStep != nil {
					h.OnStep(ctx, e)
				}
			}
		},
		OnTerminate: func(ctx context.Context, e *domain.TerminateEvent) {
			for _, h := range all {
				if h.OnTerminate != nil {
					h.OnTerminate(ctx, e)
				}
			}
		},
	}
}
