package simgym

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/simgym/internal/logging"
	httpAdapter "github.com/aretw0/simgym/pkg/adapters/http"
	"github.com/aretw0/simgym/pkg/adapters/process"
	"github.com/aretw0/simgym/pkg/config"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/ports"
	"github.com/google/uuid"
)

// Env is a simulator-backed environment. Its methods block and are serialised
// by an internal mutex, so calls from several goroutines are totally ordered.
type Env struct {
	ID string

	invocation  process.Invocation
	resultsRoot string
	supervisor  ports.Supervisor
	stepper     ports.Stepper
	hooks       domain.LifecycleHooks
	logger      *slog.Logger

	mu         sync.Mutex
	episode    int
	resultsDir string
}

// Option defines a functional option for configuring the Env.
type Option func(*Env)

// WithLogger sets a custom structured logger for the environment.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Env) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Env) {
		e.hooks = hooks
	}
}

// WithSupervisor replaces the process supervisor built from the configuration.
func WithSupervisor(s ports.Supervisor) Option {
	return func(e *Env) {
		e.supervisor = s
	}
}

// WithStepper replaces the HTTP step client built from the configuration.
func WithStepper(s ports.Stepper) Option {
	return func(e *Env) {
		e.stepper = s
	}
}

// WithID sets the environment identifier reported in events (default: random UUID).
func WithID(id string) Option {
	return func(e *Env) {
		e.ID = id
	}
}

// New validates cfg and creates the results root. No process is started until Reset.
func New(cfg config.Config, opts ...Option) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Env{
		invocation:  cfg.Simulator,
		resultsRoot: cfg.ResultsRoot,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With("env", e.ID)

	if e.supervisor == nil {
		e.supervisor = process.NewSupervisor(cfg.Simulator,
			process.WithGracePeriod(cfg.GracePeriod),
			process.WithLogger(e.logger),
		)
	}
	if e.stepper == nil {
		e.stepper = httpAdapter.NewStepClient(cfg.ControlPlaneURL,
			httpAdapter.WithTimeout(cfg.StepTimeout),
			httpAdapter.WithLogger(e.logger),
		)
	}

	if err := os.MkdirAll(e.resultsRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results root %q: %w", e.resultsRoot, err)
	}
	return e, nil
}

// Reset ends the current episode and starts the next one: it terminates the
// previous simulator (graceful, then forced), advances the episode counter,
// creates ResultsRoot/episode_N and launches a new simulator there.
//
// The returned observation is always unknown; the first real state arrives
// with the first Step. A simulator that fails to launch is not an error here:
// it is logged and reported through OnProcessStart, and shows up as failed steps.
func (e *Env) Reset(ctx context.Context) (domain.Observation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.terminate(ctx)

	e.episode++
	dir := filepath.Join(e.resultsRoot, domain.EpisodeName(e.episode))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.UnknownObservation, fmt.Errorf("failed to create results dir for episode %d: %w", e.episode, err)
	}
	e.resultsDir = dir

	e.logger.Info("Episode started", "episode", e.episode, "results_dir", dir)
	if e.hooks.OnEpisodeStart != nil {
		e.hooks.OnEpisodeStart(ctx, &domain.EpisodeEvent{
			EventBase:  e.event(domain.EventEpisodeStart),
			Episode:    e.episode,
			ResultsDir: dir,
		})
	}

	pid, err := e.supervisor.Start(dir)
	if err != nil {
		e.logger.Warn("Simulator failed to start", "episode", e.episode, "err", err)
	}
	if e.hooks.OnProcessStart != nil {
		e.hooks.OnProcessStart(ctx, &domain.ProcessEvent{
			EventBase: e.event(domain.EventProcessStart),
			Episode:   e.episode,
			PID:       pid,
			Args:      e.invocation.Args(dir),
			Err:       err,
		})
	}

	return domain.UnknownObservation, nil
}

// Step sends one action to the control plane. It never fails: transport and
// protocol errors come back as domain.FailedStep (NaN reward, done).
func (e *Env) Step(ctx context.Context, action float64) domain.StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := e.stepper.Step(ctx, action)

	if e.hooks.OnStep != nil {
		e.hooks.OnStep(ctx, &domain.StepEvent{
			EventBase: e.event(domain.EventStep),
			Episode:   e.episode,
			Action:    action,
			Result:    res,
			Duration:  time.Since(start),
		})
	}
	return res
}

// Close terminates the simulator if one is running. It always returns nil,
// may be called repeatedly, and leaves the Env usable for a later Reset.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.terminate(context.Background())
	return nil
}

// terminate stops the tracked simulator. Caller must hold e.mu.
func (e *Env) terminate(ctx context.Context) {
	start := time.Now()
	mode := e.supervisor.Terminate()
	if mode == domain.TerminationNone {
		return
	}

	e.logger.Debug("Simulator terminated", "episode", e.episode, "mode", mode)
	if e.hooks.OnTerminate != nil {
		e.hooks.OnTerminate(ctx, &domain.TerminateEvent{
			EventBase: e.event(domain.EventTerminate),
			Episode:   e.episode,
			Mode:      mode,
			Duration:  time.Since(start),
		})
	}
}

func (e *Env) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, EnvID: e.ID}
}

// Episode returns the number of the current episode (0 before the first Reset).
func (e *Env) Episode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.episode
}

// ResultsDir returns the directory of the current episode ("" before the first Reset).
func (e *Env) ResultsDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resultsDir
}

// ResultsRoot returns the directory holding every episode directory.
func (e *Env) ResultsRoot() string {
	return e.resultsRoot
}

// ProcessState reports the supervisor's lifecycle state.
func (e *Env) ProcessState() domain.ProcessState {
	return e.supervisor.State()
}
