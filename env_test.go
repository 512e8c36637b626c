package simgym_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/simgym"
	"github.com/aretw0/simgym/internal/testutils"
	"github.com/aretw0/simgym/pkg/adapters/process"
	"github.com/aretw0/simgym/pkg/config"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSupervisor records calls and checks that every Start sees an already
// existing results directory.
type fakeSupervisor struct {
	t        *testing.T
	mu       sync.Mutex
	calls    []string
	running  bool
	startErr error
}

func (f *fakeSupervisor) Start(resultsDir string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.DirExists(f.t, resultsDir)
	f.calls = append(f.calls, "start "+filepath.Base(resultsDir))
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.running = true
	return 4242, nil
}

func (f *fakeSupervisor) Terminate() domain.Termination {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return domain.TerminationNone
	}
	f.running = false
	f.calls = append(f.calls, "terminate")
	return domain.TerminationGraceful
}

func (f *fakeSupervisor) State() domain.ProcessState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return domain.StateRunning
	}
	return domain.StateIdle
}

type fakeStepper struct {
	result  domain.StepResult
	actions []float64
}

func (f *fakeStepper) Step(ctx context.Context, action float64) domain.StepResult {
	f.actions = append(f.actions, action)
	return f.result
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ControlPlaneURL = "http://127.0.0.1:1"
	cfg.Simulator = process.Invocation{
		Executable: "sim",
		ConfigPath: filepath.Join(dir, "sim.cfg"),
		LogPath:    filepath.Join(dir, "sim.log"),
	}
	cfg.ResultsRoot = filepath.Join(dir, "results")
	return cfg
}

func TestNew_CreatesResultsRootOnly(t *testing.T) {
	cfg := testConfig(t)
	sup := &fakeSupervisor{t: t}

	env, err := simgym.New(cfg, simgym.WithSupervisor(sup), simgym.WithStepper(&fakeStepper{}))
	require.NoError(t, err)

	assert.DirExists(t, cfg.ResultsRoot)
	assert.Equal(t, 0, env.Episode())
	assert.Empty(t, env.ResultsDir())
	assert.Empty(t, sup.calls, "no process before the first Reset")
	assert.NotEmpty(t, env.ID)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.ControlPlaneURL = ""
	_, err := simgym.New(cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNew_ResultsRootUnwritable(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg.ResultsRoot = filepath.Join(blocker, "results")

	_, err := simgym.New(cfg)
	assert.Error(t, err)
}

func TestReset_EpisodeCounterAndOrdering(t *testing.T) {
	cfg := testConfig(t)
	sup := &fakeSupervisor{t: t}
	env, err := simgym.New(cfg, simgym.WithSupervisor(sup), simgym.WithStepper(&fakeStepper{}))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		obs, err := env.Reset(context.Background())
		require.NoError(t, err)
		assert.False(t, obs.Known())
		assert.Equal(t, i, env.Episode())
		assert.Equal(t, filepath.Join(cfg.ResultsRoot, domain.EpisodeName(i)), env.ResultsDir())
	}

	assert.Equal(t, []string{
		"start episode_1",
		"terminate", "start episode_2",
		"terminate", "start episode_3",
	}, sup.calls)

	for i := 1; i <= 3; i++ {
		assert.DirExists(t, filepath.Join(cfg.ResultsRoot, domain.EpisodeName(i)), "episode dirs are never deleted")
	}
}

func TestReset_StartFailureIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	sup := &fakeSupervisor{t: t, startErr: errors.New("exec: not found")}

	var events []*domain.ProcessEvent
	env, err := simgym.New(cfg,
		simgym.WithSupervisor(sup),
		simgym.WithStepper(&fakeStepper{result: domain.FailedStep(errors.New("refused"))}),
		simgym.WithLifecycleHooks(domain.LifecycleHooks{
			OnProcessStart: func(ctx context.Context, e *domain.ProcessEvent) { events = append(events, e) },
		}),
	)
	require.NoError(t, err)

	_, err = env.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, env.Episode())
	assert.Equal(t, domain.StateIdle, env.ProcessState())

	require.Len(t, events, 1)
	assert.Error(t, events[0].Err)
	assert.Equal(t, filepath.Join(cfg.ResultsRoot, "episode_1"), events[0].Args[3])

	res := env.Step(context.Background(), 1)
	assert.True(t, res.Done)
	assert.True(t, math.IsNaN(res.Reward))
}

func TestReset_DirectoryFailure(t *testing.T) {
	cfg := testConfig(t)
	sup := &fakeSupervisor{t: t}
	env, err := simgym.New(cfg, simgym.WithSupervisor(sup), simgym.WithStepper(&fakeStepper{}))
	require.NoError(t, err)

	// A regular file where the episode directory should go.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ResultsRoot, "episode_1"), nil, 0644))

	_, err = env.Reset(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sup.calls, "no process is started without its directory")

	_, err = env.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, env.Episode(), "episode numbers are never reused")
}

func TestStep_PassThroughAndHooks(t *testing.T) {
	cfg := testConfig(t)
	want := domain.StepResult{
		Observation: domain.NewObservation([]byte(`[1,2]`)),
		Reward:      0.5,
		Info:        map[string]any{},
	}
	stepper := &fakeStepper{result: want}

	var steps []*domain.StepEvent
	env, err := simgym.New(cfg,
		simgym.WithSupervisor(&fakeSupervisor{t: t}),
		simgym.WithStepper(stepper),
		simgym.WithLifecycleHooks(domain.LifecycleHooks{
			OnStep: func(ctx context.Context, e *domain.StepEvent) { steps = append(steps, e) },
		}),
	)
	require.NoError(t, err)
	_, err = env.Reset(context.Background())
	require.NoError(t, err)

	got := env.Step(context.Background(), 0.25)
	assert.Equal(t, want, got)
	assert.Equal(t, []float64{0.25}, stepper.actions)

	require.Len(t, steps, 1)
	assert.Equal(t, 1, steps[0].Episode)
	assert.Equal(t, 0.25, steps[0].Action)
	assert.Equal(t, domain.EventStep, steps[0].Type)
	assert.Equal(t, env.ID, steps[0].EnvID)
}

func TestClose_IdempotentAndRestartable(t *testing.T) {
	cfg := testConfig(t)
	sup := &fakeSupervisor{t: t}

	var terminations []domain.Termination
	env, err := simgym.New(cfg,
		simgym.WithSupervisor(sup),
		simgym.WithStepper(&fakeStepper{}),
		simgym.WithLifecycleHooks(domain.LifecycleHooks{
			OnTerminate: func(ctx context.Context, e *domain.TerminateEvent) { terminations = append(terminations, e.Mode) },
		}),
	)
	require.NoError(t, err)

	require.NoError(t, env.Close(), "close before any reset")

	_, err = env.Reset(context.Background())
	require.NoError(t, err)
	require.NoError(t, env.Close())
	require.NoError(t, env.Close())
	assert.Equal(t, domain.StateIdle, env.ProcessState())
	assert.Equal(t, []domain.Termination{domain.TerminationGraceful}, terminations)

	_, err = env.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, env.Episode())
	assert.Equal(t, domain.StateRunning, env.ProcessState())
}

// TestEnv_EndToEnd drives a real fake simulator and a stub control plane
// through two episodes.
func TestEnv_EndToEnd(t *testing.T) {
	controlPlane := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"next_state":[0.1,0.2],"reward":1.5,"done":false}`))
	}))
	defer controlPlane.Close()

	cfg := testConfig(t)
	cfg.ControlPlaneURL = controlPlane.URL + "/"
	cfg.Simulator.Executable = testutils.BuildSimulator(t, "cooperative")
	cfg.GracePeriod = 5 * time.Second

	env, err := simgym.New(cfg)
	require.NoError(t, err)
	defer env.Close()

	ctx := context.Background()
	_, err = env.Reset(ctx)
	require.NoError(t, err)
	first := env.ResultsDir()
	testutils.WaitForFile(t, filepath.Join(first, "ready"), 5*time.Second)
	assert.Equal(t, domain.StateRunning, env.ProcessState())

	res := env.Step(ctx, 0.3)
	assert.False(t, res.Failed())
	assert.Equal(t, 1.5, res.Reward)
	assert.Equal(t, "[0.1,0.2]", string(res.Observation.Raw()))

	_, err = env.Reset(ctx)
	require.NoError(t, err)
	second := env.ResultsDir()
	assert.Equal(t, filepath.Join(cfg.ResultsRoot, "episode_2"), second)

	// The first simulator exited cleanly before the second was launched.
	assert.FileExists(t, filepath.Join(first, "clean_exit"))
	assert.DirExists(t, first)
	testutils.WaitForFile(t, filepath.Join(second, "ready"), 5*time.Second)

	require.NoError(t, env.Close())
	assert.Equal(t, domain.StateIdle, env.ProcessState())
	assert.FileExists(t, filepath.Join(second, "clean_exit"))
}

func TestEnv_StepWithoutControlPlane(t *testing.T) {
	cfg := testConfig(t)
	cfg.StepTimeout = 200 * time.Millisecond
	env, err := simgym.New(cfg, simgym.WithSupervisor(&fakeSupervisor{t: t}))
	require.NoError(t, err)

	res := env.Step(context.Background(), 1)
	assert.True(t, res.Failed())
	assert.True(t, res.Done)
	assert.False(t, res.Observation.Known())
	assert.Empty(t, res.Info)
}
