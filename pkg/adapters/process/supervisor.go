package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/aretw0/simgym/internal/logging"
	"github.com/aretw0/simgym/pkg/domain"
)

// DefaultGracePeriod is how long a simulator may take to exit after the termination signal.
const DefaultGracePeriod = 15 * time.Second

// waitDelay bounds how long Wait keeps copying output after the process is gone,
// in case a grandchild inherited the pipes.
const waitDelay = 2 * time.Second

// Supervisor starts and stops one external simulator process at a time.
// It implements ports.Supervisor. Methods are safe to call from several goroutines,
// but the environment drives them sequentially.
type Supervisor struct {
	inv    Invocation
	grace  time.Duration
	output io.Writer
	logger *slog.Logger

	mu    sync.Mutex
	state domain.ProcessState
	child *child // non-nil exactly while state is running or terminating
}

// child is a launched process together with its reaper.
type child struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error // valid once exited is closed
}

func (c *child) reap() {
	c.waitErr = c.cmd.Wait()
	close(c.exited)
}

func (c *child) done() bool {
	select {
	case <-c.exited:
		return true
	default:
		return false
	}
}

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithGracePeriod sets how long to wait for a graceful exit before killing.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithOutput forwards the simulator's stdout and stderr to w.
// By default the output is discarded.
func WithOutput(w io.Writer) Option {
	return func(s *Supervisor) {
		s.output = w
	}
}

// WithLogger configures a logger for the Supervisor.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// NewSupervisor creates an idle Supervisor for the given invocation.
func NewSupervisor(inv Invocation, opts ...Option) *Supervisor {
	s := &Supervisor{
		inv:    inv,
		grace:  DefaultGracePeriod,
		logger: logging.NewNop(),
		state:  domain.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the simulator for an episode rooted at resultsDir and returns its PID.
// It performs no readiness check: a simulator that starts but never reaches the
// control plane is only noticed through failing steps.
func (s *Supervisor) Start(resultsDir string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.child != nil {
		return 0, domain.ErrProcessRunning
	}

	args := s.inv.Args(resultsDir)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = s.output
	cmd.Stderr = s.output
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	s.state = domain.StateStarting
	if err := cmd.Start(); err != nil {
		s.state = domain.StateIdle
		return 0, fmt.Errorf("failed to start simulator %q: %w", s.inv.Executable, err)
	}

	c := &child{cmd: cmd, exited: make(chan struct{})}
	go c.reap()

	s.child = c
	s.state = domain.StateRunning
	s.logger.Debug("Simulator started", "pid", cmd.Process.Pid, "args", args)
	return cmd.Process.Pid, nil
}

// Terminate stops the tracked process: termination signal first, then a forced
// kill once the grace period elapses. It always waits until the process is reaped
// and always clears the tracked handle. Calling it with nothing tracked is a no-op.
func (s *Supervisor) Terminate() domain.Termination {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.child
	if c == nil {
		return domain.TerminationNone
	}
	defer func() {
		s.child = nil
		s.state = domain.StateIdle
	}()

	pid := c.cmd.Process.Pid
	if c.done() {
		s.logger.Debug("Simulator already exited", "pid", pid, "err", c.waitErr)
		return domain.TerminationExited
	}

	s.state = domain.StateTerminating
	if err := signalTerminate(c.cmd.Process); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-c.exited
			return domain.TerminationExited
		}
		// No graceful path available (e.g. signals unsupported); go straight to kill.
		s.logger.Warn("Termination signal failed, killing simulator", "pid", pid, "err", err)
		s.kill(c)
		return domain.TerminationForced
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case <-c.exited:
		s.logger.Debug("Simulator exited gracefully", "pid", pid)
		return domain.TerminationGraceful
	case <-timer.C:
	}

	s.logger.Warn("Graceful shutdown timed out, killing simulator", "pid", pid, "grace", s.grace)
	s.kill(c)
	return domain.TerminationForced
}

// kill force-kills the child and blocks until it is reaped.
func (s *Supervisor) kill(c *child) {
	pid := c.cmd.Process.Pid
	if err := forceKill(c.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Error("Failed to kill simulator", "pid", pid, "err", err)
	}
	<-c.exited

	if Alive(pid) {
		s.logger.Warn("PID still present after reaping simulator (reused?)", "pid", pid)
	}
}

// State reports the lifecycle state.
func (s *Supervisor) State() domain.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether a tracked process exists and has not exited yet.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child != nil && !s.child.done()
}

// PID returns the tracked process ID, or 0 when idle.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child == nil {
		return 0
	}
	return s.child.cmd.Process.Pid
}
