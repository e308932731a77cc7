// Package notesrv implements the note-server supervisor: it locates the
// note-server executable on PATH, spawns it with captured stdout/stderr,
// polls its port until healthy, and exposes status for the UI.
package notesrv

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dogebooch/extractvault/internal/debug"
)

// State is one of the supervisor's lifecycle states.
type State string

const (
	Stopped  State = "STOPPED"
	Starting State = "STARTING"
	Running  State = "RUNNING"
	Stopping State = "STOPPING"
)

// maxHealthAttempts bounds STARTING's health-check retry budget.
const maxHealthAttempts = 30

// Supervisor manages one note-server subprocess.
type Supervisor struct {
	binary   string
	port     int
	notesDir string

	mu     sync.Mutex
	state  State
	cmd    *exec.Cmd
	exited chan error // fed by the single cmd.Wait call made in Start
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// New returns a Supervisor for the note-server binary found on PATH under
// name, serving notesDir on port.
func New(name string, port int, notesDir string) (*Supervisor, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("note-server executable %q not found on PATH: %w", name, err)
	}
	return &Supervisor{binary: path, port: port, notesDir: notesDir, state: Stopped}, nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRunning reports whether the note server is currently serving.
func (s *Supervisor) IsRunning() bool {
	return s.State() == Running
}

// Probe checks the port directly rather than relying on in-memory state,
// for callers (the standalone `notes status`/`notes stop` CLI commands)
// that construct a fresh Supervisor with no memory of a subprocess spawned
// by an earlier process.
func (s *Supervisor) Probe() bool {
	return respondsOnPort(s.port)
}

// Start spawns the note server and waits for it to become healthy, or
// transitions back to STOPPED on failure.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return nil
	}
	s.state = Starting
	s.mu.Unlock()

	// Port conflict policy: if something already answers on the port,
	// assume it's an already-running note server and skip spawning. A port
	// that accepts connections but never answers HTTP is a foreign process.
	if respondsOnPort(s.port) {
		s.setState(Running)
		return nil
	}
	if portBound(s.port) {
		s.setState(Stopped)
		return fmt.Errorf("port %d in use by an unresponsive process", s.port)
	}

	cmd := exec.CommandContext(ctx, s.binary, "web",
		fmt.Sprintf("--port=%d", s.port), "--writable")
	cmd.Env = append(os.Environ(), fmt.Sprintf("NOTES_DIR=%s", s.notesDir))

	s.mu.Lock()
	cmd.Stdout = &s.stdout
	cmd.Stderr = &s.stderr
	s.mu.Unlock()

	if err := cmd.Start(); err != nil {
		s.setState(Stopped)
		return fmt.Errorf("spawn note server: %w", err)
	}

	// Exactly one cmd.Wait call per subprocess: both the health loop below
	// and Stop observe the exit through this channel.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	s.mu.Lock()
	s.cmd = cmd
	s.exited = exited
	s.mu.Unlock()

	if err := s.waitHealthy(ctx, exited); err != nil {
		// The health loop may have consumed the exit notification, so a
		// later Stop can't rely on the channel; reap the subprocess here
		// and drop the handle.
		_ = cmd.Process.Kill()
		s.mu.Lock()
		s.cmd = nil
		s.exited = nil
		s.state = Stopped
		s.mu.Unlock()
		return err
	}

	s.setState(Running)
	return nil
}

// waitHealthy polls the health endpoint with increasing backoff, bounded by
// maxHealthAttempts, failing fast if the subprocess exits first.
func (s *Supervisor) waitHealthy(ctx context.Context, exited <-chan error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 0

	attempts := 0
	for {
		select {
		case err := <-exited:
			return fmt.Errorf("note server exited before becoming healthy (stderr: %s): %v",
				s.capturedStderr(), err)
		default:
		}

		if respondsOnPort(s.port) {
			return nil
		}

		attempts++
		if attempts >= maxHealthAttempts {
			return fmt.Errorf("note server did not become healthy after %d attempts (stderr: %s)",
				maxHealthAttempts, s.capturedStderr())
		}

		next := bo.NextBackOff()
		debug.Logf("notesrv: health check attempt %d/%d failed, retrying in %s\n", attempts, maxHealthAttempts, next)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}
	}
}

func (s *Supervisor) capturedStderr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stderr.String()
}

// Stop sends a graceful terminate, force-killing if the process survives
// the grace period. It waits on the exit channel fed by Start's single
// cmd.Wait call rather than calling Wait a second time.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	s.state = Stopping
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		s.setState(Stopped)
		return
	}

	_ = cmd.Process.Signal(gracefulSignal())

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		_ = cmd.Process.Kill()
		<-exited
	}

	s.mu.Lock()
	s.cmd = nil
	s.exited = nil
	s.state = Stopped
	s.mu.Unlock()
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func respondsOnPort(port int) bool {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

func portBound(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 300*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
