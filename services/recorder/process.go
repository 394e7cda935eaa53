package recorder

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Process is a handle to a live encoder process.
type Process interface {
	// Stderr is the encoder's diagnostic stream; the caller owns it
	// exclusively and must drain it.
	Stderr() io.Reader
	// Running reports whether the process has not yet exited.
	Running() bool
	// Interrupt requests graceful termination so the encoder can finalize
	// its container. Not every platform can deliver it; the caller falls
	// back to Kill when it fails.
	Interrupt() error
	// Kill terminates the process forcefully.
	Kill() error
	// Wait blocks until the process exits and returns its exit error.
	Wait() error
}

// Launcher starts encoder processes.
type Launcher interface {
	Launch(args []string) (Process, error)
}

type execLauncher struct {
	ffmpegPath string
}

func (l *execLauncher) Launch(args []string) (Process, error) {
	cmd := exec.Command(l.ffmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound) {
			return nil, ErrToolUnavailable
		}
		return nil, err
	}

	p := &osProcess{cmd: cmd, stderr: stderr, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type osProcess struct {
	cmd     *exec.Cmd
	stderr  io.Reader
	done    chan struct{}
	waitErr error
}

func (p *osProcess) Stderr() io.Reader { return p.stderr }

func (p *osProcess) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *osProcess) Interrupt() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *osProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *osProcess) Wait() error {
	<-p.done
	return p.waitErr
}

// isNormalExit classifies the encoder's exit after a stop request. ffmpeg
// finalizes the container and exits 255 when stopped via SIGINT, or the exit
// status reports the interrupt signal directly; both count as success.
func isNormalExit(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 255 {
		return true
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() && status.Signal() == syscall.SIGINT {
			return true
		}
	}
	return false
}
