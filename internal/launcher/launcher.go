// Package launcher implements the Launch half of C8's launch operation:
// spawning the debuggee under a pseudo-terminal, streaming its combined
// stdout/stderr to the injected sink, and surfacing process exit so the
// session can fall back to a clean Disconnected transition even if the
// native platform's own exit notification is lost.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"clrdebug/internal/logging"

	"go.uber.org/zap"
)

// OutputSink receives combined stdout/stderr chunks from a launched
// process. Embedders wire this to whatever UI or log stream they surface
// to the user; clrdebug's own tests use a recording sink.
type OutputSink interface {
	Write(chunk []byte)
}

// Process is a running, pty-attached debuggee.
type Process struct {
	pid  int
	ptmx *os.File
	cmd  *exec.Cmd

	mu       sync.Mutex
	exitCode int
	exited   bool
	waiters  []chan int
}

// PID returns the spawned process's OS process id, used to attach the
// native debug platform to the same process.
func (p *Process) PID() int { return p.pid }

// Spawn starts program under a pty with argv, cwd and env (merged over
// the launcher's own environment), and begins streaming output to sink.
func Spawn(ctx context.Context, program string, argv []string, cwd string, env map[string]string, sink OutputSink) (*Process, error) {
	cmd := exec.CommandContext(ctx, program, argv...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Env = append([]string{}, os.Environ()...)
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("launcher: start pty: %w", err)
	}

	p := &Process{pid: cmd.Process.Pid, ptmx: ptmx, cmd: cmd}
	go p.readLoop(sink)
	go p.waitLoop()
	return p, nil
}

func (p *Process) readLoop(sink OutputSink) {
	buf := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 && sink != nil {
			chunk := append([]byte(nil), buf[:n]...)
			sink.Write(chunk)
		}
		if err != nil {
			return
		}
	}
}

func (p *Process) waitLoop() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	logging.L().Info("launcher: process exited", zap.Int("pid", p.pid), zap.Int("exit_code", code))

	p.mu.Lock()
	p.exited = true
	p.exitCode = code
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, w := range waiters {
		w <- code
		close(w)
	}
	_ = p.ptmx.Close()
}

// ExitCode returns a channel that receives the process's exit code
// exactly once, immediately if the process has already exited.
func (p *Process) ExitCode() <-chan int {
	ch := make(chan int, 1)
	p.mu.Lock()
	if p.exited {
		code := p.exitCode
		p.mu.Unlock()
		ch <- code
		close(ch)
		return ch
	}
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()
	return ch
}

// Resize adjusts the pty window size, used if the embedder surfaces the
// debuggee's console interactively.
func (p *Process) Resize(rows, cols uint16) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Kill terminates the process directly, bypassing the native debug
// platform (used when launch fails after spawn but before attach).
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
