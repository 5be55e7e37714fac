package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/ivywell/nbdap/internal/dap/transport"
)

const (
	defaultConnectTimeout = 10 * time.Second
	launchStopTimeout     = 1500 * time.Millisecond
)

// ErrNoAdapter indicates neither an adapter command nor address is configured.
var ErrNoAdapter = errors.New("no adapter command or address configured")

// LaunchConfig describes how to reach the backend debug adapter.
type LaunchConfig struct {
	// Command is run through the shell. With no Addr, the adapter is expected
	// to speak DAP on its stdio; with Addr set, the command is started first
	// and the address dialed.
	Command string
	// Addr is a TCP address the adapter listens on.
	Addr           string
	ConnectTimeout time.Duration
}

// Launcher starts the backend debug adapter and hands back a framed endpoint
// for it.
type Launcher struct {
	cfg LaunchConfig
	cmd *exec.Cmd
}

func NewLauncher(cfg LaunchConfig) *Launcher {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Launcher{cfg: cfg}
}

// Start spawns and/or dials the adapter per config.
func (l *Launcher) Start(ctx context.Context) (transport.Endpoint, error) {
	switch {
	case l.cfg.Addr != "":
		if err := l.startCommand(ctx, nil, nil); err != nil {
			return nil, err
		}
		conn, err := waitForDial(ctx, l.cfg.Addr, l.cfg.ConnectTimeout)
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("dial adapter endpoint: %w", err)
		}
		return transport.NewStream(conn, conn), nil

	case l.cfg.Command != "":
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("adapter stdin pipe: %w", err)
		}
		stdoutR, stdoutW, err := os.Pipe()
		if err != nil {
			_ = stdinR.Close()
			_ = stdinW.Close()
			return nil, fmt.Errorf("adapter stdout pipe: %w", err)
		}
		if err := l.startCommand(ctx, stdinR, stdoutW); err != nil {
			_ = stdinR.Close()
			_ = stdinW.Close()
			_ = stdoutR.Close()
			_ = stdoutW.Close()
			return nil, err
		}
		// Parent keeps the far ends.
		_ = stdinR.Close()
		_ = stdoutW.Close()
		return transport.NewStream(stdoutR, stdinW), nil

	default:
		return nil, ErrNoAdapter
	}
}

func (l *Launcher) startCommand(ctx context.Context, stdin *os.File, stdout *os.File) error {
	if l.cfg.Command == "" || l.cmd != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-lc", l.cfg.Command)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start adapter command: %w", err)
	}
	l.cmd = cmd
	return nil
}

// Close terminates the launched adapter process tree if one is running.
func (l *Launcher) Close() error {
	if l.cmd == nil {
		return nil
	}
	cmd := l.cmd
	l.cmd = nil

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	if cmd.Process != nil && cmd.ProcessState == nil {
		_ = terminateTree(cmd)
		select {
		case err := <-waitCh:
			return ignoreExpectedExit(err)
		case <-time.After(launchStopTimeout):
			_ = killTree(cmd)
		}
	}

	return ignoreExpectedExit(<-waitCh)
}

func ignoreExpectedExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Expected when teardown terminates the process group.
		return nil
	}
	return err
}

func waitForDial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		conn, err := net.DialTimeout("tcp", addr, 300*time.Millisecond)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(75 * time.Millisecond)
	}
}
