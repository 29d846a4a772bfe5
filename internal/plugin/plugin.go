// Package plugin starts SIP003 plugins in front of upstream servers.
//
// A plugin is an executable that listens on SS_LOCAL_HOST:SS_LOCAL_PORT and
// forwards transformed traffic to SS_REMOTE_HOST:SS_REMOTE_PORT. The tunnel
// then dials the plugin's local address instead of the server.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/1nfsr/sstunnel/internal/config"
)

// Process is a running plugin.
type Process struct {
	name  string
	local config.Endpoint
	cmd   *exec.Cmd

	done chan struct{}
	err  error // set before done is closed
}

// Start launches p for remote. The process is killed when ctx is done.
func Start(ctx context.Context, p config.Plugin, remote config.Endpoint) (*Process, error) {
	if p.Name == "" {
		return nil, errors.New("empty plugin name")
	}
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", p.Name, err)
	}
	local := config.Endpoint{Host: "127.0.0.1", Port: port}

	cmd := exec.CommandContext(ctx, p.Name)
	cmd.Env = append(os.Environ(), Env(p, remote, local)...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start plugin %s: %w", p.Name, err)
	}

	proc := &Process{name: p.Name, local: local, cmd: cmd, done: make(chan struct{})}
	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()
	return proc, nil
}

// Env returns the SIP003 environment for a plugin bridging local to remote.
func Env(p config.Plugin, remote, local config.Endpoint) []string {
	return []string{
		"SS_REMOTE_HOST=" + remote.Host,
		"SS_REMOTE_PORT=" + strconv.Itoa(int(remote.Port)),
		"SS_LOCAL_HOST=" + local.Host,
		"SS_LOCAL_PORT=" + strconv.Itoa(int(local.Port)),
		"SS_PLUGIN_OPTIONS=" + p.Options,
	}
}

// LocalAddr is the address the plugin listens on.
func (p *Process) LocalAddr() config.Endpoint { return p.local }

func (p *Process) Name() string { return p.name }

// Wait blocks until the plugin exits. A plugin never exits on its own while
// the tunnel is healthy, so any exit is reported as an error.
func (p *Process) Wait() error {
	<-p.done
	return p.exitError()
}

// WaitReady polls the plugin's local address until it accepts a connection.
// It fails when timeout elapses or the plugin exits first.
func (p *Process) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := p.local.String()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	var d net.Dialer
	for {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			c.Close()
			return nil
		}
		select {
		case <-p.done:
			return p.exitError()
		case <-ctx.Done():
			return fmt.Errorf("plugin %s not listening on %s after %v: %w", p.name, addr, timeout, err)
		case <-tick.C:
		}
	}
}

func (p *Process) exitError() error {
	if p.err == nil {
		return fmt.Errorf("plugin %s exited", p.name)
	}
	return fmt.Errorf("plugin %s exited: %w", p.name, p.err)
}

// freePort asks the kernel for an unused loopback port. The plugin binds it
// itself, so another process may take it in between.
func freePort() (uint16, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return uint16(l.Addr().(*net.TCPAddr).Port), nil
}
