package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

func (t *Tunnel) serveTCP(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				t.logger.Error("Failed to accept: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("tcp accept on %s: %w", l.Addr(), err)
		}

		go t.handleTCP(ctx, conn)
	}
}

func (t *Tunnel) handleTCP(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote, u, err := t.dialServer(ctx)
	if err != nil {
		t.logger.Error("Failed to connect to server: %v", err)
		return
	}
	defer remote.Close()

	setNoDelay(conn, t.config.NoDelay)
	setNoDelay(remote, t.config.NoDelay)

	sconn := u.cipher.StreamConn(remote)
	defer sconn.Close()

	// The target address is the first thing the server reads.
	if _, err := sconn.Write(t.config.Forward); err != nil {
		t.logger.Error("Failed to write target address: %v", err)
		return
	}

	t.logger.Debug("tcp %s <-> %s via %s", conn.RemoteAddr(), t.config.Forward, u.Addr)
	up, down, err := t.relay(conn, sconn, remote)
	if err != nil && !isClosedConnError(err) {
		t.logger.Error("Connection error: %v", err)
	}
	t.logger.Trace("tcp %s closed, %d bytes up, %d bytes down", conn.RemoteAddr(), up, down)
}

// dialServer tries the servers in order and returns the first that connects.
func (t *Tunnel) dialServer(ctx context.Context) (net.Conn, *upstream, error) {
	var errs []error
	for _, u := range t.servers {
		c, err := t.dialer.DialContext(ctx, "tcp", u.dial)
		if err == nil {
			return c, u, nil
		}
		t.logger.Debug("dial %s failed: %v", u.Addr, err)
		errs = append(errs, err)
	}
	return nil, nil, errors.Join(errs...)
}

// relay copies between client and server until both directions finish. A
// clean EOF on one side is passed on as a half-close, so the other direction
// keeps running. serverTCP is the raw connection under server.
func (t *Tunnel) relay(client, server, serverTCP net.Conn) (up, down int64, err error) {
	type result struct {
		n   int64
		err error
	}
	ch := make(chan result, 1)

	go func() {
		buf := t.getBuf()
		defer t.putBuf(buf)
		n, err := io.CopyBuffer(server, client, *buf)
		if err != nil {
			wake(client, server)
		} else {
			closeWrite(serverTCP)
		}
		ch <- result{n, err}
	}()

	buf := t.getBuf()
	defer t.putBuf(buf)
	down, err = io.CopyBuffer(client, server, *buf)
	if err != nil {
		wake(client, server)
	} else {
		closeWrite(client)
		// The server is done; give the client a bounded time to finish.
		client.SetReadDeadline(time.Now().Add(halfCloseTimeout))
	}

	rs := <-ch
	up = rs.n
	if err == nil {
		err = rs.err
	}
	return up, down, err
}

func wake(conns ...net.Conn) {
	now := time.Now()
	for _, c := range conns {
		c.SetReadDeadline(now)
	}
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}
}

func setNoDelay(c net.Conn, noDelay bool) {
	if tc, ok := c.(*net.TCPConn); ok {
		tc.SetNoDelay(noDelay)
	}
}

func isClosedConnError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
