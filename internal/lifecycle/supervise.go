// Package lifecycle races the tunnel server against process shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

// ErrServerExited means a server that only returns on failure returned nil.
var ErrServerExited = errors.New("server exited unexpectedly")

// ServerError carries the error a server terminated with.
type ServerError struct {
	Err error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server exited unexpectedly with %v", e.Err)
}

func (e *ServerError) Unwrap() error { return e.Err }

// Supervise runs serve until it returns or shutdown is closed, whichever
// happens first.
//
// It returns nil when shutdown wins, ErrServerExited when serve returned nil
// and a *ServerError when serve failed. The losing side is never waited on:
// serve's context is cancelled on return and its result is dropped.
func Supervise(ctx context.Context, serve func(context.Context) error, shutdown <-chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx)
	}()

	select {
	case err := <-done:
		if err == nil {
			return ErrServerExited
		}
		return &ServerError{Err: err}
	case <-shutdown:
		return nil
	}
}
