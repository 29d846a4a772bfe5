// Package rlimit adjusts the process file descriptor limit.
package rlimit

import "errors"

// ErrUnsupported is returned on platforms without RLIMIT_NOFILE.
var ErrUnsupported = errors.New("setting RLIMIT_NOFILE is not supported on this platform")
