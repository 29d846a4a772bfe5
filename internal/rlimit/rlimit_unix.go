//go:build linux || darwin

package rlimit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetNofile sets both the soft and hard RLIMIT_NOFILE to n.
func SetNofile(n uint64) error {
	lim := unix.Rlimit{Cur: n, Max: n}
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return fmt.Errorf("setrlimit NOFILE %d: %w", n, err)
	}
	return nil
}

// Nofile returns the current soft and hard RLIMIT_NOFILE.
func Nofile() (soft, hard uint64, err error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, 0, fmt.Errorf("getrlimit NOFILE: %w", err)
	}
	return lim.Cur, lim.Max, nil
}
