//go:build !linux && !darwin

package rlimit

func SetNofile(n uint64) error { return ErrUnsupported }

func Nofile() (soft, hard uint64, err error) { return 0, 0, ErrUnsupported }
