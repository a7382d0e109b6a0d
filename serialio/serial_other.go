//go:build !linux

package serialio

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errUnsupportedOS = errors.New("serialio: unsupported on this OS")

const (
	ioctlGetTermios = 0
	ioctlSetTermios = 0
)

func setSpeed(fd int, t *unix.Termios, speed uint32) error { return errUnsupportedOS }
