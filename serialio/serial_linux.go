//go:build linux

package serialio

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

// setSpeed stamps the input/output speed fields directly and re-applies
// the termios struct, mirroring jbuchbinder-goserial's cfsetispeed/
// cfsetospeed pair without the cgo dependency that implementation used.
func setSpeed(fd int, t *unix.Termios, speed uint32) error {
	t.Ispeed = speed
	t.Ospeed = speed
	return unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}
