// Package serialio implements oatmeal.Transport over a POSIX serial port,
// the literal byte-source/byte-sink the protocol core was designed
// against (§6's transport contract).
package serialio

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Port is a non-blocking POSIX serial line satisfying oatmeal.Transport.
type Port struct {
	f  *os.File
	fd int
}

// baudToUnix maps a baud rate to the termios speed constant, the same
// fixed table jbuchbinder-goserial's openPort switches on, extended with
// the handful of rates angli232-serial's Config documents as common
// defaults.
func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("serialio: unsupported baud rate %d", baud)
	}
}

// Open opens the serial device at path and configures it for raw,
// non-blocking 8N1 I/O at the given baud rate.
func Open(path string, baud int) (*Port, error) {
	speed, err := baudToUnix(baud)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "serialio: open %s", path)
	}

	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "serialio: get termios")
	}

	// Raw mode: no canonical line discipline, no echo, no signal
	// generation, no output post-processing — the port sees every byte
	// unmodified, which the frame scanner depends on.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "serialio: set termios")
	}
	if err := setSpeed(fd, t, speed); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "serialio: set speed")
	}

	return &Port{f: f, fd: fd}, nil
}

// Available reports how many bytes are waiting to be read without
// blocking, via the FIONREAD ioctl.
func (p *Port) Available() int {
	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	if err != nil {
		return 0
	}
	return n
}

// Read implements oatmeal.Transport: a non-blocking read of whatever is
// already buffered, relying on the port having been opened O_NONBLOCK.
func (p *Port) Read(dst []byte) int {
	n, err := p.f.Read(dst)
	if err != nil {
		return 0
	}
	return n
}

// Write implements oatmeal.Transport, blocking only if the kernel's
// output buffer is full.
func (p *Port) Write(src []byte) error {
	_, err := p.f.Write(src)
	if err != nil {
		return errors.Wrap(err, "serialio: write")
	}
	return nil
}

// Close releases the underlying file descriptor.
func (p *Port) Close() error { return p.f.Close() }
