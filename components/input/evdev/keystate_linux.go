//go:build linux

package evdev

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// keyStateBytes holds one bit per key code up to KEY_MAX (0x2ff).
const keyStateBytes = (0x2ff + 1) / 8

// keyBits is the EVIOCGKEY bitmap: bit n is set while key code n is held down.
type keyBits []byte

func (b keyBits) pressed(code uint16) bool {
	i := int(code) / 8
	if i >= len(b) {
		return false
	}
	return b[i]&(1<<(code%8)) != 0
}

// eviocgkey is EVIOCGKEY(size) in the generic ioctl encoding used by x86 and arm.
func eviocgkey(size int) uintptr {
	const (
		iocRead   = 2
		evdevType = 'E'
		nr        = 0x18
	)
	return uintptr(iocRead<<30 | size<<16 | evdevType<<8 | nr)
}

// readKeyState asks the kernel which keys of the device are currently down.
func readKeyState(f *os.File) (keyBits, error) {
	bits := make(keyBits, keyStateBytes)
	conn, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	var ioctlErr error
	if err := conn.Control(func(fd uintptr) {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, eviocgkey(len(bits)), uintptr(unsafe.Pointer(&bits[0])))
		if errno != 0 {
			ioctlErr = errno
		}
	}); err != nil {
		return nil, err
	}
	if ioctlErr != nil {
		return nil, errors.Wrap(ioctlErr, "EVIOCGKEY")
	}
	return bits, nil
}
