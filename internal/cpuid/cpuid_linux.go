//go:build linux

package cpuid

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// current issues the raw getcpu(2) syscall, grounded on the same
// build-tagged raw-syscall style eventloop uses for its Linux wakeup fd
// (eventloop/wakeup_linux.go uses unix.Eventfd; getcpu has no x/sys
// wrapper, so the syscall is made directly).
func current() (int, error) {
	var cpu, node uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)),
		uintptr(unsafe.Pointer(&node)),
		0)
	if errno != 0 {
		return 0, errno
	}
	return int(cpu), nil
}
