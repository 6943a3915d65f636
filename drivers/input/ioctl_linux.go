package input

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
)

func ioc(dir, typ, nr, size uint32) uint {
	return uint((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

// EVIOCSCLOCKID = _IOW('E', 0xa0, int)
var eviocSClockID = ioc(iocWrite, uint32('E'), 0xa0, uint32(unsafe.Sizeof(int32(0))))

// SetMonotonicClock asks the evdev node behind fd to stamp events with
// CLOCK_MONOTONIC instead of wall time.
func SetMonotonicClock(fd int) error {
	return unix.IoctlSetPointerInt(fd, eviocSClockID, unix.CLOCK_MONOTONIC)
}
