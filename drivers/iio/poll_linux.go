package iio

import (
	"errors"

	"golang.org/x/sys/unix"
)

// WaitReadable blocks until fd has data. Error, hang-up without data and an
// unexpected timeout are all failures.
func WaitReadable(fd int) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return errors.Join(ErrPoll, err)
		}
		if n == 0 {
			return ErrPollTimeout
		}
		break
	}
	re := fds[0].Revents
	if re&unix.POLLERR != 0 {
		return ErrPoll
	}
	if re&unix.POLLIN == 0 {
		return ErrNotReadable
	}
	return nil
}
