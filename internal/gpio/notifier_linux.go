//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// epollNotifier waits for sysfs_notify on a value attribute. sysfs signals a
// changed attribute with POLLPRI|POLLERR rather than POLLIN.
type epollNotifier struct {
	epfd   int
	events [1]unix.EpollEvent
}

func newEdgeNotifier(fd uintptr) (Notifier, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, classifyOpenErr(os.NewSyscallError("epoll_create1", err))
	}

	ev := unix.EpollEvent{
		Events: unix.EPOLLPRI | unix.EPOLLERR | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		_ = unix.Close(epfd)
		return nil, classifyOpenErr(os.NewSyscallError("epoll_ctl", err))
	}

	return &epollNotifier{epfd: epfd}, nil
}

// Wait blocks until an edge is signalled or timeout elapses. Both outcomes
// return nil; the caller re-reads the attribute either way.
func (n *epollNotifier) Wait(timeout time.Duration) error {
	_, err := unix.EpollWait(n.epfd, n.events[:], int(timeout.Milliseconds()))
	if err == nil || errors.Is(err, unix.EINTR) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNotificationFailure, os.NewSyscallError("epoll_wait", err))
}

func (n *epollNotifier) Close() error {
	return unix.Close(n.epfd)
}
