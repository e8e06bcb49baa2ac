// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type epoll struct {
	fd  int
	evs [64]unix.EpollEvent
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epoll{fd: fd}, nil
}

func epollEvents(ev event) uint32 {
	var e uint32
	if ev&evRead != 0 {
		e |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if ev&evWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func (p *epoll) add(fd int, ev event) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: epollEvents(ev), Fd: int32(fd)})
}

func (p *epoll) mod(fd int, ev event) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: epollEvents(ev), Fd: int32(fd)})
}

func (p *epoll) del(fd int) error {
	// Kernels before 2.6.9 want a non-nil event even for DEL.
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
}

func (p *epoll) wait(timeout time.Duration, rs []ready) ([]ready, error) {
	n, err := unix.EpollWait(p.fd, p.evs[:], msec(timeout))
	if errors.Is(err, unix.EINTR) {
		return rs, nil
	}
	if err != nil {
		return rs, fmt.Errorf("epoll_wait: %w", err)
	}
	for _, e := range p.evs[:n] {
		var ev event
		if e.Events&unix.EPOLLIN != 0 {
			ev |= evRead
		}
		if e.Events&unix.EPOLLOUT != 0 {
			ev |= evWrite
		}
		if e.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 {
			ev |= evHup
		}
		rs = append(rs, ready{fd: int(e.Fd), ev: ev})
	}
	return rs, nil
}

func (p *epoll) close() error {
	return unix.Close(p.fd)
}
