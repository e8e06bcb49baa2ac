// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin || freebsd || netbsd || openbsd

package server

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollset is a poller on poll(2). kqueue would scale better, but rshd
// rarely has more than a handful of clients.
type pollset struct {
	fds  map[int]event
	pfds []unix.PollFd
}

func newPoller() (poller, error) {
	return &pollset{fds: map[int]event{}}, nil
}

func (p *pollset) add(fd int, ev event) error {
	if _, ok := p.fds[fd]; ok {
		return unix.EEXIST
	}
	p.fds[fd] = ev
	return nil
}

func (p *pollset) mod(fd int, ev event) error {
	if _, ok := p.fds[fd]; !ok {
		return unix.ENOENT
	}
	p.fds[fd] = ev
	return nil
}

func (p *pollset) del(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return unix.ENOENT
	}
	delete(p.fds, fd)
	return nil
}

func (p *pollset) wait(timeout time.Duration, rs []ready) ([]ready, error) {
	p.pfds = p.pfds[:0]
	for fd, ev := range p.fds {
		var e int16
		if ev&evRead != 0 {
			e |= unix.POLLIN
		}
		if ev&evWrite != 0 {
			e |= unix.POLLOUT
		}
		p.pfds = append(p.pfds, unix.PollFd{Fd: int32(fd), Events: e})
	}
	n, err := unix.Poll(p.pfds, msec(timeout))
	if errors.Is(err, unix.EINTR) {
		return rs, nil
	}
	if err != nil {
		return rs, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return rs, nil
	}
	for _, pfd := range p.pfds {
		if pfd.Revents == 0 {
			continue
		}
		var ev event
		if pfd.Revents&unix.POLLIN != 0 {
			ev |= evRead
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ev |= evWrite
		}
		if pfd.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			ev |= evHup
		}
		rs = append(rs, ready{fd: int(pfd.Fd), ev: ev})
	}
	return rs, nil
}

func (p *pollset) close() error {
	p.fds = nil
	return nil
}
