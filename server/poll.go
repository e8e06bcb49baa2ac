// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import "time"

// event is a set of readiness conditions.
type event uint32

const (
	evRead event = 1 << iota
	evWrite
	// evHup is reported for hangups and errors, whether or not it
	// was asked for. A read on the descriptor tells which.
	evHup
)

type ready struct {
	fd int
	ev event
}

// poller is a readiness notification facility. It is level triggered.
type poller interface {
	add(fd int, ev event) error
	mod(fd int, ev event) error
	del(fd int) error
	// wait blocks until at least one descriptor is ready or timeout
	// passes, and appends what is ready to rs. A negative timeout
	// blocks forever. An interrupted wait returns rs unchanged.
	wait(timeout time.Duration, rs []ready) ([]ready, error)
	close() error
}

func msec(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := int(d / time.Millisecond)
	if ms == 0 && d > 0 {
		ms = 1
	}
	return ms
}
