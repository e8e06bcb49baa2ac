// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/u-root/rsh/session"
	"golang.org/x/sys/unix"
)

// maxPending bounds the output queued for a client that is not
// reading. Past it, the server stops reading from that client.
const maxPending = 1 << 20

// conn is one accepted client.
type conn struct {
	id     string
	fd     int
	remote string
	sess   *session.Session
	// in holds bytes received but not yet terminated by a newline.
	in []byte
	// out holds response bytes the socket has not taken yet.
	out []byte
	// eof is set once the client has closed its side. No more
	// reads are done; the connection closes when out is empty.
	eof      bool
	interest event
	last     time.Time
}

func (c *conn) String() string {
	return fmt.Sprintf("%s(%s)", c.id, c.remote)
}

// next removes the first complete line from c.in and returns it,
// without its newline.
func (c *conn) next() (string, bool) {
	i := bytes.IndexByte(c.in, '\n')
	if i < 0 {
		return "", false
	}
	line := string(c.in[:i])
	c.in = c.in[i+1:]
	if len(c.in) == 0 {
		c.in = nil
	}
	return line, true
}

// wants returns the events c should be registered for.
func (c *conn) wants() event {
	var ev event
	if !c.eof && len(c.out) < maxPending {
		ev |= evRead
	}
	if len(c.out) > 0 {
		ev |= evWrite
	}
	return ev
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrUnix:
		if len(a.Name) == 0 {
			return "unix"
		}
		return a.Name
	}
	return fmt.Sprintf("%T", sa)
}
