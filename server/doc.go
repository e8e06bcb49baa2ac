// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server implements rshd, the rsh file shell server.
//
// A Server runs one event loop on one goroutine. The loop waits for
// readiness on the listening socket and on every connection (epoll on
// Linux, poll(2) on the BSDs and Darwin), accepts new connections,
// drains readable ones into a per-connection line buffer, runs each
// complete line through the connection's session.Session, and writes the
// response back. Writes are attempted immediately; whatever the socket
// does not take is kept and written when the socket becomes writable.
//
// No handler ever blocks on a socket, so a slow client does not hold up
// the others. A slow file store does: every command runs to completion
// on the loop goroutine.
//
// By default all connections share one working directory, so a cd on
// one connection moves every other connection too. WithIsolation gives
// each connection its own.
//
// Usage:
//
//	ln, err := net.Listen("tcp", ":8189")
//	...
//	s := server.New(store)
//	err = s.Serve(ln) // returns ErrServerClosed after s.Close()
package server
