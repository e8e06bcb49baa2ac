// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session interprets rsh command lines.
//
// New(store, dir) creates a Session for one connection. Exec takes one
// command line and returns the bytes to write back to the client. The
// commands are ls, cd, touch, mkdir and cat; anything else, including a
// command missing its argument, gets "Unknown command".
//
// A Session's working directory is a *Dir. When several Sessions are
// created with the same Dir, a cd in one of them moves all of them: that
// is how rshd behaves by default. Give each Session its own Dir (NewDir)
// to isolate connections from each other.
//
// Sessions are not safe for concurrent use, and neither is a shared Dir.
// rshd calls them from a single event loop.
package session
