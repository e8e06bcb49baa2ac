// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsstore provides the file store used by rsh sessions.
//
// A Store exposes exactly five capabilities: List, Resolve, CreateFile,
// MkdirAll and ReadLines. It is backed by any go-billy filesystem, so
// sessions never touch the host file system directly. NewOS binds the
// store to a directory on disk. On every store, paths that climb above
// the root with .. are clamped to it. NewMem is an in-memory store, mostly for
// tests.
package fsstore
