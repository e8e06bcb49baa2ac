// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"bytes"
	"fmt"
)

// EOL terminates every line the server writes.
const EOL = "\r\n"

var v = func(string, ...interface{}) {}

// Store is the file store a Session works on.
// Paths passed to it are relative to the store root.
type Store interface {
	List(dir string) ([]string, error)
	Resolve(base, rel string) string
	CreateFile(path string) error
	MkdirAll(path string) error
	ReadLines(path string) ([]string, error)
}

// Dir is a working directory, relative to the store root.
type Dir struct {
	path string
}

// NewDir returns a Dir at path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the current path of d.
func (d *Dir) Path() string {
	return d.path
}

// Session is the state of one rsh connection.
type Session struct {
	// ID names the session in debug output.
	ID    string
	store Store
	dir   *Dir
}

// New returns a Session working on store in dir.
// dir may be shared with other sessions.
func New(store Store, dir *Dir) *Session {
	return &Session{store: store, dir: dir}
}

// Dir returns the working directory of s.
func (s *Session) Dir() *Dir {
	return s.dir
}

// Exec runs one command line and returns the response.
// Successful cd, touch and mkdir return nothing.
// Exec never fails: bad commands and file store errors are
// reported in the response.
func (s *Session) Exec(line string) []byte {
	c, err := ParseCommand(line)
	if err != nil {
		verbose("%s: %q: %v", s.ID, line, err)
		return []byte(unknownReply + EOL)
	}
	verbose("%s: %q in %q", s.ID, c, s.dir.path)

	var b bytes.Buffer
	if err := s.run(&b, c); err != nil {
		verbose("%s: %q: %v", s.ID, c, err)
		fmt.Fprintf(&b, "%s: %v%s", c.Verb, err, EOL)
	}
	return b.Bytes()
}

func (s *Session) run(b *bytes.Buffer, c Command) error {
	switch c.Verb {
	case "ls":
		names, err := s.store.List(s.dir.path)
		if err != nil {
			return err
		}
		// An empty listing is still one terminated, empty line.
		if len(names) == 0 {
			b.WriteString(EOL)
		}
		writeLines(b, names)
	case "cd":
		s.dir.path = s.store.Resolve(s.dir.path, c.Arg)
	case "touch":
		return s.store.CreateFile(s.store.Resolve(s.dir.path, c.Arg))
	case "mkdir":
		return s.store.MkdirAll(s.store.Resolve(s.dir.path, c.Arg))
	case "cat":
		lines, err := s.store.ReadLines(s.store.Resolve(s.dir.path, c.Arg))
		if err != nil {
			return err
		}
		writeLines(b, lines)
	default:
		// ParseCommand only accepts the verbs above.
		panic(fmt.Sprintf("session: no handler for %q", c.Verb))
	}
	return nil
}

func writeLines(b *bytes.Buffer, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString(EOL)
	}
}
