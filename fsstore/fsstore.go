// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

const (
	dirPerm  = 0o755
	filePerm = 0o666
	// Root is the path of the store root, and the starting
	// directory of every session.
	Root = "."
)

// Store is a file store rooted in a billy.Filesystem.
type Store struct {
	fs billy.Filesystem
	// root is the host directory of an OS store, and empty otherwise.
	root string
}

// New returns a Store for fs.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOS returns a Store bound to the directory root on the host.
func NewOS(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fsstore: %q: %w", root, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fsstore: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("fsstore: %q is not a directory", abs)
	}
	s := New(osfs.New(abs, osfs.WithBoundOS()))
	s.root = abs
	return s, nil
}

// NewMem returns an empty in-memory Store.
func NewMem() *Store {
	fs := memfs.New()
	// memfs has no root until something is created under it.
	_ = fs.MkdirAll(Root, dirPerm)
	return New(fs)
}

// String implements fmt.Stringer.
func (s *Store) String() string {
	if r, ok := s.fs.(interface{ Root() string }); ok {
		return fmt.Sprintf("store(%s)", r.Root())
	}
	return fmt.Sprintf("store(%T)", s.fs)
}

// List returns the names of the immediate entries of dir, in the
// order the underlying filesystem enumerates them. Names are not
// sorted.
func (s *Store) List(dir string) ([]string, error) {
	fi, err := s.fs.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: dir, Err: fmt.Errorf("not a directory")}
	}
	if s.root != "" {
		return s.listOS(dir)
	}
	ents, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names, nil
}

// listOS reads dir straight from the host. billy's osfs ReadDir sorts
// by name, which would hide the directory's own order.
func (s *Store) listOS(dir string) ([]string, error) {
	p, err := securejoin.SecureJoin(s.root, dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Resolve resolves rel against base. A leading / in rel does not
// reset to the root, and .. never climbs above it: the result is a
// clean path relative to the root, Root for the root itself.
func (s *Store) Resolve(base, rel string) string {
	p := filepath.Join(string(filepath.Separator), base, rel)
	p = strings.TrimPrefix(p, string(filepath.Separator))
	if p == "" {
		return Root
	}
	return p
}

// CreateFile creates an empty file. The parent directory must exist,
// and the file must not.
func (s *Store) CreateFile(path string) error {
	parent := filepath.Dir(path)
	pi, err := s.fs.Stat(parent)
	if err != nil {
		return err
	}
	if !pi.IsDir() {
		return &os.PathError{Op: "create", Path: path, Err: fmt.Errorf("%s is not a directory", parent)}
	}
	if _, err := s.fs.Stat(path); err == nil {
		return &os.PathError{Op: "create", Path: path, Err: os.ErrExist}
	}
	f, err := s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return err
	}
	return f.Close()
}

// MkdirAll creates path and any missing parents.
func (s *Store) MkdirAll(path string) error {
	return s.fs.MkdirAll(path, dirPerm)
}

// ReadLines returns the lines of the file at path, without their
// terminators. A trailing \r is dropped from each line. Lines may be
// of any length; the whole file is held in memory.
func (s *Store) ReadLines(path string) ([]string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	r := bufio.NewReader(f)
	for {
		l, err := r.ReadString('\n')
		if len(l) > 0 {
			l = strings.TrimSuffix(l, "\n")
			lines = append(lines, strings.TrimSuffix(l, "\r"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
}
