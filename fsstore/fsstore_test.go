// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsstore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	s := NewMem()
	for _, tt := range []struct {
		base string
		rel  string
		want string
	}{
		{".", "a", "a"},
		{"a", "b", "a/b"},
		{"a", "/b", "a/b"},
		{"a/b", "..", "a"},
		{"a", "./c/", "a/c"},
		{".", "..", "."},
		{"a", "../..", "."},
		{"a", "../../b", "b"},
		{"a/b", "/", "a/b"},
	} {
		if got := s.Resolve(tt.base, tt.rel); got != filepath.FromSlash(tt.want) {
			t.Errorf("Resolve(%q, %q): got %q, want %q", tt.base, tt.rel, got, tt.want)
		}
	}
}

func TestMemStore(t *testing.T) {
	s := NewMem()
	if err := s.MkdirAll("a/b"); err != nil {
		t.Fatalf("MkdirAll(a/b): %v != nil", err)
	}
	if err := s.CreateFile("a/f"); err != nil {
		t.Fatalf("CreateFile(a/f): %v != nil", err)
	}
	if err := s.CreateFile("a/f"); !errors.Is(err, os.ErrExist) {
		t.Errorf("CreateFile(a/f) again: got %v, want %v", err, os.ErrExist)
	}
	if err := s.CreateFile("nope/f"); err == nil {
		t.Errorf("CreateFile(nope/f): nil != an error")
	}
	got, err := s.List("a")
	if err != nil {
		t.Fatalf("List(a): %v != nil", err)
	}
	if want := []string{"b", "f"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List(a): got %q, want %q", got, want)
	}
	if _, err := s.List("a/f"); err == nil {
		t.Errorf("List(a/f): nil != an error")
	}
	if _, err := s.List("missing"); err == nil {
		t.Errorf("List(missing): nil != an error")
	}
	lines, err := s.ReadLines("a/f")
	if err != nil {
		t.Fatalf("ReadLines(a/f): %v != nil", err)
	}
	if len(lines) != 0 {
		t.Errorf("ReadLines(a/f): got %q, want no lines", lines)
	}
}

func TestOSStore(t *testing.T) {
	d := t.TempDir()
	s, err := NewOS(d)
	if err != nil {
		t.Fatalf("NewOS(%q): %v != nil", d, err)
	}
	if err := os.WriteFile(filepath.Join(d, "text"), []byte("one\r\ntwo\n\nfour"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := s.ReadLines("text")
	if err != nil {
		t.Fatalf("ReadLines(text): %v != nil", err)
	}
	if want := []string{"one", "two", "", "four"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("ReadLines(text): got %q, want %q", lines, want)
	}
	if _, err := s.ReadLines("absent"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadLines(absent): got %v, want %v", err, os.ErrNotExist)
	}

	if err := s.MkdirAll("x/y/z"); err != nil {
		t.Fatalf("MkdirAll(x/y/z): %v != nil", err)
	}
	if fi, err := os.Stat(filepath.Join(d, "x", "y", "z")); err != nil || !fi.IsDir() {
		t.Errorf("x/y/z: got (%v, %v), want a directory", fi, err)
	}

	// .. never leaves the root.
	if err := s.CreateFile(s.Resolve(".", "../escaped")); err != nil {
		t.Fatalf("CreateFile(../escaped): %v != nil", err)
	}
	if _, err := os.Stat(filepath.Join(d, "escaped")); err != nil {
		t.Errorf("escaped: %v; want it created under the root", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(d), "escaped")); err == nil {
		t.Errorf("escaped was created outside the root")
	}
}

func TestOSListOrder(t *testing.T) {
	d := t.TempDir()
	for _, n := range []string{"zeta", "alpha", "mid", "beta", "omega", "c", "a"} {
		if err := os.WriteFile(filepath.Join(d, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	f, err := os.Open(d)
	if err != nil {
		t.Fatal(err)
	}
	want, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewOS(d)
	if err != nil {
		t.Fatalf("NewOS(%q): %v != nil", d, err)
	}
	got, err := s.List(Root)
	if err != nil {
		t.Fatalf("List(%q): %v != nil", Root, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List(%q): got %q, want directory order %q", Root, got, want)
	}
	// .. is clamped before the host is asked.
	if got, err = s.List(s.Resolve(Root, "..")); err != nil || !reflect.DeepEqual(got, want) {
		t.Errorf("List(..): got (%q, %v), want (%q, nil)", got, err, want)
	}
}

func TestReadLongLine(t *testing.T) {
	s := NewMem()
	long := strings.Repeat("x", 3<<20)
	f, err := s.fs.Create("long")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("a\n" + long + "\r\nb")); err != nil {
		t.Fatal(err)
	}
	f.Close()
	lines, err := s.ReadLines("long")
	if err != nil {
		t.Fatalf("ReadLines(long): %v != nil", err)
	}
	if len(lines) != 3 || lines[0] != "a" || lines[1] != long || lines[2] != "b" {
		t.Errorf("ReadLines(long): got %d lines, want [a, %d x's, b]", len(lines), len(long))
	}
}

func TestMemClampsDotDot(t *testing.T) {
	s := NewMem()
	if err := s.MkdirAll("top"); err != nil {
		t.Fatal(err)
	}
	p := s.Resolve(Root, "..")
	got, err := s.List(p)
	if err != nil {
		t.Fatalf("List(%q): %v != nil", p, err)
	}
	if want := []string{"top"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List(%q): got %q, want %q", p, got, want)
	}
}

func TestNewOSNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewOS(f); err == nil {
		t.Errorf("NewOS(%q): nil != an error", f)
	}
	if _, err := NewOS(filepath.Join(f, "missing")); err == nil {
		t.Errorf("NewOS(missing): nil != an error")
	}
}
