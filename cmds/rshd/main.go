// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rshd serves a small remote file shell.
//
// Clients send newline terminated commands (ls, cd, touch, mkdir
// and cat) and get CRLF terminated text back. By default every
// connection shares one working directory.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/u-root/rsh/server"
)

var (
	port    = flag.String("sp", server.DefaultPort, "rshd port")
	network = flag.String("net", "tcp", "network to use")
	root    = flag.String("root", ".", "directory served to clients")
	mem     = flag.Bool("mem", false, "serve an empty in-memory file store instead of -root")
	isolate = flag.Bool("isolate", false, "give each connection its own working directory")
	idle    = flag.Duration("idle", 0, "close connections idle this long; 0 means never")
	maxLine = flag.Int("maxline", server.DefaultMaxLine, "longest command line accepted")

	debug = flag.Bool("d", false, "enable debug prints")
	// v allows debug printing.
	// Do not call it directly, call verbose instead.
	v = func(string, ...interface{}) {}
)

func verbose(f string, a ...interface{}) {
	v("RSHD:"+f, a...)
}

func main() {
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := commonsetup(); err != nil {
		log.Fatal(err)
	}
	verbose("Args %v pid %d", os.Args, os.Getpid())
	if err := serve(); err != nil {
		log.Fatal(err)
	}
}
