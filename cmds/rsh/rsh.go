// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rsh is a client for rshd.
//
// Usage:
//
//	rsh [flags] host [command...]
//
// With a command, rsh runs it and exits. Otherwise it reads
// commands from stdin, one per line. host may be dnssd:[?key=value]
// to pick a server advertised with DNS-SD.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/u-root/rsh/client"
	"github.com/u-root/rsh/ds"
	"golang.org/x/term"
)

const prompt = "rsh> "

var (
	debug   = flag.Bool("d", false, "enable debug prints")
	network = flag.String("net", "", "network type to use. Defaults to whatever the rsh client defaults to")
	port    = flag.String("sp", "", "rsh default port")
	timeout = flag.String("timeout", "100ms", "time to wait for more output after a command")
	retries = flag.Uint64("retries", 3, "times to retry a failed dial")

	v = func(string, ...interface{}) {}
)

func verbose(f string, a ...interface{}) {
	v("rsh:"+f, a...)
}

func flags() {
	flag.Parse()
	if *debug {
		v = log.Printf
		client.V = log.Printf
		ds.Verbose(log.Printf)
	}
}

func usage() {
	var b bytes.Buffer
	flag.CommandLine.SetOutput(&b)
	flag.PrintDefaults()
	log.Fatalf("Usage: rsh [options] host [command...]\n%v", b.String())
}

// repl runs each line of r on c and copies the output to w.
// If interactive, a prompt is written before each line.
func repl(c *client.Cmd, r io.Reader, w io.Writer, interactive bool) error {
	s := bufio.NewScanner(r)
	for {
		if interactive {
			fmt.Fprint(w, prompt)
		}
		if !s.Scan() {
			break
		}
		out, err := c.Run(s.Text())
		io.WriteString(w, out)
		if err != nil {
			return err
		}
	}
	return s.Err()
}

func run(host string, args []string) error {
	c := client.Command(host)
	if err := c.SetOptions(client.WithPort(*port), client.WithNetwork(*network), client.WithTimeout(*timeout), client.WithRetries(*retries)); err != nil {
		return err
	}
	if err := c.Dial(); err != nil {
		return err
	}
	defer c.Close()

	if len(args) > 0 {
		a := strings.Join(args, " ")
		verbose("Running %q on %q", a, host)
		out, err := c.Run(a)
		io.WriteString(os.Stdout, out)
		return err
	}
	return repl(c, os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

func main() {
	flags()
	args := flag.Args()
	if len(args) == 0 {
		usage()
	}
	if err := run(args[0], args[1:]); err != nil && !errors.Is(err, io.EOF) {
		log.Fatalf("rsh: %v", err)
	}
}
