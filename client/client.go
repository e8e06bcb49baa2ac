// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/u-root/rsh/ds"
)

const (
	// Commands that succeed silently send nothing back, so Run can
	// only tell a reply is complete by waiting for the connection to
	// go quiet. 100ms is plenty on a LAN.
	defaultTimeOut = time.Duration(100 * time.Millisecond)
	readBufSize    = 1024
)

// V allows debug printing.
var V = func(string, ...interface{}) {}

// ErrNewline is returned by Run for a command containing a newline.
var ErrNewline = errors.New("command contains a newline")

// Cmd is an rsh client.
// Its fields may be set directly, or with SetOptions.
type Cmd struct {
	Host string
	// HostName as found in .ssh/config; set to Host if not found
	HostName string
	Port     string
	Network  string
	// Timeout is how long Run waits for more output.
	Timeout time.Duration
	// Retries is how many times Dial retries after a failure.
	Retries uint64

	conn net.Conn
	buf  [readBufSize]byte
}

// Set is an option for a Cmd.
type Set func(*Cmd) error

// Command returns a Cmd for host. A host of the form dnssd:[...] is
// resolved when the Cmd is dialed.
func Command(host string) *Cmd {
	c := &Cmd{
		Host:     host,
		HostName: host,
		Port:     DefaultPort,
		Network:  "tcp",
		Timeout:  defaultTimeOut,
	}
	if !isDNSSD(host) {
		c.HostName = GetHostName(host)
	}
	return c
}

// SetOptions applies opts to c, stopping at the first error.
func (c *Cmd) SetOptions(opts ...Set) error {
	for _, o := range opts {
		if err := o(c); err != nil {
			return err
		}
	}
	return nil
}

// WithPort sets the port. An empty port is looked up in .ssh/config.
func WithPort(port string) Set {
	return func(c *Cmd) error {
		p, err := GetPort(c.HostName, port)
		if err != nil {
			return err
		}
		c.Port = p
		return nil
	}
}

// WithNetwork sets the network, e.g. tcp, tcp6 or unix.
// For unix, Host is the socket path.
func WithNetwork(network string) Set {
	return func(c *Cmd) error {
		if network == "" {
			return nil
		}
		c.Network = network
		return nil
	}
}

// WithTimeout sets the time Run waits for more output.
// It is a string so it can come straight from a flag.
func WithTimeout(timeout string) Set {
	return func(c *Cmd) error {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("timeout %v: must be > 0", d)
		}
		c.Timeout = d
		return nil
	}
}

// WithRetries sets how many times Dial retries.
func WithRetries(n uint64) Set {
	return func(c *Cmd) error {
		c.Retries = n
		return nil
	}
}

// Dial connects to the server, retrying with exponential backoff.
func (c *Cmd) Dial() error {
	if c.conn != nil {
		return fmt.Errorf("already connected to %v", c.conn.RemoteAddr())
	}
	if err := c.resolve(); err != nil {
		return err
	}
	addr := c.addr()
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.Retries)
	err := backoff.Retry(func() error {
		conn, err := net.Dial(c.Network, addr)
		V("rsh:net.Dial(%s, %s): (%v, %v)", c.Network, addr, conn, err)
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	}, b)
	if err != nil {
		return fmt.Errorf("Failed to dial: %w", err)
	}
	return nil
}

// resolve turns a dnssd: host into a host and port.
func (c *Cmd) resolve() error {
	if !isDNSSD(c.Host) {
		return nil
	}
	q, err := ds.Parse(c.Host)
	if err != nil {
		return fmt.Errorf("%v: %w", c.Host, err)
	}
	host, port, err := ds.Lookup(q)
	if err != nil {
		return fmt.Errorf("%v: %w", c.Host, err)
	}
	verbose("%v resolves to %v:%v", c.Host, host, port)
	c.HostName, c.Port = host, port
	return nil
}

func (c *Cmd) addr() string {
	if strings.HasPrefix(c.Network, "unix") {
		return c.HostName
	}
	return net.JoinHostPort(c.HostName, c.Port)
}

// Run sends one command and returns what the server wrote back
// until it went quiet for Timeout. If the server closed the
// connection, the output so far is returned with io.EOF.
func (c *Cmd) Run(line string) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("Cmd has no connection")
	}
	if strings.ContainsAny(line, "\n") {
		return "", fmt.Errorf("%q: %w", line, ErrNewline)
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return "", err
	}
	return c.read()
}

func (c *Cmd) read() (string, error) {
	var out bytes.Buffer
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.Timeout)); err != nil {
			return out.String(), err
		}
		n, err := c.conn.Read(c.buf[:])
		out.Write(c.buf[:n])
		switch {
		case err == nil:
		case errors.Is(err, os.ErrDeadlineExceeded):
			return out.String(), nil
		default:
			return out.String(), err
		}
	}
}

// Close ends an rsh session.
func (c *Cmd) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
