// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/u-root/rsh/fsstore"
	"github.com/u-root/rsh/session"
	"github.com/u-root/u-root/pkg/ulog"
	"golang.org/x/sys/unix"
)

const (
	// DefaultPort is the rshd port.
	DefaultPort = "8189"
	// DefaultMaxLine is the longest command line accepted.
	DefaultMaxLine = 4096
	readBufSize    = 1024
)

var (
	v = func(string, ...interface{}) {}

	// ErrServerClosed is returned by Serve once Close has been called.
	ErrServerClosed = errors.New("rshd: Server closed")

	errEOF         = errors.New("end of stream")
	errIdle        = errors.New("idle timeout")
	errLineTooLong = errors.New("line too long")
	errShutdown    = errors.New("server shutdown")
)

// SetVerbose sets the debug print function for this package and for
// package session.
func SetVerbose(f func(string, ...interface{})) {
	v = f
	session.SetVerbose(f)
}

func verbose(f string, a ...interface{}) {
	v("RSHD:"+f, a...)
}

// Option configures a Server.
type Option func(*Server)

// WithIsolation gives every connection its own working directory
// instead of the shared one.
func WithIsolation(isolate bool) Option {
	return func(s *Server) {
		s.isolate = isolate
	}
}

// WithIdleTimeout closes connections that send nothing for d.
// Zero, the default, disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idle = d
	}
}

// WithMaxLine sets the longest command line a client may send.
// Clients that send more without a newline are disconnected.
func WithMaxLine(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

// WithTenants sets a function called with +1 when a connection is
// accepted and -1 when it closes.
func WithTenants(f func(delta int)) Option {
	return func(s *Server) {
		s.tenants = f
	}
}

// Server is an rsh server.
// All methods but Close must be called from one goroutine.
type Server struct {
	store   session.Store
	dir     *session.Dir
	isolate bool
	idle    time.Duration
	maxLine int
	tenants func(int)

	p     poller
	ln    net.Listener
	lfd   int
	conns map[int]*conn
	buf   [readBufSize]byte

	// mu guards closed and wake, which Close uses from
	// other goroutines.
	mu     sync.Mutex
	closed bool
	wake   [2]int
}

// New returns a Server working on store. Unless WithIsolation is
// set, every connection shares one working directory, which starts
// at the store root.
func New(store session.Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		dir:     session.NewDir(fsstore.Root),
		maxLine: DefaultMaxLine,
		tenants: func(int) {},
		lfd:     -1,
		conns:   map[int]*conn{},
		wake:    [2]int{-1, -1},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dir returns the working directory shared by connections.
func (s *Server) Dir() *session.Dir {
	return s.dir
}

// Serve accepts and serves connections on ln until Close is called,
// and then returns ErrServerClosed. ln must implement syscall.Conn,
// as the net package listeners do. Any other error means the
// listening socket failed. Serve closes ln when it returns.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.setup(ln); err != nil {
		ln.Close()
		return err
	}
	ulog.Log.Printf("rshd: serving %v on %v", s.store, ln.Addr())
	err := s.loop()
	if cerr := s.shutdown(); cerr != nil {
		verbose("shutdown: %v", cerr)
	}
	return err
}

func (s *Server) setup(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.ln != nil {
		return fmt.Errorf("rshd: already serving on %v", s.ln.Addr())
	}
	lfd, err := listenerFD(ln)
	if err != nil {
		return fmt.Errorf("rshd: %w", err)
	}
	p, err := newPoller()
	if err != nil {
		unix.Close(lfd)
		return fmt.Errorf("rshd: %w", err)
	}
	wake, err := pipe()
	if err != nil {
		unix.Close(lfd)
		p.close()
		return fmt.Errorf("rshd: %w", err)
	}
	if err := errors.Join(p.add(lfd, evRead), p.add(wake[0], evRead)); err != nil {
		unix.Close(lfd)
		unix.Close(wake[0])
		unix.Close(wake[1])
		p.close()
		return fmt.Errorf("rshd: register: %w", err)
	}
	s.ln, s.lfd, s.p, s.wake = ln, lfd, p, wake
	return nil
}

// Close stops the server. It is safe to call from any goroutine,
// and more than once. Connections are closed by the event loop as it
// exits.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.wake[1] < 0 {
		return nil
	}
	if _, err := unix.Write(s.wake[1], []byte{0}); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("rshd: wake: %w", err)
	}
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// tick is how long the loop may sleep with nothing to do.
func (s *Server) tick() time.Duration {
	if s.idle <= 0 {
		return -1
	}
	t := s.idle / 4
	if t > time.Second {
		t = time.Second
	}
	if t < 10*time.Millisecond {
		t = 10 * time.Millisecond
	}
	return t
}

func (s *Server) loop() error {
	var rs []ready
	for {
		var err error
		rs, err = s.p.wait(s.tick(), rs[:0])
		if err != nil {
			return fmt.Errorf("rshd: %w", err)
		}
		for _, r := range rs {
			switch r.fd {
			case s.wake[0]:
				var b [16]byte
				unix.Read(s.wake[0], b[:]) //nolint
				if s.isClosed() {
					return ErrServerClosed
				}
			case s.lfd:
				if err := s.handleAccept(); err != nil {
					return err
				}
			default:
				c, ok := s.conns[r.fd]
				if !ok {
					// Closed earlier in this batch.
					continue
				}
				s.handle(c, r.ev)
			}
		}
		s.sweep(time.Now())
	}
}

// handle services one ready connection.
func (s *Server) handle(c *conn, ev event) {
	if ev&(evRead|evHup) != 0 && !c.eof {
		if err := s.handleRead(c); err != nil {
			s.closeConn(c, err)
			return
		}
	}
	if err := s.flush(c); err != nil {
		s.closeConn(c, err)
		return
	}
	if c.eof && len(c.out) == 0 {
		s.closeConn(c, errEOF)
	}
}

// handleAccept accepts one pending connection. Only a failure of the
// listening socket itself is returned.
func (s *Server) handleAccept() error {
	fd, sa, err := unix.Accept(s.lfd)
	if err != nil {
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			return nil
		case errors.Is(err, unix.ECONNABORTED), errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE), errors.Is(err, unix.ENOBUFS), errors.Is(err, unix.ENOMEM):
			ulog.Log.Printf("rshd: accept: %v", err)
			return nil
		}
		return fmt.Errorf("rshd: accept: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		ulog.Log.Printf("rshd: set nonblock on accepted socket: %v", err)
		unix.Close(fd)
		return nil
	}
	if err := s.p.add(fd, evRead); err != nil {
		ulog.Log.Printf("rshd: register accepted socket: %v", err)
		unix.Close(fd)
		return nil
	}
	c := &conn{
		id:       uuid.NewString(),
		fd:       fd,
		remote:   sockaddrString(sa),
		interest: evRead,
		last:     time.Now(),
	}
	dir := s.dir
	if s.isolate {
		dir = session.NewDir(fsstore.Root)
	}
	c.sess = session.New(s.store, dir)
	c.sess.ID = c.id
	s.conns[fd] = c
	s.tenants(1)
	ulog.Log.Printf("rshd: %v: client accepted", c)
	return nil
}

// handleRead reads everything c has sent, and runs every complete
// line. A partial line stays buffered until the rest arrives.
func (s *Server) handleRead(c *conn) error {
	for len(c.out) < maxPending {
		n, err := unix.Read(c.fd, s.buf[:])
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil
		case err != nil:
			return fmt.Errorf("read: %w", err)
		case n == 0:
			// Whatever follows the last newline is discarded.
			verbose("%v: end of stream, dropping %d bytes", c, len(c.in))
			c.eof, c.in = true, nil
			return nil
		}
		c.last = time.Now()
		c.in = append(c.in, s.buf[:n]...)
		for {
			line, ok := c.next()
			if !ok {
				break
			}
			verbose("%v: received %q", c, line)
			c.out = append(c.out, c.sess.Exec(line)...)
		}
		if len(c.in) > s.maxLine {
			return errLineTooLong
		}
	}
	return nil
}

// flush writes as much of c.out as the socket takes and updates what
// c is registered for.
func (s *Server) flush(c *conn) error {
	for len(c.out) > 0 {
		n, err := unix.Write(c.fd, c.out)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			break
		}
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		c.out = c.out[n:]
	}
	if len(c.out) == 0 {
		c.out = nil
	}
	if ev := c.wants(); ev != c.interest {
		if err := s.p.mod(c.fd, ev); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		c.interest = ev
	}
	return nil
}

func (s *Server) closeConn(c *conn, why error) {
	if err := errors.Join(s.p.del(c.fd), unix.Close(c.fd)); err != nil {
		verbose("%v: close: %v", c, err)
	}
	delete(s.conns, c.fd)
	s.tenants(-1)
	ulog.Log.Printf("rshd: %v: closed: %v", c, why)
}

// sweep closes connections idle for longer than the idle timeout.
func (s *Server) sweep(now time.Time) {
	if s.idle <= 0 {
		return
	}
	for _, c := range s.conns {
		if now.Sub(c.last) > s.idle {
			s.closeConn(c, errIdle)
		}
	}
}

func (s *Server) shutdown() error {
	for _, c := range s.conns {
		s.closeConn(c, errShutdown)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := errors.Join(s.p.close(), unix.Close(s.lfd), s.ln.Close(), unix.Close(s.wake[0]), unix.Close(s.wake[1]))
	s.wake = [2]int{-1, -1}
	s.lfd = -1
	return err
}
