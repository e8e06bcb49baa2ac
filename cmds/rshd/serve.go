// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/u-root/rsh/fsstore"
	"github.com/u-root/rsh/server"
)

func listen(network, port string) (net.Listener, error) {
	switch network {
	case "unix":
		// net.JoinHostPort really ought to work for UDS, but it's very naive.
		// It does not take the network type as a parameter.
		return net.Listen(network, port)
	case "tcp", "tcp4", "tcp6":
		return net.Listen(network, net.JoinHostPort("", port))
	}
	// Datagram and vsock sockets have no descriptor the server can
	// accept on.
	return nil, net.UnknownNetworkError(network)
}

func newStore(root string, mem bool) (*fsstore.Store, error) {
	if mem {
		return fsstore.NewMem(), nil
	}
	return fsstore.NewOS(root)
}

func newServer(store *fsstore.Store, opts ...server.Option) *server.Server {
	opts = append([]server.Option{
		server.WithIsolation(*isolate),
		server.WithIdleTimeout(*idle),
		server.WithMaxLine(*maxLine),
	}, opts...)
	return server.New(store, opts...)
}

func serve() error {
	store, err := newStore(*root, *mem)
	if err != nil {
		return err
	}
	var opts []server.Option
	if *dsEnabled {
		tenant, err := advertise(*port)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithTenants(tenant))
		defer unadvertise()
	}
	s := newServer(store, opts...)
	v("Server is %v", store)

	ln, err := listen(*network, *port)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Printf("RSHD:%v: shutting down", <-sig)
		if err := s.Close(); err != nil {
			log.Printf("RSHD:Close: %v", err)
		}
	}()

	v("Listening on %v", ln.Addr())
	if err := s.Serve(ln); !errors.Is(err, server.ErrServerClosed) {
		return fmt.Errorf("s.Serve(): %v != %v", err, server.ErrServerClosed)
	}
	verbose("Serve returns")
	return nil
}
