// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package main

import (
	"log"

	"github.com/u-root/rsh/server"
)

func commonsetup() error {
	if *debug {
		v = log.Printf
		server.SetVerbose(v)
	}
	return nil
}
