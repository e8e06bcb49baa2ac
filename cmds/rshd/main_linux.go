// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"log"

	"github.com/u-root/rsh/server"
	"github.com/u-root/u-root/pkg/ulog"
)

var klog = flag.Bool("klog", false, "Log rshd debug messages in kernel log, not stdout")

func commonsetup() error {
	if *debug {
		v = log.Printf
		if *klog {
			ulog.KernelLog.Reinit()
			v = ulog.KernelLog.Printf
		}
		server.SetVerbose(v)
	}
	return nil
}
