// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"fmt"
	"strconv"
	"strings"

	config "github.com/kevinburke/ssh_config"
	"github.com/u-root/rsh/ds"
)

const (
	// DefaultPort is the default rsh port.
	DefaultPort = "8189"
)

func verbose(f string, a ...interface{}) {
	V("rsh:"+f, a...)
}

func isDNSSD(host string) bool {
	return strings.HasPrefix(host, ds.DsDefault)
}

// GetHostName reads the host name from the ssh config file,
// if needed. If it is not found, the host name is returned.
func GetHostName(host string) string {
	h := config.Get(host, "HostName")
	if len(h) != 0 {
		host = h
	}
	return host
}

// GetPort gets a port. It verifies that the port fits in 16-bit space.
// An explicit port is used as is. Otherwise the port comes from the
// ssh config file, see configPort.
func GetPort(host, port string) (string, error) {
	p := port
	V("getPort(%q, %q)", host, port)
	if len(p) == 0 {
		cp := config.Get(host, "Port")
		V("config.Get(%q,%q): %q", host, "Port", cp)
		p = configPort(cp)
	}
	if _, err := strconv.ParseUint(p, 0, 16); err != nil {
		return "", fmt.Errorf("port %q: %w", p, err)
	}
	V("returns %q", p)
	return p, nil
}

// configPort picks the port to use given the ssh config value.
// The rules here are messy, since config.Get will return "22" if
// there is no entry in .ssh/config. So "22" from the config means
// unset, and gets DefaultPort.
func configPort(cp string) string {
	if len(cp) == 0 || cp == "22" {
		V("getPort: return default %q", DefaultPort)
		return DefaultPort
	}
	return cp
}
