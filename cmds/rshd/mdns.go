// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/u-root/rsh/ds"
)

var (
	dsEnabled   = flag.Bool("dnssd", false, "advertise service using DNSSD")
	dsInstance  = flag.String("dsInstance", "", "DNSSD instance name")
	dsDomain    = flag.String("dsDomain", ds.DefaultDomain, "DNSSD domain")
	dsService   = flag.String("dsService", ds.DefaultService, "DNSSD Service Type")
	dsInterface = flag.String("dsInterface", "", "DNSSD Interface")
	dsTxtStr    = flag.String("dsTxt", "", "DNSSD key-value pair string parameterizing advertisement")
	dsTxt       map[string]string
)

// advertise registers rshd with DNS-SD. It returns the function the
// server calls as connections come and go.
func advertise(port string) (func(int), error) {
	if *debug {
		ds.Verbose(log.Printf)
	}
	dsTxt = ds.ParseKv(*dsTxtStr)

	v("Advertising w/dnssd %q", dsTxt)
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("Could not parse port: %s, %w", port, err)
	}

	if err := ds.Register(*dsInstance, *dsDomain, *dsService, *dsInterface, p, dsTxt); err != nil {
		return nil, fmt.Errorf("Could not advertise with dns-sd: %w", err)
	}
	return ds.Tenant, nil
}

func unadvertise() {
	ds.Unregister()
}
