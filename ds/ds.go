// Copyright 2022-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ds

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brutella/dnssd"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
	"golang.org/x/exp/slices"
)

// V allows debug printing.
var (
	v       = func(string, ...interface{}) {}
	mu      sync.Mutex
	cancel  = func() {}
	tenants atomic.Int64
	tenChan = make(chan struct{}, 1)
)

// Simple form dns-sd query
type dsQuery struct {
	Type   string
	Domain string
	Text   map[string][]string
}

const (
	DsDefault = "dnssd:"
	// DefaultService is the service type rshd advertises.
	DefaultService = "_rsh._tcp"
	DefaultDomain  = "local"
	dsTimeout      = 1 * time.Second // query-timeout
	timeFormat     = "15:04:05.000"
	dsUpdate       = 60 * time.Second // server meta-data refresh
)

// client relative code

// setup Verbose
func Verbose(f func(string, ...interface{})) {
	v = f
}

// check that dns-sd response has all required attributes
func required(src map[string]string, req map[string][]string) bool {
	for k := range req {
		if !slices.Contains(req[k], src[k]) {
			return false
		}
	}
	return true
}

// parse DNS-SD URI to dnssd struct
// we could subtype BrowseEntry or Service, but why?
func Parse(uri string) (dsQuery, error) {
	result := dsQuery{
		Type:   DefaultService,
		Domain: DefaultDomain,
	}

	u, err := url.Parse(uri)
	if err != nil {
		return result, fmt.Errorf("Trouble parsing url %s: %w", uri, err)
	}

	if u.Scheme != "dnssd" {
		return result, fmt.Errorf("Not an dns-sd URI")
	}

	// following dns-sd URI conventions from CUPS
	if u.Host != "" {
		result.Domain = u.Host
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		result.Type = p
	}

	result.Text = u.Query()

	if len(result.Text["arch"]) == 0 {
		result.Text["arch"] = []string{runtime.GOARCH}
	}

	if len(result.Text["os"]) == 0 {
		result.Text["os"] = []string{runtime.GOOS}
	}

	return result, nil
}

// lookup based on hostname, return resolved host, port, and error
// uri currently supported dnssd://domain/_service._network/instance?reqkey=reqvalue
// default for domain is local, first path element is _rsh._tcp, and instance is wildcard
// can omit to underspecify, e.g. dnssd:?arch=arm64 to pick any arm64 rshd
func Lookup(query dsQuery) (string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dsTimeout)
	defer cancel()

	service := fmt.Sprintf("%s.%s.", strings.Trim(query.Type, "."), strings.Trim(query.Domain, "."))

	v("Browsing for %s\n", service)

	// Buffered so that neither callback blocks once we have an answer.
	respCh := make(chan *dnssd.BrowseEntry, 2)
	var once sync.Once

	addFn := func(e dnssd.BrowseEntry) {
		v("%s	Add	%s	%s	%s	%s (%s)\n", time.Now().Format(timeFormat), e.IfaceName, e.Domain, e.Type, e.Name, e.IPs)
		// check requirement
		v("Checking %v against %v", e.Text, query.Text)
		if required(e.Text, query.Text) && len(e.IPs) > 0 {
			once.Do(func() {
				respCh <- &e
				cancel()
			})
		}
	}

	rmvFn := func(e dnssd.BrowseEntry) {
		v("%s	Rmv	%s	%s	%s	%s\n", time.Now().Format(timeFormat), e.IfaceName, e.Domain, e.Type, e.Name)
		// we aren't maintaining cache so don't care?
	}

	go func() {
		if err := dnssd.LookupType(ctx, service, addFn, rmvFn); err != nil && ctx.Err() == nil {
			v("LookupType(%q): %v", service, err)
		}
		respCh <- nil
	}()

	e := <-respCh

	if e == nil {
		return "", "", fmt.Errorf("dnssd found no suitable service")
	}

	if len(e.IPs) > 1 {
		v("WARNING: there was more than one option for address")
	}

	return e.IPs[0].String(), strconv.Itoa(e.Port), nil
}

// Server components

// Parse DNS-SD key value string into Map w/sensible default for empty keys
func ParseKv(arg string) map[string]string {
	txt := make(map[string]string)
	if len(arg) == 0 {
		return txt
	}
	ss := strings.Split(arg, ",")
	for _, pair := range ss {
		z := strings.SplitN(pair, "=", 2)
		if len(z) > 1 {
			txt[z[0]] = z[1]
		} else {
			txt[z[0]] = "true"
		}
	}

	return txt
}

func Unregister() {
	v("stopping dns-sd server")
	mu.Lock()
	defer mu.Unlock()
	cancel()
	cancel = func() {}
}

func DefaultInstance() string {
	hostname, err := os.Hostname()
	if err == nil {
		hostname += "-rshd"
	} else {
		hostname = "rshd"
	}

	return hostname
}

// UpdateSysInfo refreshes the host metrics in txtFlag. Metrics that
// can not be read on this system are left alone.
func UpdateSysInfo(txtFlag map[string]string) {
	if vm, err := mem.VirtualMemory(); err != nil {
		v("VirtualMemory call failed: %v", err)
	} else {
		txtFlag["mem_avail"] = strconv.FormatUint(vm.Available, 10)
		txtFlag["mem_total"] = strconv.FormatUint(vm.Total, 10)
	}

	if avg, err := load.Avg(); err != nil {
		v("load.Avg call failed: %v", err)
	} else {
		txtFlag["load1"] = strconv.FormatFloat(avg.Load1, 'f', 2, 64)
		txtFlag["load5"] = strconv.FormatFloat(avg.Load5, 'f', 2, 64)
		txtFlag["load15"] = strconv.FormatFloat(avg.Load15, 'f', 2, 64)
		txtFlag["load_ratio"] = fmt.Sprintf("%.6f", avg.Load5/float64(runtime.NumCPU()))
	}
	txtFlag["tenants"] = strconv.FormatInt(tenants.Load(), 10)

	v(" dsUpdateSysInfo %v", txtFlag)
}

func DefaultTxt(txtFlag map[string]string) {
	if len(txtFlag["arch"]) == 0 {
		txtFlag["arch"] = runtime.GOARCH
	}

	if len(txtFlag["os"]) == 0 {
		txtFlag["os"] = runtime.GOOS
	}

	if len(txtFlag["cores"]) == 0 {
		txtFlag["cores"] = strconv.Itoa(runtime.NumCPU())
	}
}

// Tenant updates the tenant count by delta. It never blocks: if an
// update is already pending, the new count goes out with it.
func Tenant(delta int) {
	v("tenant delta %d", delta)
	tenants.Add(int64(delta))
	select {
	case tenChan <- struct{}{}:
	default:
	}
}

// Tenants returns the current tenant count.
func Tenants() int {
	return int(tenants.Load())
}

func Register(instanceFlag, domainFlag, serviceFlag, interfaceFlag string, portFlag int, txtFlag map[string]string) error {
	v("starting dns-sd server")

	v("Advertising: %s.%s.%s.", strings.Trim(instanceFlag, "."), strings.Trim(serviceFlag, "."), strings.Trim(domainFlag, "."))

	resp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("dnssd newreponder fail: %w", err)
	}

	ifaces := []string{}
	if len(interfaceFlag) > 0 {
		ifaces = append(ifaces, interfaceFlag)
	}

	if len(instanceFlag) == 0 {
		instanceFlag = DefaultInstance()
	}

	DefaultTxt(txtFlag)
	UpdateSysInfo(txtFlag)

	cfg := dnssd.Config{
		Name:   instanceFlag,
		Type:   serviceFlag,
		Domain: domainFlag,
		Port:   portFlag,
		Ifaces: ifaces,
		Text:   txtFlag,
	}
	srv, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("rshd: advertise: New service fail: %w", err)
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	mu.Lock()
	cancel = ctxCancel
	mu.Unlock()

	go func() {
		// if we start responding too quickly, mDNS won't work correctly.
		select {
		case <-time.After(1 * time.Second):
		case <-ctx.Done():
			return
		}
		handle, err := resp.Add(srv)
		if err != nil {
			v("dnssd: Add: %v", err)
			return
		}
		v("%s	Got a reply for service %s: Name now registered and active\n", time.Now().Format(timeFormat), handle.Service().ServiceInstanceName())

		t := time.NewTicker(dsUpdate)
		defer t.Stop()
		for {
			select {
			case <-tenChan:
			case <-t.C:
			case <-ctx.Done():
				return
			}
			// The TXT map is only touched here once we are running.
			UpdateSysInfo(txtFlag)
			handle.UpdateText(txtFlag, resp)
		}
	}()

	go func() {
		if err := resp.Respond(ctx); err != nil && ctx.Err() == nil {
			v("dnssd: Respond: %v", err)
		} else {
			v("rsh dns-sd responder running exited")
		}
	}()

	return nil
}
