// Copyright 2022-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ds

import (
	"fmt"
	"reflect"
	"runtime"
	"testing"
)

func TestClient(t *testing.T) {
	v = t.Logf

	q := dsQuery{
		Type:   "_nobody._tcp",
		Domain: "local",
	}

	// simple lookup with no server and bad service, it better fail
	_, _, err := Lookup(q)
	if err == nil {
		t.Fatal(fmt.Errorf("Lookup of bad service didn't fail"))
	}
}

func TestParse(t *testing.T) {
	for _, tt := range []struct {
		uri     string
		typ     string
		domain  string
		arch    []string
		wantErr bool
	}{
		{uri: DsDefault, typ: DefaultService, domain: DefaultDomain, arch: []string{runtime.GOARCH}},
		{uri: "dnssd:?arch=arm64", typ: DefaultService, domain: DefaultDomain, arch: []string{"arm64"}},
		{uri: "dnssd://example.org/_other._tcp?arch=amd64&arch=arm64", typ: "_other._tcp", domain: "example.org", arch: []string{"amd64", "arm64"}},
		{uri: "tcp://host:8189", wantErr: true},
	} {
		q, err := Parse(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): nil != an error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v != nil", tt.uri, err)
			continue
		}
		if q.Type != tt.typ || q.Domain != tt.domain {
			t.Errorf("Parse(%q): got (%q, %q), want (%q, %q)", tt.uri, q.Type, q.Domain, tt.typ, tt.domain)
		}
		if !reflect.DeepEqual(q.Text["arch"], tt.arch) {
			t.Errorf("Parse(%q): arch got %q, want %q", tt.uri, q.Text["arch"], tt.arch)
		}
		if got := q.Text["os"]; len(got) != 1 || got[0] != runtime.GOOS {
			t.Errorf("Parse(%q): os got %q, want [%q]", tt.uri, got, runtime.GOOS)
		}
	}
}

func TestParseKv(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want map[string]string
	}{
		{in: "", want: map[string]string{}},
		{in: "a=b", want: map[string]string{"a": "b"}},
		{in: "a=b,gpu", want: map[string]string{"a": "b", "gpu": "true"}},
		{in: "k=v=w", want: map[string]string{"k": "v=w"}},
	} {
		if got := ParseKv(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseKv(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequired(t *testing.T) {
	src := map[string]string{"arch": "amd64", "os": "linux"}
	for _, tt := range []struct {
		req  map[string][]string
		want bool
	}{
		{req: map[string][]string{}, want: true},
		{req: map[string][]string{"arch": {"amd64"}}, want: true},
		{req: map[string][]string{"arch": {"arm64", "amd64"}, "os": {"linux"}}, want: true},
		{req: map[string][]string{"arch": {"arm64"}}, want: false},
		{req: map[string][]string{"gpu": {"true"}}, want: false},
	} {
		if got := required(src, tt.req); got != tt.want {
			t.Errorf("required(%v, %v): got %v, want %v", src, tt.req, got, tt.want)
		}
	}
}

func TestTenant(t *testing.T) {
	v = t.Logf
	base := Tenants()
	// Nobody drains the update channel here; Tenant must not block.
	for i := 0; i < 3; i++ {
		Tenant(1)
	}
	Tenant(-1)
	if got, want := Tenants(), base+2; got != want {
		t.Fatalf("Tenants(): got %d, want %d", got, want)
	}
	txt := map[string]string{}
	DefaultTxt(txt)
	UpdateSysInfo(txt)
	if got, want := txt["tenants"], fmt.Sprint(base+2); got != want {
		t.Errorf("tenants: got %q, want %q", got, want)
	}
	for _, k := range []string{"arch", "os", "cores"} {
		if txt[k] == "" {
			t.Errorf("DefaultTxt: %q is not set", k)
		}
	}
	Tenant(-2)
}

func TestDnsSdStart(t *testing.T) {
	v = t.Logf
	dsTxt := make(map[string]string, 0)

	DefaultTxt(dsTxt)
	if err := Register("testInstance", "local", "_nrsh._tcp", "", 18189, dsTxt); err != nil {
		t.Skipf(`Register: %v != nil`, err)
	}
	Unregister()
	// Twice is fine.
	Unregister()
}
