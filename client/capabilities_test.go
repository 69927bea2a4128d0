package client

import (
	"errors"
	"testing"
)

func TestCapabilitiesFromLineParsesOrderAndValues(t *testing.T) {
	line := []byte("95dcfa3633004da0049d3d0fa03f80589cbcaf31 refs/heads/main\x00multi_ack side-band-64k agent=git/2.28.0")
	caps, refText, err := CapabilitiesFromLine(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if refText != "95dcfa3633004da0049d3d0fa03f80589cbcaf31 refs/heads/main" {
		t.Fatalf("ref text mismatch: %q", refText)
	}

	all := caps.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 capabilities, got %d", len(all))
	}
	wantNames := []string{"multi_ack", "side-band-64k", "agent"}
	for i, name := range wantNames {
		if all[i].Name != name {
			t.Fatalf("capability %d: got %q, want %q", i, all[i].Name, name)
		}
	}

	agent, ok := caps.Get("agent")
	if !ok || !agent.HasValue || agent.Value != "git/2.28.0" {
		t.Fatalf("agent capability mismatch: %+v ok=%v", agent, ok)
	}
	if ma, _ := caps.Get("multi_ack"); ma.HasValue {
		t.Fatalf("multi_ack should carry no value")
	}
	if !caps.Supports("side-band-64k") || caps.Supports("nope") {
		t.Fatalf("supports lookup broken")
	}
}

func TestCapabilitiesFromLineMissingNUL(t *testing.T) {
	_, _, err := CapabilitiesFromLine([]byte("no separator here"))
	if !errors.Is(err, ErrCapabilities) {
		t.Fatalf("expected ErrCapabilities, got %v", err)
	}
}

func TestCapabilitiesFromLinesKeepsOrder(t *testing.T) {
	caps := CapabilitiesFromLines([][]byte{
		[]byte("agent=git/2.40.0"),
		[]byte("ls-refs"),
		[]byte("fetch=shallow wait-for-done"),
		[]byte(""),
		[]byte("server-option"),
	})
	all := caps.All()
	want := []string{"agent", "ls-refs", "fetch", "server-option"}
	if len(all) != len(want) {
		t.Fatalf("expected %d capabilities, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Fatalf("capability %d: got %q, want %q", i, all[i].Name, name)
		}
	}
	fetch, _ := caps.Get("fetch")
	if fetch.Value != "shallow wait-for-done" {
		t.Fatalf("fetch value mismatch: %q", fetch.Value)
	}
}

func TestCapabilitiesAllReturnsCopy(t *testing.T) {
	caps := CapabilitiesFromLines([][]byte{[]byte("ls-refs")})
	all := caps.All()
	all[0].Name = "mutated"
	if fresh := caps.All(); fresh[0].Name != "ls-refs" {
		t.Fatalf("internal state mutated through All()")
	}
}
