package main

import "testing"

func TestCapabilityFlagsKeepOrder(t *testing.T) {
	var caps capabilityFlags
	for _, raw := range []string{"unborn", "symrefs", "object-format=sha1"} {
		if err := caps.Set(raw); err != nil {
			t.Fatalf("set %q: %v", raw, err)
		}
	}
	if len(caps) != 3 {
		t.Fatalf("expected 3 capabilities, got %d", len(caps))
	}
	if caps[0].Name != "unborn" || caps[0].HasValue {
		t.Fatalf("first capability mismatch: %+v", caps[0])
	}
	if caps[2].Name != "object-format" || caps[2].Value != "sha1" {
		t.Fatalf("valued capability mismatch: %+v", caps[2])
	}
	if got := caps.String(); got != "unborn,symrefs,object-format=sha1" {
		t.Fatalf("flag rendering mismatch: %q", got)
	}
}

func TestCapabilityFlagsRejectEmpty(t *testing.T) {
	var caps capabilityFlags
	if err := caps.Set("  "); err == nil {
		t.Fatalf("expected error for blank capability")
	}
}
