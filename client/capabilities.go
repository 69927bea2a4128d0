package client

import (
	"bytes"
	"fmt"
	"strings"
)

// Capability is one advertised feature flag, optionally valued.
type Capability struct {
	Name     string
	Value    string
	HasValue bool
}

// Cap builds an unvalued capability, for Invoke argument lists.
func Cap(name string) Capability {
	return Capability{Name: name}
}

// CapValue builds a valued capability, for Invoke argument lists.
func CapValue(name, value string) Capability {
	return Capability{Name: name, Value: value, HasValue: true}
}

// token renders the capability the way it appears on the wire.
func (c Capability) token() string {
	if c.HasValue {
		return c.Name + "=" + c.Value
	}
	return c.Name
}

func parseCapabilityToken(tok string) Capability {
	if name, value, ok := strings.Cut(tok, "="); ok {
		return Capability{Name: name, Value: value, HasValue: true}
	}
	return Capability{Name: tok}
}

// Capabilities is the immutable, advertisement-ordered capability set
// produced by one handshake.
type Capabilities struct {
	caps []Capability
}

// CapabilitiesFromLine parses a V1 first advertisement line of the
// shape "<ref text>\0cap cap=value ...". It returns the parsed set and
// the ref text preceding the NUL.
func CapabilitiesFromLine(line []byte) (Capabilities, string, error) {
	refText, capText, ok := bytes.Cut(line, []byte{0})
	if !ok {
		return Capabilities{}, "", fmt.Errorf("%w: missing NUL separator", ErrCapabilities)
	}
	var caps []Capability
	for _, tok := range strings.Fields(string(capText)) {
		caps = append(caps, parseCapabilityToken(tok))
	}
	return Capabilities{caps: caps}, string(refText), nil
}

// CapabilitiesFromLines parses a V2 capability listing, one capability
// per line, in the given order.
func CapabilitiesFromLines(lines [][]byte) Capabilities {
	var caps []Capability
	for _, line := range lines {
		tok := strings.TrimSpace(string(line))
		if tok == "" {
			continue
		}
		caps = append(caps, parseCapabilityToken(tok))
	}
	return Capabilities{caps: caps}
}

// Get returns the named capability if advertised.
func (cs Capabilities) Get(name string) (Capability, bool) {
	for _, c := range cs.caps {
		if c.Name == name {
			return c, true
		}
	}
	return Capability{}, false
}

// Supports reports whether the named capability was advertised.
func (cs Capabilities) Supports(name string) bool {
	_, ok := cs.Get(name)
	return ok
}

// All returns the capabilities in advertisement order.
func (cs Capabilities) All() []Capability {
	out := make([]Capability, len(cs.caps))
	copy(out, cs.caps)
	return out
}

func (cs Capabilities) Len() int { return len(cs.caps) }
