package gitproto

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/pktline"
)

func TestDaemonRequestFormat(t *testing.T) {
	cases := []struct {
		name        string
		service     client.Service
		path        string
		virtualHost string
		version     client.Protocol
		extra       []string
		want        string
	}{
		{
			name:    "v1 bare",
			service: client.UploadPack,
			path:    "/repo.git",
			version: client.V1,
			want:    "git-upload-pack /repo.git\x00",
		},
		{
			name:        "v1 with host",
			service:     client.ReceivePack,
			path:        "/repo.git",
			virtualHost: "example.com",
			version:     client.V1,
			want:        "git-receive-pack /repo.git\x00host=example.com\x00",
		},
		{
			name:        "v2 with host",
			service:     client.UploadPack,
			path:        "/repo.git",
			virtualHost: "example.com",
			version:     client.V2,
			want:        "git-upload-pack /repo.git\x00host=example.com\x00\x00version=2\x00",
		},
		{
			name:    "extra parameters after version",
			service: client.UploadPack,
			path:    "/repo.git",
			version: client.V2,
			extra:   []string{"key=value"},
			want:    "git-upload-pack /repo.git\x00\x00version=2\x00key=value\x00",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := daemonRequest(tc.service, tc.path, tc.virtualHost, tc.version, tc.extra)
			if string(got) != tc.want {
				t.Fatalf("request payload mismatch:\n got %q\nwant %q", got, tc.want)
			}
		})
	}
}

func TestConnectionDaemonHandshakeV2(t *testing.T) {
	server := &bytes.Buffer{}
	_ = pktline.WriteTextPacket(server, []byte("version 2"))
	_ = pktline.WriteTextPacket(server, []byte("agent=git/2.40.0"))
	_ = pktline.WriteTextPacket(server, []byte("ls-refs"))
	_ = pktline.WriteFlush(server)

	wire := &bytes.Buffer{}
	c := NewConnection(server, wire, nil, client.V2, "/repo.git", ModeDaemon, Options{VirtualHost: "example.com"})

	resp, err := c.Handshake(client.UploadPack)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if resp.ActualProtocol != client.V2 || resp.Refs != nil {
		t.Fatalf("negotiation mismatch: actual=%v refs=%v", resp.ActualProtocol, resp.Refs)
	}
	if !resp.Capabilities.Supports("ls-refs") {
		t.Fatalf("missing ls-refs capability")
	}

	p, err := pktline.NewReader(wire).ReadPacket()
	if err != nil {
		t.Fatalf("read back service request: %v", err)
	}
	want := "git-upload-pack /repo.git\x00host=example.com\x00\x00version=2\x00"
	if string(p.Payload) != want {
		t.Fatalf("service request mismatch:\n got %q\nwant %q", p.Payload, want)
	}
}

func TestConnectionDowngradeToV1(t *testing.T) {
	// A server that ignores the version parameter answers the V2
	// request with a plain V1 ref advertisement. That is a successful
	// handshake, not an error.
	server := &bytes.Buffer{}
	_ = pktline.WriteTextPacket(server, []byte("7c4f1f1a HEAD\x00multi_ack agent=git/2.28.0"))
	_ = pktline.WriteTextPacket(server, []byte("7c4f1f1a refs/heads/main"))
	_ = pktline.WriteFlush(server)

	c := NewConnection(server, io.Discard, nil, client.V2, "/repo.git", ModeProcess, Options{})
	resp, err := c.Handshake(client.UploadPack)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if resp.ActualProtocol != client.V1 {
		t.Fatalf("expected downgrade to V1, got %v", resp.ActualProtocol)
	}
	if resp.Refs == nil {
		t.Fatalf("downgraded handshake must expose the ref stream")
	}
	refs, err := io.ReadAll(resp.Refs)
	if err != nil {
		t.Fatalf("drain refs: %v", err)
	}
	if string(refs) != "7c4f1f1a HEAD\n7c4f1f1a refs/heads/main\n" {
		t.Fatalf("ref stream mismatch: %q", refs)
	}
}

func TestConnectionRequestBeforeHandshake(t *testing.T) {
	c := NewConnection(bytes.NewReader(nil), io.Discard, nil, client.V2, "/repo.git", ModeProcess, Options{})
	if _, err := c.Request(client.WriteBinary, nil); !errors.Is(err, client.ErrHandshakeIncomplete) {
		t.Fatalf("expected ErrHandshakeIncomplete, got %v", err)
	}
}

func TestConnectionHandshakeThenInvoke(t *testing.T) {
	server := &bytes.Buffer{}
	_ = pktline.WriteTextPacket(server, []byte("version 2"))
	_ = pktline.WriteTextPacket(server, []byte("agent=git/2.40.0"))
	_ = pktline.WriteFlush(server)
	// ls-refs response section.
	_ = pktline.WriteTextPacket(server, []byte("7c4f1f1a refs/heads/main"))
	_ = pktline.WriteFlush(server)

	wire := &bytes.Buffer{}
	c := NewConnection(server, wire, nil, client.V2, "/repo.git", ModeProcess, Options{})
	if _, err := c.Handshake(client.UploadPack); err != nil {
		t.Fatalf("handshake: %v", err)
	}

	r, err := client.Invoke(c, "ls-refs", []client.Capability{client.CapValue("agent", "example/1.0")}, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}

	rd := pktline.NewReader(wire)
	for _, want := range []string{"command=ls-refs\n", "agent=example/1.0\n"} {
		p, err := rd.ReadPacket()
		if err != nil || p.Kind != pktline.PacketData || string(p.Payload) != want {
			t.Fatalf("request line mismatch: got %q kind=%v err=%v, want %q", p.Payload, p.Kind, err, want)
		}
	}
	if p, err := rd.ReadPacket(); err != nil || p.Kind != pktline.PacketFlush {
		t.Fatalf("expected request flush, got kind=%v err=%v", p.Kind, err)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if string(body) != "7c4f1f1a refs/heads/main\n" {
		t.Fatalf("response mismatch: %q", body)
	}
}
