package xport_test

import (
	"bytes"
	"testing"

	"github.com/ugv-zrf/zrf/xport"
)

func TestRawPolicyRoundTrip(t *testing.T) {
	p := xport.RawPolicy{}
	payload := []byte("hello world")
	out, err := p.Decode(p.Encode(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("expected %q, got %q", payload, out)
	}
}

func TestSizePrefixedRoundTrip(t *testing.T) {
	p := xport.SizePrefixedPolicy{}
	payload := bytes.Repeat([]byte{0xAB}, 1024)
	out, err := p.Decode(p.Encode(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("round trip mismatch")
	}
}

func TestSizePrefixedRejectsOversize(t *testing.T) {
	p := xport.SizePrefixedPolicy{MaxSize: 10}
	frames := p.Encode(bytes.Repeat([]byte{1}, 100))
	if _, err := p.Decode(frames); err == nil {
		t.Fatal("expected an error for a payload exceeding MaxSize")
	}
}

// A size-prefixed receiver reading frames produced by the raw policy
// must fail with a protocol error rather than silently misinterpreting
// the payload as a length.
func TestPolicyMismatchIsDetected(t *testing.T) {
	raw := xport.RawPolicy{}
	sp := xport.SizePrefixedPolicy{}
	frames := raw.Encode([]byte("mismatched"))
	if _, err := sp.Decode(frames); err == nil {
		t.Fatal("expected a protocol error when decoding raw frames as size-prefixed")
	}
}

func TestCompressedPolicySmallPayloadStaysRaw(t *testing.T) {
	p := xport.CompressedPolicy{MinSize: 256}
	payload := []byte("short")
	out, err := p.Decode(p.Encode(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("round trip mismatch for small payload")
	}
}

// A compressed receiver fed frames from a plain size-prefixed sender
// sees an arbitrary first byte where its tag belongs; anything but a
// known tag is a framing violation.
func TestCompressedPolicyRejectsUnknownTag(t *testing.T) {
	sp := xport.SizePrefixedPolicy{}
	cp := xport.CompressedPolicy{}
	frames := sp.Encode([]byte{0xFF, 1, 2, 3})
	if _, err := cp.Decode(frames); err == nil {
		t.Fatal("expected a protocol error for an unrecognized compression tag")
	}
}

func TestCompressedPolicyLargePayloadCompresses(t *testing.T) {
	p := xport.CompressedPolicy{MinSize: 16}
	payload := bytes.Repeat([]byte("repeat-me-"), 100)
	frames := p.Encode(payload)
	out, err := p.Decode(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("round trip mismatch for large payload")
	}
}
