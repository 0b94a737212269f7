package wire_test

import (
	"bytes"
	"testing"

	"github.com/ugv-zrf/zrf/wire"
)

func TestRoundTripScalars(t *testing.T) {
	b := wire.Pack(int32(-7), uint64(42), "hello", true, float64(3.5))
	var i int32
	var u uint64
	var s string
	var bl bool
	var f float64
	wire.UnpackTuple(b, &i, &u, &s, &bl, &f)
	if i != -7 || u != 42 || s != "hello" || !bl || f != 3.5 {
		t.Fatalf("round trip mismatch: %d %d %q %v %f", i, u, s, bl, f)
	}
}

func TestRoundTripBytes(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	b := wire.Pack(payload)
	out := wire.Unpack[[]byte](b)
	if !bytes.Equal(out, payload) {
		t.Fatalf("expected %v, got %v", payload, out)
	}
}

func TestRoundTripSliceOfInt(t *testing.T) {
	in := []int32{10, 20, 30}
	b := wire.Pack(in)
	out := wire.Unpack[[]int32](b)
	if len(out) != len(in) {
		t.Fatalf("expected len %d, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: expected %d got %d", i, in[i], out[i])
		}
	}
}

// Concatenation law: Pack(a, b) == append(Pack(a), Pack(b)...).
func TestConcatenationLaw(t *testing.T) {
	a := wire.Pack(int32(1))
	bb := wire.Pack("two")
	combined := wire.Pack(int32(1), "two")
	want := append(append([]byte{}, a...), bb...)
	if !bytes.Equal(combined, want) {
		t.Fatalf("concatenation law violated: got %v want %v", combined, want)
	}
}

func TestPackRequestUnpackRequest(t *testing.T) {
	payload := wire.Pack(int32(5), int32(4))
	env := wire.PackRequest(wire.ReqID(99), payload)
	id, p := wire.UnpackRequest(env)
	if id != 99 {
		t.Fatalf("expected id 99, got %d", id)
	}
	if !bytes.Equal(p, payload) {
		t.Fatalf("expected payload %v, got %v", payload, p)
	}
}

func TestUnpackCheckedShortBuffer(t *testing.T) {
	_, err := wire.UnpackChecked[int64]([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected a decode error for a short buffer")
	}
}

func TestUnpackCheckedOK(t *testing.T) {
	b := wire.Pack(int64(123))
	v, err := wire.UnpackChecked[int64](b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 123 {
		t.Fatalf("expected 123, got %d", v)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	b := []byte("the quick brown fox")
	if wire.Checksum(b) != wire.Checksum(b) {
		t.Fatal("checksum should be deterministic for identical input")
	}
	if wire.Checksum(b) == wire.Checksum([]byte("different")) {
		t.Fatal("checksum collided on clearly different input")
	}
}
