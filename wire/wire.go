// Package wire implements the serialization contract shared by every
// endpoint in this module: a small closed set of encoders selected by
// Go's type system, producing a fixed little-endian byte image with no
// type tags, so the encoding of a value never depends on how it arrived.
//
// Packing a sequence of values concatenates their individual encodings
// (Pack(a, b) == append(Pack(a), Pack(b)...)), and unpacking the same
// type sequence from that concatenation reproduces the original values.
// Decoding a short or malformed buffer is undefined for Unpack/UnpackTuple;
// use UnpackChecked when the buffer did not come from a trusted Pack call.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/OneOfOne/xxhash"

	"github.com/ugv-zrf/zrf/zerr"
)

// ByteArray is the raw encoded form passed across every socket boundary.
type ByteArray = []byte

// ReqID identifies one in-flight request. Zero is reserved to mean
// "no reply wanted" and is never allocated to a live request.
type ReqID uint64

// Pack encodes args in order and returns their concatenation.
func Pack(args ...any) ByteArray { return PackInto(nil, args...) }

// PackInto appends the encoding of args to buf and returns the result,
// reusing buf's backing array when it has capacity.
func PackInto(buf ByteArray, args ...any) ByteArray {
	for _, a := range args {
		buf = appendValue(buf, reflect.ValueOf(a))
	}
	return buf
}

func appendValue(buf []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(buf, 1)
		}
		return append(buf, 0)
	case reflect.Int8:
		return append(buf, byte(v.Int()))
	case reflect.Uint8:
		return append(buf, byte(v.Uint()))
	case reflect.Int16:
		return appendU16(buf, uint16(v.Int()))
	case reflect.Uint16:
		return appendU16(buf, uint16(v.Uint()))
	case reflect.Int32:
		return appendU32(buf, uint32(v.Int()))
	case reflect.Uint32:
		return appendU32(buf, uint32(v.Uint()))
	case reflect.Int, reflect.Int64:
		return appendU64(buf, uint64(v.Int()))
	case reflect.Uint, reflect.Uint64:
		return appendU64(buf, v.Uint())
	case reflect.Float32:
		return appendU32(buf, math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		return appendU64(buf, math.Float64bits(v.Float()))
	case reflect.String:
		s := v.String()
		buf = appendU32(buf, uint32(len(s)))
		return append(buf, s...)
	case reflect.Slice, reflect.Array:
		return appendSlice(buf, v)
	case reflect.Ptr:
		panic("wire: pointer values cannot be serialized")
	default:
		panic(fmt.Sprintf("wire: type %s cannot be serialized", v.Type()))
	}
}

func appendSlice(buf []byte, v reflect.Value) []byte {
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
		b := v.Bytes()
		buf = appendU32(buf, uint32(len(b)))
		return append(buf, b...)
	}
	n := v.Len()
	buf = appendU32(buf, uint32(n))
	for i := 0; i < n; i++ {
		buf = appendValue(buf, v.Index(i))
	}
	return buf
}

func appendU16(buf []byte, u uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], u)
	return append(buf, tmp[:]...)
}

func appendU32(buf []byte, u uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], u)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, u uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], u)
	return append(buf, tmp[:]...)
}

// Unpack decodes a single value of type T from the front of b. Behavior
// on a short or malformed buffer is undefined (may panic); see
// UnpackChecked for a bounded variant.
func Unpack[T any](b ByteArray) T {
	var out T
	unpackInto(b, reflect.ValueOf(&out).Elem())
	return out
}

// UnpackTuple decodes len(outs) values in order from the front of b into
// the pointers in outs, advancing through b as each value is consumed.
func UnpackTuple(b ByteArray, outs ...any) {
	for _, o := range outs {
		b = unpackInto(b, reflect.ValueOf(o).Elem())
	}
}

// DecodeInto decodes one value of v's type from the front of b into v
// and returns the remainder. It exists for callers like rmi that only
// know a value's type at runtime via reflection, and so cannot use the
// Unpack[T] generic form.
func DecodeInto(b ByteArray, v reflect.Value) ByteArray { return unpackInto(b, v) }

// EncodeValue appends v's encoding to buf. Like DecodeInto, this is the
// reflect-based counterpart to Pack for callers without a compile-time
// type.
func EncodeValue(buf ByteArray, v reflect.Value) ByteArray { return appendValue(buf, v) }

func unpackInto(b []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(b[0] != 0)
		return b[1:]
	case reflect.Int8:
		v.SetInt(int64(int8(b[0])))
		return b[1:]
	case reflect.Uint8:
		v.SetUint(uint64(b[0]))
		return b[1:]
	case reflect.Int16:
		v.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
		return b[2:]
	case reflect.Uint16:
		v.SetUint(uint64(binary.LittleEndian.Uint16(b)))
		return b[2:]
	case reflect.Int32:
		v.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
		return b[4:]
	case reflect.Uint32:
		v.SetUint(uint64(binary.LittleEndian.Uint32(b)))
		return b[4:]
	case reflect.Int, reflect.Int64:
		v.SetInt(int64(binary.LittleEndian.Uint64(b)))
		return b[8:]
	case reflect.Uint, reflect.Uint64:
		v.SetUint(binary.LittleEndian.Uint64(b))
		return b[8:]
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
		return b[4:]
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		return b[8:]
	case reflect.String:
		n := binary.LittleEndian.Uint32(b)
		b = b[4:]
		v.SetString(string(b[:n]))
		return b[n:]
	case reflect.Slice:
		return unpackSlice(b, v)
	default:
		panic(fmt.Sprintf("wire: type %s cannot be deserialized", v.Type()))
	}
}

func unpackSlice(b []byte, v reflect.Value) []byte {
	n := binary.LittleEndian.Uint32(b)
	b = b[4:]
	if v.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, n)
		copy(out, b[:n])
		v.SetBytes(out)
		return b[n:]
	}
	s := reflect.MakeSlice(v.Type(), int(n), int(n))
	for i := 0; i < int(n); i++ {
		b = unpackInto(b, s.Index(i))
	}
	v.Set(s)
	return b
}

// UnpackChecked is Unpack's bounded counterpart: instead of panicking on
// a short or malformed buffer it returns a zerr.DecodeError.
func UnpackChecked[T any](b ByteArray) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zerr.NewDecodeError(fmt.Sprintf("%T", out), fmt.Errorf("%v", r))
		}
	}()
	out = Unpack[T](b)
	return out, nil
}

// PackRequest encodes the (id, payload) envelope used by the async
// request/reply layer and RMI.
func PackRequest(id ReqID, payload ByteArray) ByteArray {
	buf := make([]byte, 0, 8+4+len(payload))
	return PackInto(buf, id, payload)
}

// UnpackRequest decodes an envelope produced by PackRequest. Behavior on
// a malformed buffer is undefined, matching Unpack.
func UnpackRequest(b ByteArray) (ReqID, ByteArray) {
	var id ReqID
	var payload ByteArray
	UnpackTuple(b, &id, &payload)
	return id, payload
}

// Checksum returns a fast, non-cryptographic hash of b, used to key
// subscriber-side de-duplication.
func Checksum(b []byte) uint64 {
	return xxhash.Checksum64S(b, 0)
}
