package xport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v3"

	"github.com/ugv-zrf/zrf/zerr"
)

// TransmissionPolicy turns one application payload into the frame set a
// Socket sends, and back. It never touches a Socket directly, so it can
// be unit-tested as a pure function and reused identically by stream,
// pipeline, rpcclient, and rpcserver.
type TransmissionPolicy interface {
	Encode(payload []byte) [][]byte
	Decode(frames [][]byte) ([]byte, error)
}

// RawPolicy sends the payload as a single frame, with no length
// bookkeeping beyond what the transport's own frame header provides.
type RawPolicy struct{}

func (RawPolicy) Encode(payload []byte) [][]byte { return [][]byte{payload} }

func (RawPolicy) Decode(frames [][]byte) ([]byte, error) {
	if len(frames) != 1 {
		return nil, zerr.NewProtocolError(fmt.Sprintf("raw policy expects exactly 1 frame, got %d", len(frames)))
	}
	return frames[0], nil
}

// SizePrefixedPolicy sends a 4-byte little-endian length frame (MORE
// set) followed by the payload frame. MaxSize, if non-zero, rejects an
// oversized declared length before the payload is trusted.
type SizePrefixedPolicy struct {
	MaxSize uint32
}

func (p SizePrefixedPolicy) Encode(payload []byte) [][]byte {
	sz := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz, uint32(len(payload)))
	return [][]byte{sz, payload}
}

func (p SizePrefixedPolicy) Decode(frames [][]byte) ([]byte, error) {
	if len(frames) != 2 {
		return nil, zerr.NewProtocolError(fmt.Sprintf("size-prefixed policy expects 2 frames, got %d", len(frames)))
	}
	if len(frames[0]) != 4 {
		return nil, zerr.NewProtocolError("size-prefixed policy's length frame is not 4 bytes")
	}
	sz := binary.LittleEndian.Uint32(frames[0])
	if p.MaxSize > 0 && sz > p.MaxSize {
		return nil, zerr.NewProtocolError("declared payload size exceeds the configured maximum")
	}
	if int(sz) != len(frames[1]) {
		return nil, zerr.NewProtocolError("declared payload size does not match the received frame length")
	}
	return frames[1], nil
}

const (
	compressTagRaw        byte = 0
	compressTagLZ4        byte = 1
	defaultCompressMinLen      = 256
)

// CompressedPolicy is SizePrefixedPolicy plus an lz4 compression pass:
// payloads shorter than MinSize are sent uncompressed (compression
// overhead isn't worth it below a few hundred bytes), everything else
// is lz4-compressed, tagged with a single leading byte so Decode can
// tell which path produced it.
type CompressedPolicy struct {
	Inner   SizePrefixedPolicy
	MinSize int
}

func (p CompressedPolicy) minSize() int {
	if p.MinSize > 0 {
		return p.MinSize
	}
	return defaultCompressMinLen
}

func (p CompressedPolicy) Encode(payload []byte) [][]byte {
	if len(payload) < p.minSize() {
		return p.Inner.Encode(append([]byte{compressTagRaw}, payload...))
	}
	var buf bytes.Buffer
	buf.WriteByte(compressTagLZ4)
	w := lz4.NewWriter(&buf)
	_, _ = w.Write(payload)
	_ = w.Close()
	return p.Inner.Encode(buf.Bytes())
}

func (p CompressedPolicy) Decode(frames [][]byte) ([]byte, error) {
	raw, err := p.Inner.Decode(frames)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, zerr.NewProtocolError("compressed policy received an empty frame")
	}
	tag, body := raw[0], raw[1:]
	switch tag {
	case compressTagRaw:
		return body, nil
	case compressTagLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, zerr.NewProtocolError("lz4 decompress: " + err.Error())
		}
		return out, nil
	default:
		return nil, zerr.NewProtocolError("unrecognized compression tag")
	}
}
