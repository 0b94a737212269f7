package xport

import (
	"encoding/binary"
	"io"
)

// Every frame on the wire is a 1-byte MORE flag followed by a 4-byte
// little-endian length and that many payload bytes. This is the
// physical link framing; the application-visible "MORE" semantics of
// Send/Recv and the payload-level TransmissionPolicy are both built on
// top of it.
const frameHeaderSize = 5

func writeFrames(w io.Writer, frames [][]byte) error {
	for i, f := range frames {
		more := byte(0)
		if i != len(frames)-1 {
			more = 1
		}
		var hdr [frameHeaderSize]byte
		hdr[0] = more
		binary.LittleEndian.PutUint32(hdr[1:], uint32(len(f)))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if len(f) > 0 {
			if _, err := w.Write(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func readFrames(r io.Reader) ([][]byte, error) {
	var frames [][]byte
	var hdr [frameHeaderSize]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}
		more := hdr[0]
		n := binary.LittleEndian.Uint32(hdr[1:])
		buf := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
		}
		frames = append(frames, buf)
		if more == 0 {
			return frames, nil
		}
	}
}
