// Package wire frames archived snapshots with a generation so stale or
// foreign bytes can be detected before decoding.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version      byte = 1
	kindSnapshot byte = 1

	headerLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("remotecoll: corrupt snapshot")
	magic4     = [...]byte{'R', 'C', 'O', 'L'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// EncodeSnapshot frames payload as
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func EncodeSnapshot(gen uint64, payload []byte) []byte {
	out := make([]byte, headerLen, headerLen+len(payload))
	copy(out, magic4[:])
	out[4] = version
	out[5] = kindSnapshot
	binary.BigEndian.PutUint64(out[6:14], gen)
	binary.BigEndian.PutUint32(out[14:18], uint32(len(payload)))
	return append(out, payload...)
}

// DecodeSnapshot validates the frame and returns its generation and payload.
// The payload aliases b. Trailing bytes are treated as corruption.
func DecodeSnapshot(b []byte) (gen uint64, payload []byte, err error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindSnapshot {
		return 0, nil, ErrCorrupt
	}
	gen = binary.BigEndian.Uint64(b[6:14])
	vlen := uint64(binary.BigEndian.Uint32(b[14:18]))
	if vlen != uint64(len(b)-headerLen) {
		return 0, nil, ErrCorrupt
	}
	return gen, b[headerLen:], nil
}
