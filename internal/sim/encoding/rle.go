package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of palette codes into base64(varint pairs).
// The pairs are (code, run_len) repeated. Used for the dense grid layers in
// snapshots and world files.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("code too large: %d", b)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(b))
		}
	}
	return out, nil
}

// EncodeRLE8 is the uint8 variant used for fluid layers.
func EncodeRLE8(vals []uint8) string {
	wide := make([]uint16, len(vals))
	for i, v := range vals {
		wide[i] = uint16(v)
	}
	return EncodeRLE(wide)
}

func DecodeRLE8(b64 string) ([]uint8, error) {
	wide, err := DecodeRLE(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, len(wide))
	for i, v := range wide {
		if v > 0xFF {
			return nil, fmt.Errorf("value too large for u8: %d", v)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

// EncodeRLE16s encodes signed 16-bit values (temperature layers) by
// zig-zagging into the unsigned codec.
func EncodeRLE16s(vals []int16) string {
	wide := make([]uint16, len(vals))
	for i, v := range vals {
		wide[i] = uint16((v << 1) ^ (v >> 15))
	}
	return EncodeRLE(wide)
}

func DecodeRLE16s(b64 string) ([]int16, error) {
	wide, err := DecodeRLE(b64)
	if err != nil {
		return nil, err
	}
	out := make([]int16, len(wide))
	for i, v := range wide {
		out[i] = int16(v>>1) ^ -int16(v&1)
	}
	return out, nil
}
