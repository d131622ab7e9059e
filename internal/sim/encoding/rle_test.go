package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	cases := [][]uint16{
		{},
		{0},
		{1, 1, 1, 1, 1},
		{0, 0, 3, 3, 3, 7, 0, 0, 0, 0},
		{65535, 0, 65535},
	}
	for _, in := range cases {
		enc := EncodeRLE(in)
		out, err := DecodeRLE(enc)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out) != len(in) {
			t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
		}
		for i := range in {
			if out[i] != in[i] {
				t.Fatalf("mismatch at %d: %d vs %d", i, out[i], in[i])
			}
		}
	}
}

func TestRLE_SignedRoundTrip(t *testing.T) {
	in := []int16{-50, -1, 0, 20, 20, 20, 1200, -50}
	out, err := DecodeRLE16s(EncodeRLE16s(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: %d vs %d", i, out[i], in[i])
		}
	}
}

func TestRLE8_RejectsWideValues(t *testing.T) {
	enc := EncodeRLE([]uint16{300})
	if _, err := DecodeRLE8(enc); err == nil {
		t.Fatal("expected error for out-of-range u8")
	}
}
