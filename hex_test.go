package rsp

import "testing"

func TestDecodeHexUint64(t *testing.T) {
	cases := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0", 0, false},
		{"ff", 0xff, false},
		{"DEADBEEF", 0xdeadbeef, false},
		{"", 0, true},
		{"zz", 0, true},
	}

	for _, c := range cases {
		got, err := decodeHexUint64([]byte(c.in))
		if c.wantErr {
			if err == nil {
				t.Errorf("decodeHexUint64(%q): expected error, got %x", c.in, got)
			}

			continue
		}

		if err != nil {
			t.Errorf("decodeHexUint64(%q): unexpected error %v", c.in, err)
			continue
		}

		if got != c.want {
			t.Errorf("decodeHexUint64(%q) = %x, want %x", c.in, got, c.want)
		}
	}
}

func TestDecodeHexBufInPlaceEven(t *testing.T) {
	buf := []byte("48656c6c6f")

	got, err := decodeHexBufInPlace(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(got) != "Hello" {
		t.Errorf("got %q, want %q", got, "Hello")
	}
}

func TestDecodeHexBufInPlaceOdd(t *testing.T) {
	// "abc" -> first nybble 'a' is the high-zero byte 0x0a, then "bc" -> 0xbc.
	buf := []byte("abc")

	got, err := decodeHexBufInPlace(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x0a, 0xbc}
	if string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeBinBufInPlaceEscape(t *testing.T) {
	// '}' followed by 0x23 decodes to 0x23 ^ 0x20, the literal byte 0x03.
	buf := []byte{'a', '}', 0x23, 'b'}

	got, err := decodeBinBufInPlace(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{'a', 0x03, 'b'}
	if string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEncodeDecodeHexStringRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x7f, 0xff, 0x10}

	enc := encodeHexString(data)

	dec, err := decodeHexString(enc)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if string(dec) != string(data) {
		t.Errorf("round trip mismatch: got %v, want %v", dec, data)
	}
}
