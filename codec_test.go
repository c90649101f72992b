package bluefrog

import (
	"bytes"
	"testing"
)

// TestCodecInvolution checks I1/P1: decoding the encoding yields the
// original for a spread of keys and payload lengths.
func TestCodecInvolution(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x00, 0x7F, 0x80},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		bytes.Repeat([]byte{0xAB}, 17),
	}
	for _, key := range []byte{0x00, 0x01, 0x42, 0x7F, 0xFF} {
		for _, data := range payloads {
			enc := EncDec(data, key)
			dec := EncDec(enc, key)
			if !bytes.Equal(dec, data) {
				t.Fatalf("key %#02x: EncDec(EncDec(d,k),k) = %x, want %x", key, dec, data)
			}
		}
	}
}

// TestCodecChangesInput documents that encoding is not a no-op (guards
// against an accidental identity implementation).
func TestCodecChangesInput(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	enc := EncDec(data, 0x55)
	if bytes.Equal(enc, data) {
		t.Fatal("EncDec returned input unchanged")
	}
}

func TestCodecPreservesLength(t *testing.T) {
	for n := 0; n < 32; n++ {
		data := make([]byte, n)
		if got := len(EncDec(data, 0x12)); got != n {
			t.Fatalf("EncDec changed length: got %d, want %d", got, n)
		}
	}
}
