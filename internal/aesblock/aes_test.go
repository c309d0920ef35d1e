package aesblock

import (
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// TestEncryptZeroKeyZeroBlock checks the well-known vector
// AES_K(0^128) = 66e94bd4ef8a2c3b884cfa59ca342b2e for K = 0^128,
// which is also GCM test case 1's H value.
func TestEncryptZeroKeyZeroBlock(t *testing.T) {
	key := make([]byte, KeySize)
	c, err := New(key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.EncryptBlock(make([]byte, BlockSize))
	if err != nil {
		t.Fatal(err)
	}
	want := mustHex(t, "66e94bd4ef8a2c3b884cfa59ca342b2e")
	if hex.EncodeToString(got[:]) != hex.EncodeToString(want) {
		t.Errorf("AES_K(0) = %x, want %x", got, want)
	}
}

// TestEncryptFIPS197Vector checks the FIPS-197 Appendix B AES-128
// vector.
func TestEncryptFIPS197Vector(t *testing.T) {
	key := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plaintext := mustHex(t, "00112233445566778899aabbccddeeff")
	want := mustHex(t, "69c4e0d86a7b0430d8cdb78070b4c55a")

	c, err := New(key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.EncryptBlock(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(got[:]) != hex.EncodeToString(want) {
		t.Errorf("encrypt = %x, want %x", got, want)
	}
}

func TestNewRejectsBadKeySize(t *testing.T) {
	if _, err := New(make([]byte, 24)); err == nil {
		t.Error("New with 24-byte key succeeded, want error")
	}
}
