package gcm

import (
	"bytes"
	"encoding/hex"
	weak "math/rand"
	"testing"
	"time"

	"github.com/rbnschffmchr/kauma/internal/field128"
)

func init() { weak.Seed(time.Now().UnixNano()) }

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// TestEncryptNISTTestCase1 checks NIST GCM test case 1: all-zero key,
// empty plaintext and AAD, 96-bit all-zero nonce.
func TestEncryptNISTTestCase1(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 12)

	res, err := Encrypt(key, nonce, nil, nil, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	want := mustHex(t, "58e2fccefa7e3061367f1d57a4e7455a")
	if !bytes.Equal(res.Tag[:], want) {
		t.Errorf("tag = %x, want %x", res.Tag, want)
	}
	if len(res.Ciphertext) != 0 {
		t.Errorf("ciphertext = %x, want empty", res.Ciphertext)
	}
}

// TestEncryptNISTTestCase2 checks NIST GCM test case 2: all-zero key,
// a single all-zero plaintext block, 96-bit all-zero nonce.
func TestEncryptNISTTestCase2(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 12)
	plaintext := make([]byte, 16)

	res, err := Encrypt(key, nonce, plaintext, nil, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	wantC := mustHex(t, "0388dace60b6a392f328c2b971b2fe78")
	wantT := mustHex(t, "ab6e47d42cec13bdf53a67b21257bddf")
	if !bytes.Equal(res.Ciphertext, wantC) {
		t.Errorf("ciphertext = %x, want %x", res.Ciphertext, wantC)
	}
	if !bytes.Equal(res.Tag[:], wantT) {
		t.Errorf("tag = %x, want %x", res.Tag, wantT)
	}
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	weak.Read(b)
	return b
}

func TestRoundTrip(t *testing.T) {
	for i := 0; i < 10; i++ {
		key := randomBytes(16)
		nonce := randomBytes(12)
		plaintext := randomBytes(weak.Intn(80))
		ad := randomBytes(weak.Intn(40))

		res, err := Encrypt(key, nonce, plaintext, ad, field128.P1)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decrypt(key, nonce, res.Ciphertext, res.Tag, ad, field128.P1)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %x, want %x", got, plaintext)
		}
	}
}

func TestDecryptRejectsBadTag(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 12)
	res, err := Encrypt(key, nonce, []byte("hello, world!!!!"), nil, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	badTag := res.Tag
	badTag[0] ^= 0xFF
	if _, err := Decrypt(key, nonce, res.Ciphertext, badTag, nil, field128.P1); err == nil {
		t.Error("Decrypt with corrupted tag succeeded, want error")
	}
}

func TestNonStandardNonceLength(t *testing.T) {
	key := randomBytes(16)
	nonce := randomBytes(8) // not 96 bits: exercises the GHASH-derived Y0 path
	plaintext := randomBytes(33)

	res, err := Encrypt(key, nonce, plaintext, nil, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decrypt(key, nonce, res.Ciphertext, res.Tag, nil, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: got %x, want %x", got, plaintext)
	}
}
