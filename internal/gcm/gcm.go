// Package gcm implements AES-128-GCM (encrypt, decrypt, GHASH) as a
// self-contained primitive: it calls internal/aesblock once per block
// for the key schedule and counter-mode keystream, and performs GHASH
// itself over internal/field128 rather than delegating authenticated
// encryption to a library GCM mode. The per-message GHASH key H and
// length block L are exposed on the result because the nonce-reuse
// attack (internal/gcmcrack) needs them.
package gcm

import (
	"encoding/binary"

	"github.com/rbnschffmchr/kauma/internal/aesblock"
	"github.com/rbnschffmchr/kauma/internal/field128"
	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// BlockSize is the GCM/AES block size in bytes.
const BlockSize = 16

// EncryptResult carries the outputs of Encrypt, including the
// internal GHASH key H and length block L that downstream tooling
// (the nonce-reuse cracker) needs.
type EncryptResult struct {
	Ciphertext []byte
	Tag        [16]byte
	H          [16]byte
	L          [16]byte
}

func splitPadded(b []byte) [][16]byte {
	var blocks [][16]byte
	for i := 0; i < len(b); i += 16 {
		var block [16]byte
		end := i + 16
		if end > len(b) {
			end = len(b)
		}
		copy(block[:], b[i:end])
		blocks = append(blocks, block)
	}
	return blocks
}

// LengthBlock builds GCM's 16-byte length block: the 64-bit
// big-endian bit-length of A followed by the 64-bit big-endian
// bit-length of C.
func LengthBlock(lenA, lenC int) [16]byte {
	var l [16]byte
	binary.BigEndian.PutUint64(l[0:8], uint64(lenA)*8)
	binary.BigEndian.PutUint64(l[8:16], uint64(lenC)*8)
	return l
}

// GHASH computes GCM's authentication hash of (A, C) under key H,
// returning the final state and the length block that terminated it.
func GHASH(h [16]byte, a, c []byte, mod field128.Modulus) ([16]byte, [16]byte) {
	hElem := field128.Decode(field128.Block(h))
	x := field128.Zero

	step := func(block [16]byte) {
		blockElem := field128.Decode(field128.Block(block))
		x = field128.Add(x, blockElem)
		x = field128.Mul(x, hElem, mod)
	}
	for _, block := range splitPadded(a) {
		step(block)
	}
	for _, block := range splitPadded(c) {
		step(block)
	}
	l := LengthBlock(len(a), len(c))
	step(l)

	return field128.Encode(x), l
}

func inc32(block [16]byte) [16]byte {
	ctr := binary.BigEndian.Uint32(block[12:16])
	out := block
	binary.BigEndian.PutUint32(out[12:16], ctr+1)
	return out
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// ctrCrypt XORs buf against the AES-CTR keystream starting at the
// block following y0 and returns the result in a new slice; buf is
// not modified.
func ctrCrypt(c *aesblock.Cipher, y0 [16]byte, buf []byte) ([]byte, error) {
	out := make([]byte, len(buf))
	y := inc32(y0)
	for i := 0; i < len(buf); i += 16 {
		ks, err := c.EncryptBlock(y[:])
		if err != nil {
			return nil, err
		}
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		n := end - i
		xorBytes(out[i:end], buf[i:end], ks[:n])
		y = inc32(y)
	}
	return out, nil
}

// deriveY0 computes GCM's initial counter block: nonce||1 for a
// 96-bit nonce, or GHASH(H, "", nonce) otherwise.
func deriveY0(h [16]byte, nonce []byte, mod field128.Modulus) [16]byte {
	if len(nonce) == 12 {
		var y0 [16]byte
		copy(y0[:12], nonce)
		y0[15] = 1
		return y0
	}
	s, _ := GHASH(h, nil, nonce, mod)
	return s
}

// Encrypt performs AES-128-GCM encryption, computing H, Y0, the
// ciphertext, the authentication tag, and the length block.
func Encrypt(key, nonce, plaintext, ad []byte, mod field128.Modulus) (EncryptResult, error) {
	cipher, err := aesblock.New(key)
	if err != nil {
		return EncryptResult{}, err
	}
	h, err := cipher.EncryptBlock(make([]byte, BlockSize))
	if err != nil {
		return EncryptResult{}, err
	}
	y0 := deriveY0(h, nonce, mod)

	ciphertext, err := ctrCrypt(cipher, y0, plaintext)
	if err != nil {
		return EncryptResult{}, err
	}

	s, l := GHASH(h, ad, ciphertext, mod)
	ey0, err := cipher.EncryptBlock(y0[:])
	if err != nil {
		return EncryptResult{}, err
	}
	var tag [16]byte
	xorBytes(tag[:], ey0[:], s[:])

	return EncryptResult{
		Ciphertext: ciphertext,
		Tag:        tag,
		H:          h,
		L:          l,
	}, nil
}

// Decrypt performs AES-128-GCM decryption, verifying the tag before
// returning the plaintext. A tag mismatch is a kerr.Domain error.
func Decrypt(key, nonce, ciphertext []byte, tag [16]byte, ad []byte, mod field128.Modulus) ([]byte, error) {
	cipher, err := aesblock.New(key)
	if err != nil {
		return nil, err
	}
	h, err := cipher.EncryptBlock(make([]byte, BlockSize))
	if err != nil {
		return nil, err
	}
	y0 := deriveY0(h, nonce, mod)

	s, _ := GHASH(h, ad, ciphertext, mod)
	ey0, err := cipher.EncryptBlock(y0[:])
	if err != nil {
		return nil, err
	}
	var want [16]byte
	xorBytes(want[:], ey0[:], s[:])
	if want != tag {
		return nil, kerr.New(kerr.Domain, "gcm: authentication failed")
	}

	return ctrCrypt(cipher, y0, ciphertext)
}
