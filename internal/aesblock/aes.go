// Package aesblock implements the AES-128 block cipher (key schedule,
// SubBytes, ShiftRows, MixColumns, AddRoundKey) from first principles,
// rather than delegating to crypto/aes. GCM (internal/gcm) needs only
// single-block encryption under a fixed key, which is all this package
// exposes.
package aesblock

import "github.com/rbnschffmchr/kauma/internal/kerr"

// BlockSize is the AES block size in bytes (128 bits).
const BlockSize = 16

// KeySize is the AES-128 key size in bytes.
const KeySize = 16

const numRounds = 10

// Cipher is an AES-128 key schedule, ready to encrypt 16-byte blocks.
type Cipher struct {
	roundKeys [numRounds + 1][16]byte
}

// New derives the round-key schedule from a 16-byte AES-128 key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, kerr.New(kerr.Domain, "aesblock: key must be %d bytes, got %d", KeySize, len(key))
	}
	c := &Cipher{}
	c.expandKey(key)
	return c, nil
}

// Encrypt encrypts the single 16-byte block src into dst. src and dst
// may overlap or alias.
func (c *Cipher) Encrypt(dst, src []byte) error {
	if len(src) != BlockSize || len(dst) != BlockSize {
		return kerr.New(kerr.Domain, "aesblock: block must be %d bytes", BlockSize)
	}
	var state [16]byte
	copy(state[:], src)

	addRoundKey(&state, &c.roundKeys[0])
	for round := 1; round < numRounds; round++ {
		subBytes(&state)
		shiftRows(&state)
		mixColumns(&state)
		addRoundKey(&state, &c.roundKeys[round])
	}
	subBytes(&state)
	shiftRows(&state)
	addRoundKey(&state, &c.roundKeys[numRounds])

	copy(dst, state[:])
	return nil
}

// EncryptBlock is a convenience wrapper returning a fresh 16-byte
// ciphertext block.
func (c *Cipher) EncryptBlock(src []byte) ([16]byte, error) {
	var out [16]byte
	if err := c.Encrypt(out[:], src); err != nil {
		return out, err
	}
	return out, nil
}

func addRoundKey(state *[16]byte, key *[16]byte) {
	for i := range state {
		state[i] ^= key[i]
	}
}

func subBytes(state *[16]byte) {
	for i := range state {
		state[i] = sbox[state[i]]
	}
}

// shiftRows cyclically shifts row r of the column-major state left by
// r positions: state is laid out state[col*4+row].
func shiftRows(state *[16]byte) {
	var out [16]byte
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[col*4+row] = state[((col+row)%4)*4+row]
		}
	}
	*state = out
}

func mixColumns(state *[16]byte) {
	for col := 0; col < 4; col++ {
		a0, a1, a2, a3 := state[col*4], state[col*4+1], state[col*4+2], state[col*4+3]
		state[col*4] = gmul(a0, 2) ^ gmul(a1, 3) ^ a2 ^ a3
		state[col*4+1] = a0 ^ gmul(a1, 2) ^ gmul(a2, 3) ^ a3
		state[col*4+2] = a0 ^ a1 ^ gmul(a2, 2) ^ gmul(a3, 3)
		state[col*4+3] = gmul(a0, 3) ^ a1 ^ a2 ^ gmul(a3, 2)
	}
}

// gmul multiplies two bytes in GF(2^8) modulo the AES polynomial
// x^8+x^4+x^3+x+1 (0x11B).
func gmul(a, b byte) byte {
	var result byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			result ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1B
		}
		b >>= 1
	}
	return result
}

func (c *Cipher) expandKey(key []byte) {
	var w [4 * (numRounds + 1)][4]byte
	for i := 0; i < 4; i++ {
		copy(w[i][:], key[i*4:i*4+4])
	}
	rc := byte(1)
	for i := 4; i < len(w); i++ {
		temp := w[i-1]
		if i%4 == 0 {
			temp = [4]byte{temp[1], temp[2], temp[3], temp[0]} // RotWord
			for j := range temp {
				temp[j] = sbox[temp[j]] // SubWord
			}
			temp[0] ^= rc
			rc = gmul(rc, 2)
		}
		for j := 0; j < 4; j++ {
			w[i][j] = w[i-4][j] ^ temp[j]
		}
	}
	for round := 0; round <= numRounds; round++ {
		for col := 0; col < 4; col++ {
			copy(c.roundKeys[round][col*4:col*4+4], w[round*4+col][:])
		}
	}
}
