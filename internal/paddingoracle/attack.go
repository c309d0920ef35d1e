package paddingoracle

import (
	"context"
	"time"

	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// BlockSize is the CBC block size the attack operates on.
const BlockSize = 16

// QueryFunc tests a batch of up to MaxGuesses candidate blocks against
// the oracle for a single target ciphertext block and reports which
// guesses produced valid PKCS#7 padding. DecryptBlock depends only on
// this function, not on the network, so the attack algorithm can be
// exercised against a fake oracle in tests.
type QueryFunc func(guesses [][16]byte) ([]bool, error)

// DecryptBlock recovers the 16-byte plaintext of one ciphertext block
// given the previous ciphertext block (or the IV, for the first
// block) and a query function bound to a session already targeting
// this block, working from the last byte to the first per the
// standard CBC padding-oracle attack.
func DecryptBlock(prevBlock [16]byte, query QueryFunc) ([16]byte, error) {
	var pt [16]byte

	for p := 15; p >= 0; p-- {
		padVal := byte(16 - p)

		guesses := make([][16]byte, 256)
		for guess := 0; guess < 256; guess++ {
			var q [16]byte
			for i := 15; i > p; i-- {
				q[i] = pt[i] ^ padVal ^ prevBlock[i]
			}
			q[p] = byte(guess) ^ padVal ^ prevBlock[p]
			guesses[guess] = q
		}

		results, err := query(guesses)
		if err != nil {
			return [16]byte{}, err
		}

		var candidates []int
		for i, ok := range results {
			if ok {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return [16]byte{}, kerr.New(kerr.OracleProtocol, "paddingoracle: no valid padding candidate at byte index %d", p)
		}

		selected := candidates[0]
		if len(candidates) > 1 {
			flipIndex := p - 1
			if p == 0 {
				flipIndex = 1
			}
			found := false
			for _, candidate := range candidates {
				var q [16]byte
				for i := 15; i > p; i-- {
					q[i] = pt[i] ^ padVal ^ prevBlock[i]
				}
				q[p] = byte(candidate) ^ padVal ^ prevBlock[p]
				q[flipIndex] ^= 0xFF

				results, err := query([][16]byte{q})
				if err != nil {
					return [16]byte{}, err
				}
				if results[0] {
					selected = candidate
					found = true
					break
				}
			}
			if !found {
				return [16]byte{}, kerr.New(kerr.OracleProtocol, "paddingoracle: ambiguous padding candidates at byte index %d did not resolve", p)
			}
		}
		pt[p] = byte(selected)
	}
	return pt, nil
}

func splitBlocks(ciphertext []byte) ([][16]byte, error) {
	if len(ciphertext)%16 != 0 {
		return nil, kerr.New(kerr.Encoding, "paddingoracle: ciphertext length %d is not a multiple of 16", len(ciphertext))
	}
	var blocks [][16]byte
	for i := 0; i < len(ciphertext); i += 16 {
		var b [16]byte
		copy(b[:], ciphertext[i:i+16])
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Attack recovers the full plaintext of ciphertext by opening one
// oracle session per block against addr, re-sending keyID on every
// session (sessions are single-block and stateful): the first block
// is decrypted against iv, every later block against the ciphertext
// block before it.
func Attack(ctx context.Context, addr string, keyID uint16, timeout time.Duration, iv [16]byte, ciphertext []byte) ([]byte, error) {
	blocks, err := splitBlocks(ciphertext)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, 0, len(blocks)*16)
	prevBlock := iv
	for _, block := range blocks {
		session, err := Dial(ctx, addr, keyID, timeout)
		if err != nil {
			return nil, err
		}
		if err := session.SendBlock(block); err != nil {
			session.Close()
			return nil, err
		}

		pt, err := DecryptBlock(prevBlock, session.TestGuesses)
		session.Close()
		if err != nil {
			return nil, err
		}
		plaintext = append(plaintext, pt[:]...)
		prevBlock = block
	}
	return plaintext, nil
}
