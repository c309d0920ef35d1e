// Package gcmcrack implements the GCM "forbidden attack": recovering
// the GHASH key H (and the encrypted counter-zero mask E(Y0)) from two
// or more messages authenticated under the same key and nonce, then
// using them to forge a valid tag for an attacker-chosen message.
package gcmcrack

import (
	weak "math/rand"

	"github.com/rbnschffmchr/kauma/internal/field128"
	"github.com/rbnschffmchr/kauma/internal/gfpoly"
	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// Message is one GCM-authenticated message observed under the reused
// (key, nonce) pair.
type Message struct {
	AD         []byte
	Ciphertext []byte
	Tag        [16]byte
}

func blocksOf(b []byte) [][16]byte {
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

func lengthBlock(lenA, lenC int) [16]byte {
	var l [16]byte
	putBE64 := func(dst []byte, v uint64) {
		for i := 0; i < 8; i++ {
			dst[7-i] = byte(v)
			v >>= 8
		}
	}
	putBE64(l[0:8], uint64(lenA)*8)
	putBE64(l[8:16], uint64(lenC)*8)
	return l
}

// formalGHASH builds the formal GHASH polynomial in the unknown H:
// S(H) = A_1 H^n + ... + C_m H^2 + L H, matching the Horner evaluation
// GHASH itself performs but leaving H symbolic.
func formalGHASH(ad, ciphertext []byte) gfpoly.Poly {
	var blocks [][16]byte
	blocks = append(blocks, blocksOf(ad)...)
	blocks = append(blocks, blocksOf(ciphertext)...)
	blocks = append(blocks, lengthBlock(len(ad), len(ciphertext)))

	coeffs := make([]field128.Elem, len(blocks)+1)
	for i, b := range blocks {
		coeffs[len(blocks)-i] = field128.Decode(field128.Block(b))
	}
	return gfpoly.New(coeffs)
}

// evalAt evaluates a formal GHASH polynomial at a concrete H.
func evalAt(s gfpoly.Poly, h field128.Elem, mod field128.Modulus) field128.Elem {
	acc := field128.Zero
	for i := len(s.Coeffs) - 1; i >= 0; i-- {
		if !acc.IsZero() {
			acc = field128.Mul(acc, h, mod)
		}
		acc = field128.Add(acc, s.Coeffs[i])
	}
	return acc
}

func xor16(a, b field128.Elem) field128.Elem {
	return field128.Add(a, b)
}

func blockFromElem(e field128.Elem) [16]byte {
	return field128.Encode(e)
}

func xorBlocks(a, b [16]byte) [16]byte {
	var out [16]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// buildF forms F = S1(H) + S2(H) + (tag1 xor tag2) as a polynomial in
// H, then makes it monic. Any H satisfying the two messages' GHASH
// equations with the same mask is a root of F.
func buildF(s1 gfpoly.Poly, tag1 [16]byte, s2 gfpoly.Poly, tag2 [16]byte, mod field128.Modulus) (gfpoly.Poly, error) {
	constElem := field128.Decode(field128.Block(xorBlocks(tag1, tag2)))
	sum := gfpoly.Add(s1, s2)
	sum = gfpoly.Add(sum, gfpoly.New([]field128.Elem{constElem}))
	return gfpoly.Monic(sum, mod)
}

// linearRoots returns the roots of f in GF(2^128): it runs SFF and DDF
// on f, splits each degree-1 bundle with EDF, and reads the root off
// every monic linear factor.
func linearRoots(f gfpoly.Poly, rng *weak.Rand, mod field128.Modulus) ([]field128.Elem, error) {
	var roots []field128.Elem
	sffTerms, err := gfpoly.SFF(f, mod)
	if err != nil {
		return nil, err
	}
	for _, sffTerm := range sffTerms {
		ddfTerms, err := gfpoly.DDF(sffTerm.Factor, mod)
		if err != nil {
			return nil, err
		}
		for _, ddfTerm := range ddfTerms {
			if ddfTerm.Degree != 1 {
				continue
			}
			linear, err := gfpoly.EDF(ddfTerm.Factor, 1, rng, mod)
			if err != nil {
				return nil, err
			}
			for _, lin := range linear {
				monicLin, err := gfpoly.Monic(lin, mod)
				if err != nil {
					return nil, err
				}
				roots = append(roots, monicLin.Coeffs[0])
			}
		}
	}
	return roots, nil
}

// Candidates returns the candidate GHASH keys H consistent with two
// messages observed under the same (key, nonce) pair: the roots of the
// polynomial F built from their two tag equations.
func Candidates(m1, m2 Message, rng *weak.Rand, mod field128.Modulus) ([]field128.Elem, error) {
	s1 := formalGHASH(m1.AD, m1.Ciphertext)
	s2 := formalGHASH(m2.AD, m2.Ciphertext)
	f, err := buildF(s1, m1.Tag, s2, m2.Tag, mod)
	if err != nil {
		return nil, err
	}
	return linearRoots(f, rng, mod)
}

// Recovered holds the cracked GHASH key and the per-nonce encrypted
// counter-zero mask E(Y0), both needed to forge new tags.
type Recovered struct {
	H   field128.Elem
	EY0 field128.Elem
}

// Recover finds H and E(Y0) from three messages authenticated under
// the same (key, nonce) pair: it narrows H to a small candidate set
// from the first two messages, then validates each candidate against
// the third message's tag. It fails with kerr.NoSolution if no
// candidate validates. If more than one does, it returns the first
// together with a kerr.Ambiguous error.
func Recover(m1, m2, m3 Message, rng *weak.Rand, mod field128.Modulus) (Recovered, error) {
	s1 := formalGHASH(m1.AD, m1.Ciphertext)
	s2 := formalGHASH(m2.AD, m2.Ciphertext)
	s3 := formalGHASH(m3.AD, m3.Ciphertext)

	f12, err := buildF(s1, m1.Tag, s2, m2.Tag, mod)
	if err != nil {
		return Recovered{}, err
	}
	f13, err := buildF(s1, m1.Tag, s3, m3.Tag, mod)
	if err != nil {
		return Recovered{}, err
	}

	g, err := gfpoly.GCD(f12, f13, mod)
	if err != nil {
		return Recovered{}, err
	}

	var candidates []field128.Elem
	if !g.IsOne() {
		candidates, err = linearRoots(g, rng, mod)
	} else {
		candidates, err = linearRoots(f12, rng, mod)
		if err == nil && len(candidates) == 0 {
			candidates, err = linearRoots(f13, rng, mod)
		}
	}
	if err != nil {
		return Recovered{}, err
	}

	var found []Recovered
	for _, h := range candidates {
		s1Val := evalAt(s1, h, mod)
		ey0 := xor16(field128.Decode(field128.Block(m1.Tag)), s1Val)

		s3Val := evalAt(s3, h, mod)
		check := xor16(ey0, s3Val)
		if check.Equal(field128.Decode(field128.Block(m3.Tag))) {
			found = append(found, Recovered{H: h, EY0: ey0})
		}
	}

	if len(found) == 0 {
		return Recovered{}, kerr.New(kerr.NoSolution, "gcmcrack: no candidate H reproduces the third message's tag")
	}
	// Multiple candidates can pass the verification check; return the
	// first, marked Ambiguous, as there's no further information to
	// discriminate between them.
	if len(found) > 1 {
		return found[0], kerr.New(kerr.Ambiguous, "gcmcrack: %d candidate H values reproduce the third message's tag", len(found))
	}
	return found[0], nil
}

// Forge computes the tag for an attacker-chosen (ad, ciphertext) pair
// using a recovered H and E(Y0).
func Forge(r Recovered, ad, ciphertext []byte, mod field128.Modulus) [16]byte {
	s := formalGHASH(ad, ciphertext)
	val := evalAt(s, r.H, mod)
	tagElem := xor16(r.EY0, val)
	return blockFromElem(tagElem)
}
