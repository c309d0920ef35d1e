package gfpoly

import (
	weak "math/rand"
	"math/big"
	"sort"

	"github.com/rbnschffmchr/kauma/internal/field128"
)

// SFFTerm is one square-free factor together with its multiplicity.
type SFFTerm struct {
	Factor   Poly
	Exponent int
}

// SFF computes the square-free factorization of a monic polynomial f
// over GF(2^128): f = prod(Factor_i ^ Exponent_i) with every Factor_i
// square-free and pairwise coprime. It relies on field128.Sqrt to peel
// off characteristic-2 perfect squares, which is why this factorization
// only makes sense over a field of characteristic 2.
func SFF(f Poly, mod field128.Modulus) ([]SFFTerm, error) {
	if f.Deg() <= 0 {
		return nil, nil
	}
	var result []SFFTerm

	deriv := Diff(f)
	c, err := GCD(f, deriv, mod)
	if err != nil {
		return nil, err
	}
	w, _, err := DivMod(f, c, mod)
	if err != nil {
		return nil, err
	}

	for i := 1; !w.IsOne(); i++ {
		y, err := GCD(w, c, mod)
		if err != nil {
			return nil, err
		}
		fac, _, err := DivMod(w, y, mod)
		if err != nil {
			return nil, err
		}
		if !fac.IsOne() {
			result = append(result, SFFTerm{Factor: fac, Exponent: i})
		}
		w = y
		c, _, err = DivMod(c, y, mod)
		if err != nil {
			return nil, err
		}
	}

	if !c.IsOne() {
		// c is a perfect square in characteristic 2: c = c0^2.
		c0, err := Sqrt(c, mod)
		if err != nil {
			return nil, err
		}
		inner, err := SFF(c0, mod)
		if err != nil {
			return nil, err
		}
		for _, term := range inner {
			result = append(result, SFFTerm{Factor: term.Factor, Exponent: term.Exponent * 2})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Factor.Less(result[j].Factor) })
	return result, nil
}

// DDFTerm is one distinct-degree factor: the product of every
// irreducible factor of f with degree Degree, bundled together.
type DDFTerm struct {
	Factor Poly
	Degree int
}

// qPow returns (2^128)^d as a big.Int.
func qPow(d int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(128*d))
}

// DDF computes the distinct-degree factorization of a monic,
// square-free polynomial f over GF(2^128): for each degree d present,
// DDFTerm.Factor is the product of all of f's irreducible factors of
// that degree.
func DDF(f Poly, mod field128.Modulus) ([]DDFTerm, error) {
	var result []DDFTerm
	rest := f
	x := X()

	for d := 1; 2*d <= rest.Deg(); d++ {
		h, err := PowMod(x, qPow(d), rest, mod)
		if err != nil {
			return nil, err
		}
		h = Add(h, x)
		g, err := GCD(h, rest, mod)
		if err != nil {
			return nil, err
		}
		if !g.IsOne() {
			result = append(result, DDFTerm{Factor: g, Degree: d})
			rest, _, err = DivMod(rest, g, mod)
			if err != nil {
				return nil, err
			}
		}
	}
	if rest.Deg() > 0 {
		result = append(result, DDFTerm{Factor: rest, Degree: rest.Deg()})
	}
	return result, nil
}

// randomNonzeroPoly draws a uniformly random polynomial of degree
// strictly less than maxDeg, redrawing only if the result is the zero
// polynomial (the constant term itself may be zero).
func randomNonzeroPoly(rng *weak.Rand, maxDeg int) Poly {
	for {
		coeffs := make([]field128.Elem, maxDeg)
		for i := range coeffs {
			coeffs[i] = field128.Elem{Lo: rng.Uint64(), Hi: rng.Uint64()}
		}
		p := New(coeffs)
		if !p.IsZero() {
			return p
		}
	}
}

// EDF splits a monic polynomial f known to be a product of irreducible
// factors all of degree d into those individual irreducible factors,
// via randomized Cantor-Zassenhaus splitting. Splitting uses the direct
// exponent (q^d-1)/3 rather than a characteristic-2 trace polynomial;
// this is valid here because 2^128 is congruent to 1 mod 3, so the
// exponent is always an integer. rng is caller-supplied so test vectors
// and production code can both control determinism.
func EDF(f Poly, d int, rng *weak.Rand, mod field128.Modulus) ([]Poly, error) {
	if f.Deg() == d {
		return []Poly{f}, nil
	}
	if f.Deg() == 0 {
		return nil, nil
	}

	exponent := new(big.Int).Sub(qPow(d), big.NewInt(1))
	exponent.Div(exponent, big.NewInt(3))

	for {
		u := randomNonzeroPoly(rng, f.Deg())
		g, err := PowMod(u, exponent, f, mod)
		if err != nil {
			return nil, err
		}
		g = Add(g, One())
		if g.IsZero() {
			continue
		}
		gcdPoly, err := GCD(g, f, mod)
		if err != nil {
			return nil, err
		}
		if gcdPoly.Deg() > 0 && gcdPoly.Deg() < f.Deg() {
			left, err := EDF(gcdPoly, d, rng, mod)
			if err != nil {
				return nil, err
			}
			quotient, _, err := DivMod(f, gcdPoly, mod)
			if err != nil {
				return nil, err
			}
			right, err := EDF(quotient, d, rng, mod)
			if err != nil {
				return nil, err
			}
			return Sort(append(left, right...)), nil
		}
	}
}

// Factor runs SFF, then DDF, then EDF on every distinct-degree bundle,
// returning the complete list of irreducible factors with multiplicity.
func Factor(f Poly, rng *weak.Rand, mod field128.Modulus) ([]SFFTerm, error) {
	monicF, err := Monic(f, mod)
	if err != nil {
		return nil, err
	}
	sffTerms, err := SFF(monicF, mod)
	if err != nil {
		return nil, err
	}

	var result []SFFTerm
	for _, sffTerm := range sffTerms {
		ddfTerms, err := DDF(sffTerm.Factor, mod)
		if err != nil {
			return nil, err
		}
		for _, ddfTerm := range ddfTerms {
			irred, err := EDF(ddfTerm.Factor, ddfTerm.Degree, rng, mod)
			if err != nil {
				return nil, err
			}
			for _, fac := range irred {
				result = append(result, SFFTerm{Factor: fac, Exponent: sffTerm.Exponent})
			}
		}
	}
	return result, nil
}
