// Package gfpoly implements univariate polynomial arithmetic over
// GF(2^128) (internal/field128) and its full factorization: square-free
// (SFF), distinct-degree (DDF) and equal-degree (EDF) factorization.
package gfpoly

import (
	"math/big"
	"sort"

	"github.com/rbnschffmchr/kauma/internal/field128"
	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// Poly is a polynomial over GF(2^128): Coeffs[i] is the coefficient of
// x^i, low-degree first. A normalized Poly never has a trailing zero
// coefficient except for the zero polynomial, which is represented as
// a single zero coefficient.
type Poly struct {
	Coeffs []field128.Elem
}

// normalize strips trailing zero coefficients, collapsing an empty or
// all-zero slice to the single-coefficient zero polynomial.
func normalize(coeffs []field128.Elem) []field128.Elem {
	i := len(coeffs)
	for i > 1 && coeffs[i-1].IsZero() {
		i--
	}
	if i == 0 {
		return []field128.Elem{field128.Zero}
	}
	return coeffs[:i]
}

// New builds a normalized polynomial from a coefficient list,
// low-degree first.
func New(coeffs []field128.Elem) Poly {
	cp := make([]field128.Elem, len(coeffs))
	copy(cp, coeffs)
	return Poly{Coeffs: normalize(cp)}
}

// Zero is the zero polynomial.
func Zero() Poly { return Poly{Coeffs: []field128.Elem{field128.Zero}} }

// One is the constant polynomial 1.
func One() Poly { return Poly{Coeffs: []field128.Elem{field128.One}} }

// X is the polynomial "x".
func X() Poly { return Poly{Coeffs: []field128.Elem{field128.Zero, field128.One}} }

// Deg returns the polynomial's degree, or -1 for the zero polynomial
// (the sentinel for deg(0) = -infinity; it must never be compared as a
// real degree, only used in degree comparisons where it is correctly
// less than any non-negative degree).
func (p Poly) Deg() int {
	if p.IsZero() {
		return -1
	}
	return len(p.Coeffs) - 1
}

// IsZero reports whether p is the zero polynomial.
func (p Poly) IsZero() bool {
	return len(p.Coeffs) == 1 && p.Coeffs[0].IsZero()
}

// IsOne reports whether p is the constant polynomial 1.
func (p Poly) IsOne() bool {
	return len(p.Coeffs) == 1 && p.Coeffs[0].Equal(field128.One)
}

// LeadingCoeff returns the coefficient of the highest-degree term.
func (p Poly) LeadingCoeff() field128.Elem {
	return p.Coeffs[len(p.Coeffs)-1]
}

// Equal reports whether p and q have identical coefficient lists.
func (p Poly) Equal(q Poly) bool {
	if len(p.Coeffs) != len(q.Coeffs) {
		return false
	}
	for i := range p.Coeffs {
		if !p.Coeffs[i].Equal(q.Coeffs[i]) {
			return false
		}
	}
	return true
}

// elemLess orders two field elements by their numeric encoding,
// comparing the high 64 bits first.
func elemLess(a, b field128.Elem) bool {
	if a.Hi != b.Hi {
		return a.Hi < b.Hi
	}
	return a.Lo < b.Lo
}

// Less orders polynomials first by ascending degree, then — for equal
// degree — by coefficients compared from the highest degree downward.
func (p Poly) Less(q Poly) bool {
	if dp, dq := p.Deg(), q.Deg(); dp != dq {
		return dp < dq
	}
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		if !p.Coeffs[i].Equal(q.Coeffs[i]) {
			return elemLess(p.Coeffs[i], q.Coeffs[i])
		}
	}
	return false
}

// Sort returns polys sorted per Less.
func Sort(polys []Poly) []Poly {
	out := make([]Poly, len(polys))
	copy(out, polys)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Monic scales p so its leading coefficient is 1. Monic(0) = 0.
func Monic(p Poly, mod field128.Modulus) (Poly, error) {
	if p.IsZero() {
		return Zero(), nil
	}
	lead := p.LeadingCoeff()
	if lead.Equal(field128.One) {
		return p, nil
	}
	invLead, err := field128.Inv(lead, mod)
	if err != nil {
		return Poly{}, err
	}
	out := make([]field128.Elem, len(p.Coeffs))
	for i, c := range p.Coeffs {
		out[i] = field128.Mul(c, invLead, mod)
	}
	return New(out), nil
}

// Add returns p+q, coefficient-wise XOR.
func Add(p, q Poly) Poly {
	n := len(p.Coeffs)
	if len(q.Coeffs) > n {
		n = len(q.Coeffs)
	}
	out := make([]field128.Elem, n)
	for i := 0; i < n; i++ {
		var a, b field128.Elem
		if i < len(p.Coeffs) {
			a = p.Coeffs[i]
		}
		if i < len(q.Coeffs) {
			b = q.Coeffs[i]
		}
		out[i] = field128.Add(a, b)
	}
	return New(out)
}

// Mul returns the schoolbook convolution product p*q.
func Mul(p, q Poly, mod field128.Modulus) Poly {
	if p.IsZero() || q.IsZero() {
		return Zero()
	}
	out := make([]field128.Elem, p.Deg()+q.Deg()+1)
	for i, a := range p.Coeffs {
		if a.IsZero() {
			continue
		}
		for j, b := range q.Coeffs {
			out[i+j] = field128.Add(out[i+j], field128.Mul(a, b, mod))
		}
	}
	return New(out)
}

// DivMod returns (quotient, remainder) such that p = q*quotient +
// remainder and deg(remainder) < deg(q). It fails with a kerr.Domain
// error when q is the zero polynomial.
func DivMod(p, q Poly, mod field128.Modulus) (Poly, Poly, error) {
	if q.IsZero() {
		return Poly{}, Poly{}, kerr.New(kerr.Domain, "gfpoly: division by zero polynomial")
	}
	invLead, err := field128.Inv(q.LeadingCoeff(), mod)
	if err != nil {
		return Poly{}, Poly{}, err
	}
	degQ := q.Deg()
	quotLen := p.Deg() - degQ + 1
	if quotLen < 0 {
		quotLen = 0
	}
	quotient := make([]field128.Elem, quotLen)
	remainder := make([]field128.Elem, len(p.Coeffs))
	copy(remainder, p.Coeffs)
	rem := New(remainder)

	for rem.Deg() >= degQ && !rem.IsZero() {
		shift := rem.Deg() - degQ
		scale := field128.Mul(rem.LeadingCoeff(), invLead, mod)
		quotient[shift] = field128.Add(quotient[shift], scale)

		shifted := make([]field128.Elem, shift+len(q.Coeffs))
		for i, c := range q.Coeffs {
			shifted[shift+i] = field128.Mul(c, scale, mod)
		}
		rem = Add(rem, New(shifted))
	}
	return New(quotient), rem, nil
}

// Mod returns the remainder of p divided by q.
func Mod(p, q Poly, mod field128.Modulus) (Poly, error) {
	_, r, err := DivMod(p, q, mod)
	return r, err
}

// GCD returns the monic greatest common divisor of p and q via the
// Euclidean algorithm. GCD(0,0) = 0; GCD(p,0) = Monic(p).
func GCD(p, q Poly, mod field128.Modulus) (Poly, error) {
	a, b := p, q
	for !b.IsZero() {
		_, r, err := DivMod(a, b, mod)
		if err != nil {
			return Poly{}, err
		}
		a, b = b, r
	}
	if a.IsZero() {
		return Zero(), nil
	}
	return Monic(a, mod)
}

// Pow returns p^e via square-and-multiply for a non-negative integer
// exponent e.
func Pow(p Poly, e *big.Int, mod field128.Modulus) Poly {
	if e.Sign() < 0 {
		panic("gfpoly: Pow called with negative exponent")
	}
	result := One()
	base := p
	for i := 0; i < e.BitLen(); i++ {
		if e.Bit(i) == 1 {
			result = Mul(result, base, mod)
		}
		if i+1 < e.BitLen() {
			base = Mul(base, base, mod)
		}
	}
	return result
}

// PowMod returns p^e mod m via square-and-multiply with intermediate
// reduction. m must be non-zero.
func PowMod(p Poly, e *big.Int, m Poly, mod field128.Modulus) (Poly, error) {
	if m.IsZero() {
		return Poly{}, kerr.New(kerr.Domain, "gfpoly: powmod modulus must be non-zero")
	}
	if m.IsOne() {
		return Zero(), nil
	}
	if e.Sign() == 0 {
		return One(), nil
	}
	if p.IsZero() {
		return Zero(), nil
	}
	base, err := Mod(p, m, mod)
	if err != nil {
		return Poly{}, err
	}
	result := One()
	for i := 0; i < e.BitLen(); i++ {
		if e.Bit(i) == 1 {
			result, err = Mod(Mul(result, base, mod), m, mod)
			if err != nil {
				return Poly{}, err
			}
		}
		if i+1 < e.BitLen() {
			base, err = Mod(Mul(base, base, mod), m, mod)
			if err != nil {
				return Poly{}, err
			}
		}
	}
	return result, nil
}

// Diff returns the formal derivative. In characteristic 2 every
// even-degree term vanishes: diff(sum c_i x^i) = sum_{i odd} c_i x^(i-1).
func Diff(p Poly) Poly {
	if len(p.Coeffs) <= 1 {
		return Zero()
	}
	out := make([]field128.Elem, len(p.Coeffs)-1)
	for i := 1; i < len(p.Coeffs); i++ {
		if i%2 == 1 {
			out[i-1] = p.Coeffs[i]
		}
	}
	return New(out)
}

// Sqrt returns the square root of p, defined when every odd-degree
// coefficient is zero: the result's coefficient at degree i is
// field128.Sqrt(p[2i]). It fails with a kerr.Domain error otherwise.
func Sqrt(p Poly, mod field128.Modulus) (Poly, error) {
	for i := 1; i < len(p.Coeffs); i += 2 {
		if !p.Coeffs[i].IsZero() {
			return Poly{}, kerr.New(kerr.Domain, "gfpoly: sqrt of a non-square polynomial")
		}
	}
	n := (len(p.Coeffs)-1)/2 + 1
	out := make([]field128.Elem, n)
	for i := 0; i < n; i++ {
		idx := 2 * i
		if idx < len(p.Coeffs) {
			out[i] = field128.Sqrt(p.Coeffs[idx], mod)
		}
	}
	return New(out), nil
}
