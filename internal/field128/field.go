package field128

import (
	"math/big"
	"math/bits"

	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// Modulus names one of the two reduction polynomials the course
// exercises use: the AES-GCM polynomial (x^128+x^7+x^2+x+1) and an
// alternate used only by the pure field/polynomial actions.
type Modulus struct {
	name string
	low  Elem // r(x) in x^128 + r(x), degree(r) < 128
}

// P1 is the AES-GCM reduction polynomial x^128 + x^7 + x^2 + x + 1.
// GCM encryption (C4) and nonce-reuse recovery (C7) are defined over
// P1 exclusively; it is the default when a testcase omits "poly".
var P1 = Modulus{name: "p1", low: Elem{Lo: 0x87}}

// P2 is the alternate reduction polynomial x^128 + x^98 + x^69 + x^33 + 1,
// exercised only by the standalone GF/polynomial actions.
var P2 = Modulus{name: "p2", low: Elem{Lo: (1 << 33) | 1, Hi: (1 << (98 - 64)) | (1 << (69 - 64))}}

// ModulusByName resolves the "poly" argument ("p1" or "p2") used on
// the JSON surface.
func ModulusByName(name string) (Modulus, error) {
	switch name {
	case "p1", "P1", "":
		return P1, nil
	case "p2", "P2":
		return P2, nil
	default:
		return Modulus{}, kerr.New(kerr.Domain, "unknown reduction polynomial %q", name)
	}
}

// Name reports the "p1"/"p2" selector for this modulus.
func (m Modulus) Name() string { return m.name }

// Zero is the additive identity.
var Zero = Elem{}

// One is the multiplicative identity.
var One = Elem{Lo: 1}

// IsZero reports whether e is the zero element.
func (e Elem) IsZero() bool { return e.Lo == 0 && e.Hi == 0 }

// Equal reports whether a and b are the same element.
func (a Elem) Equal(b Elem) bool { return a.Lo == b.Lo && a.Hi == b.Hi }

// Add returns a+b, which in characteristic 2 is bitwise XOR.
func Add(a, b Elem) Elem {
	return Elem{Lo: a.Lo ^ b.Lo, Hi: a.Hi ^ b.Hi}
}

// wide256 holds a 256-bit carryless-multiplication result, word 0 is
// least significant.
type wide256 [4]uint64

// clmul64 is the carryless (XOR) product of two 64-bit operands,
// returned as a 128-bit (lo,hi) pair. Schoolbook shift-and-xor;
// correctness over speed, matching the reference implementation this
// package is grounded on.
func clmul64(a, b uint64) (lo, hi uint64) {
	for i := 0; i < 64; i++ {
		if (b>>i)&1 != 0 {
			if i == 0 {
				lo ^= a
			} else {
				lo ^= a << i
				hi ^= a >> (64 - i)
			}
		}
	}
	return
}

// carrylessMul computes the 256-bit carryless product of two
// 128-bit elements by combining four 64x64 half-products.
func carrylessMul(a, b Elem) wide256 {
	lo00, hi00 := clmul64(a.Lo, b.Lo)
	lo01, hi01 := clmul64(a.Lo, b.Hi)
	lo10, hi10 := clmul64(a.Hi, b.Lo)
	lo11, hi11 := clmul64(a.Hi, b.Hi)

	return wide256{
		lo00,
		hi00 ^ lo01 ^ lo10,
		hi01 ^ hi10 ^ lo11,
		hi11,
	}
}

// bitLen returns the position of the highest set bit of w, plus one
// (0 if w is zero), matching Python's int.bit_length().
func (w wide256) bitLen() int {
	for i := 3; i >= 0; i-- {
		if w[i] != 0 {
			return i*64 + bits.Len64(w[i])
		}
	}
	return 0
}

func (w *wide256) clearBit(pos int) {
	w[pos/64] &^= 1 << uint(pos%64)
}

func (w *wide256) xorShifted(r Elem, shift int) {
	// XOR r (128 bits) shifted left by shift (0..127) into w.
	lo, hi := r.Lo, r.Hi
	if shift == 0 {
		w[0] ^= lo
		w[1] ^= hi
		return
	}
	wordShift := shift / 64
	bitShift := uint(shift % 64)
	if bitShift == 0 {
		w[wordShift] ^= lo
		w[wordShift+1] ^= hi
	} else {
		w[wordShift] ^= lo << bitShift
		w[wordShift+1] ^= (lo >> (64 - bitShift)) | (hi << bitShift)
		w[wordShift+2] ^= hi >> (64 - bitShift)
	}
}

// reduce performs modulo x^128+r(x) reduction on a 256-bit carryless
// product, substituting x^128 with r(x) bit by bit from the top down
// until the value fits in 128 bits.
func reduce(p wide256, mod Modulus) Elem {
	for {
		hb := p.bitLen() - 1
		if hb < 128 {
			break
		}
		p.clearBit(hb)
		p.xorShifted(mod.low, hb-128)
	}
	return Elem{Lo: p[0], Hi: p[1]}
}

// Mul returns a*b reduced modulo mod's reduction polynomial.
func Mul(a, b Elem, mod Modulus) Elem {
	return reduce(carrylessMul(a, b), mod)
}

// exp2 returns 2^n as a *big.Int.
func exp2(n uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), n)
}

// Pow returns a^e for a non-negative exponent e, via square-and-multiply.
// Pow(a, 0) is One for all a, including Pow(Zero, 0) = One.
func Pow(a Elem, e *big.Int, mod Modulus) Elem {
	if e.Sign() < 0 {
		panic("field128: Pow called with negative exponent")
	}
	result := One
	base := a
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

// PowUint is Pow for a machine-sized exponent.
func PowUint(a Elem, e uint64, mod Modulus) Elem {
	return Pow(a, new(big.Int).SetUint64(e), mod)
}

// fermatExponent is 2^128 - 2, the exponent Fermat's little theorem
// gives for inversion in the 2^128-element field.
var fermatExponent = new(big.Int).Sub(exp2(128), big.NewInt(2))

// Inv returns the multiplicative inverse of a. It fails with a
// kerr.Domain error when a is zero.
func Inv(a Elem, mod Modulus) (Elem, error) {
	if a.IsZero() {
		return Elem{}, kerr.New(kerr.Domain, "inverse of zero is undefined")
	}
	return Pow(a, fermatExponent, mod), nil
}

// Div returns a/b = a * inv(b).
func Div(a, b Elem, mod Modulus) (Elem, error) {
	inv, err := Inv(b, mod)
	if err != nil {
		return Elem{}, err
	}
	return Mul(a, inv, mod), nil
}

// DivMod mirrors Div on the JSON surface: field division has no
// remainder, so it is (Div(a,b), Zero).
func DivMod(a, b Elem, mod Modulus) (Elem, Elem, error) {
	q, err := Div(a, b, mod)
	if err != nil {
		return Elem{}, Elem{}, err
	}
	return q, Zero, nil
}

// sqrtExponent is 2^127, the Frobenius square-root exponent in
// characteristic 2.
var sqrtExponent = exp2(127)

// Sqrt returns the unique square root of a in characteristic 2:
// Sqrt(Mul(a,a)) = a for all a.
func Sqrt(a Elem, mod Modulus) Elem {
	return Pow(a, sqrtExponent, mod)
}

// bitLen returns the position of e's highest set bit, plus one (0 for
// the zero element), matching Python's int.bit_length().
func (e Elem) bitLen() int {
	if e.Hi != 0 {
		return 64 + bits.Len64(e.Hi)
	}
	return bits.Len64(e.Lo)
}

// shl returns e shifted left by n bits, 0 <= n <= 127, truncated to
// 128 bits.
func shl(e Elem, n int) Elem {
	if n == 0 {
		return e
	}
	if n >= 64 {
		return Elem{Lo: 0, Hi: e.Lo << uint(n-64)}
	}
	return Elem{
		Lo: e.Lo << uint(n),
		Hi: (e.Hi << uint(n)) | (e.Lo >> uint(64-n)),
	}
}

// RawPolyDivMod divides a by b as plain GF(2)[x] polynomials of
// degree < 128 with no field reduction: a = b*q + r, deg(r) < deg(b).
// This is distinct from the field division DivMod performs — it is
// the primitive the "gf_divmod" action exposes directly, independent
// of any reduction polynomial.
func RawPolyDivMod(a, b Elem) (Elem, Elem, error) {
	if b.IsZero() {
		return Elem{}, Elem{}, kerr.New(kerr.Domain, "division by zero polynomial")
	}
	degB := b.bitLen() - 1
	r := a
	q := Elem{}
	for !r.IsZero() && r.bitLen()-1 >= degB {
		shift := r.bitLen() - 1 - degB
		q = Add(q, shl(One, shift))
		r = Add(r, shl(b, shift))
	}
	return q, r, nil
}
