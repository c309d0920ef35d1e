package field128

import (
	"math/big"
	weak "math/rand"
	"testing"
	"time"
)

func init() { weak.Seed(time.Now().UnixNano()) }

func randomElem() Elem {
	return Elem{Lo: weak.Uint64(), Hi: weak.Uint64()}
}

func TestCodecRoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		e := randomElem()
		got := Decode(Encode(e))
		if !got.Equal(e) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
		}
	}
}

func TestMulIdentity(t *testing.T) {
	for i := 0; i < 20; i++ {
		a := randomElem()
		if got := Mul(a, One, P1); !got.Equal(a) {
			t.Errorf("Mul(a, One) = %+v, want %+v", got, a)
		}
	}
}

func TestRawPolyDivModReconstructs(t *testing.T) {
	for i := 0; i < 20; i++ {
		a, b := randomElem(), randomElem()
		if b.IsZero() {
			continue
		}
		q, r, err := RawPolyDivMod(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if !r.IsZero() && r.bitLen() >= b.bitLen() {
			t.Fatalf("remainder degree too large: r=%+v b=%+v", r, b)
		}
		// a = b*q + r as GF(2)[x] polynomials, checked via the
		// unreduced carryless product rather than field Mul (which
		// would wrongly reduce modulo a field polynomial here).
		prod := carrylessMul(q, b)
		prodElem := Elem{Lo: prod[0], Hi: prod[1]}
		if prod[2] != 0 || prod[3] != 0 {
			t.Fatalf("q*b overflowed 128 bits: %+v", prod)
		}
		got := Add(prodElem, r)
		if !got.Equal(a) {
			t.Errorf("b*q+r = %+v, want %+v", got, a)
		}
	}
}

func TestRawPolyDivModByZeroFails(t *testing.T) {
	if _, _, err := RawPolyDivMod(randomElem(), Zero); err == nil {
		t.Error("RawPolyDivMod by zero succeeded, want error")
	}
}

func TestMulCommutative(t *testing.T) {
	for i := 0; i < 20; i++ {
		a, b := randomElem(), randomElem()
		if x, y := Mul(a, b, P1), Mul(b, a, P1); !x.Equal(y) {
			t.Errorf("Mul not commutative: %+v vs %+v", x, y)
		}
	}
}

func TestMulDistributive(t *testing.T) {
	for i := 0; i < 20; i++ {
		a, b, c := randomElem(), randomElem(), randomElem()
		lhs := Mul(a, Add(b, c), P1)
		rhs := Add(Mul(a, b, P1), Mul(a, c, P1))
		if !lhs.Equal(rhs) {
			t.Errorf("distributivity failed: %+v vs %+v", lhs, rhs)
		}
	}
}

func TestAddSelfIsZero(t *testing.T) {
	a := randomElem()
	if got := Add(a, a); !got.IsZero() {
		t.Errorf("Add(a,a) = %+v, want zero", got)
	}
}

func TestInvZeroFails(t *testing.T) {
	if _, err := Inv(Zero, P1); err == nil {
		t.Error("Inv(Zero) succeeded, want DomainError")
	}
}

func TestInvIdentity(t *testing.T) {
	for i := 0; i < 20; i++ {
		a := randomElem()
		if a.IsZero() {
			continue
		}
		inv, err := Inv(a, P1)
		if err != nil {
			t.Fatal(err)
		}
		if got := Mul(a, inv, P1); !got.Equal(One) {
			t.Errorf("Mul(a, inv(a)) = %+v, want One", got)
		}
	}
}

func TestSqrtOfSquare(t *testing.T) {
	for i := 0; i < 20; i++ {
		a := randomElem()
		sq := Mul(a, a, P1)
		if got := Sqrt(sq, P1); !got.Equal(a) {
			t.Errorf("Sqrt(a*a) = %+v, want %+v", got, a)
		}
	}
}

func TestPowZeroIsOne(t *testing.T) {
	if got := Pow(Zero, big.NewInt(0), P1); !got.Equal(One) {
		t.Errorf("Pow(Zero, 0) = %+v, want One", got)
	}
	a := randomElem()
	if got := Pow(a, big.NewInt(0), P1); !got.Equal(One) {
		t.Errorf("Pow(a, 0) = %+v, want One", got)
	}
}

func TestPowMatchesRepeatedMul(t *testing.T) {
	a := randomElem()
	want := One
	for i := 0; i < 5; i++ {
		want = Mul(want, a, P1)
	}
	if got := Pow(a, big.NewInt(5), P1); !got.Equal(want) {
		t.Errorf("Pow(a,5) = %+v, want %+v", got, want)
	}
}

func TestModulusByName(t *testing.T) {
	if m, err := ModulusByName("p1"); err != nil || m.Name() != "p1" {
		t.Errorf("ModulusByName(p1) = %+v, %v", m, err)
	}
	if m, err := ModulusByName(""); err != nil || m.Name() != "p1" {
		t.Errorf("ModulusByName(\"\") = %+v, %v, want p1 default", m, err)
	}
	if _, err := ModulusByName("bogus"); err == nil {
		t.Error("ModulusByName(bogus) succeeded, want error")
	}
}

func TestDivModEquivalence(t *testing.T) {
	a, b := randomElem(), One
	b = randomElem()
	if b.IsZero() {
		b = One
	}
	q, r, err := DivMod(a, b, P1)
	if err != nil {
		t.Fatal(err)
	}
	wantQ, err := Div(a, b, P1)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Equal(wantQ) || !r.IsZero() {
		t.Errorf("DivMod(a,b) = (%+v,%+v), want (%+v,Zero)", q, r, wantQ)
	}
}
