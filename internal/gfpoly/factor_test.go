package gfpoly

import (
	weak "math/rand"
	"testing"
	"time"

	"github.com/rbnschffmchr/kauma/internal/field128"
)

func init() { weak.Seed(time.Now().UnixNano()) }

// reconstruct multiplies factor^exponent over all SFF terms and checks
// it reproduces the original monic polynomial.
func reconstruct(terms []SFFTerm, mod field128.Modulus) Poly {
	p := One()
	for _, term := range terms {
		for i := 0; i < term.Exponent; i++ {
			p = Mul(p, term.Factor, mod)
		}
	}
	return p
}

func TestSFFReconstructsInputWithSquareFactor(t *testing.T) {
	a := New([]field128.Elem{field128.One, field128.One})         // x+1
	b := New([]field128.Elem{field128.Zero, field128.Zero, field128.One}) // x^2
	f := Mul(a, b, field128.P1)

	terms, err := SFF(f, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	got := reconstruct(terms, field128.P1)
	want, err := Monic(f, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("reconstructed = %+v, want %+v", got, want)
	}
}

func TestSFFDetectsRepeatedSquareFactor(t *testing.T) {
	a := New([]field128.Elem{field128.One, field128.One}) // x+1
	f := Mul(a, a, field128.P1)                            // (x+1)^2

	terms, err := SFF(f, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) != 1 {
		t.Fatalf("got %d terms, want 1", len(terms))
	}
	if terms[0].Exponent != 2 {
		t.Errorf("exponent = %d, want 2", terms[0].Exponent)
	}
	if !terms[0].Factor.Equal(a) {
		t.Errorf("factor = %+v, want %+v", terms[0].Factor, a)
	}
}

// TestDDFAndEDFSplitLinearFactors builds f = x*(x+1), both of degree
// one, and checks DDF bundles them at degree 1 and EDF recovers the
// two distinct linear factors.
func TestDDFAndEDFSplitLinearFactors(t *testing.T) {
	x := X()
	xPlusOne := Add(X(), One())
	f := Mul(x, xPlusOne, field128.P1)

	ddfTerms, err := DDF(f, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ddfTerms) != 1 || ddfTerms[0].Degree != 1 {
		t.Fatalf("DDF terms = %+v, want single degree-1 bundle", ddfTerms)
	}
	if !ddfTerms[0].Factor.Equal(f) {
		t.Errorf("DDF bundle = %+v, want %+v", ddfTerms[0].Factor, f)
	}

	irred, err := EDF(ddfTerms[0].Factor, 1, weak.New(weak.NewSource(1)), field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	if len(irred) != 2 {
		t.Fatalf("EDF returned %d factors, want 2", len(irred))
	}
	sorted := Sort(irred)
	if !sorted[0].Equal(x) || !sorted[1].Equal(xPlusOne) {
		t.Errorf("EDF factors = %+v, want {%+v, %+v}", sorted, x, xPlusOne)
	}
}

func TestFactorReconstructsProduct(t *testing.T) {
	x := X()
	xPlusOne := Add(X(), One())
	f := Mul(Mul(x, xPlusOne, field128.P1), xPlusOne, field128.P1) // x*(x+1)^2

	terms, err := Factor(f, weak.New(weak.NewSource(2)), field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	got := reconstruct(terms, field128.P1)
	want, err := Monic(f, field128.P1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("reconstructed = %+v, want %+v", got, want)
	}
}
