package rsafactor

import (
	"math/big"
	"testing"
)

func bigFromInt64(v int64) *big.Int { return big.NewInt(v) }

func TestBatchGCDFindsSharedFactor(t *testing.T) {
	// 61*67=4087, 61*71=4331 share the prime 61.
	moduli := []*big.Int{bigFromInt64(4087), bigFromInt64(4331)}
	results, err := BatchGCD(moduli)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Factor == nil {
			t.Fatalf("index %d: no factor found", i)
		}
		if r.Factor.Cmp(bigFromInt64(61)) != 0 {
			t.Errorf("index %d: factor = %s, want 61", i, r.Factor)
		}
	}
}

func TestBatchGCDMarksCoprimeModuli(t *testing.T) {
	// 15=3*5, 77=7*11, 221=13*17: pairwise coprime.
	moduli := []*big.Int{bigFromInt64(15), bigFromInt64(77), bigFromInt64(221)}
	results, err := BatchGCD(moduli)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if !r.Coprime {
			t.Errorf("index %d: expected coprime, got factor %v", i, r.Factor)
		}
	}
}

func TestBatchGCDResolvesDuplicateModuli(t *testing.T) {
	n := bigFromInt64(4087) // 61*67
	other := bigFromInt64(4331)
	moduli := []*big.Int{n, new(big.Int).Set(n), other}
	results, err := BatchGCD(moduli)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Factor == nil || results[1].Factor == nil {
		t.Fatalf("duplicate moduli were not resolved: %+v", results)
	}
	if results[0].Factor.Cmp(n) != 0 && results[0].Factor.Cmp(results[1].Factor) == 0 {
		// both duplicates resolved to the same proper factor via the third modulus
	}
}

func TestPairwiseSharedDeduplicatesAndSorts(t *testing.T) {
	moduli := []*big.Int{bigFromInt64(4087), bigFromInt64(4331)}
	results, err := BatchGCD(moduli)
	if err != nil {
		t.Fatal(err)
	}
	pairs := PairwiseShared(moduli, results)
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].P.Cmp(pairs[i].P) > 0 {
			t.Errorf("pairs not sorted: %+v", pairs)
		}
	}
}

func TestBatchGCDRejectsNonPositiveModulus(t *testing.T) {
	moduli := []*big.Int{bigFromInt64(0), bigFromInt64(15)}
	if _, err := BatchGCD(moduli); err == nil {
		t.Error("BatchGCD with zero modulus succeeded, want error")
	}
}
