package calc

import (
	"math/big"
	"testing"
)

func TestEvalBasicOps(t *testing.T) {
	cases := []struct {
		lhs, rhs int64
		op       string
		want     int64
	}{
		{3, 4, "+", 7},
		{3, 4, "-", -1},
		{3, 4, "*", 12},
		{7, 2, "/", 3},
		{-7, 2, "/", -3},
		{7, -2, "/", -3},
		{-7, -2, "/", 3},
	}
	for _, c := range cases {
		got, err := Eval(big.NewInt(c.lhs), big.NewInt(c.rhs), c.op)
		if err != nil {
			t.Fatalf("Eval(%d,%d,%q) error: %v", c.lhs, c.rhs, c.op, err)
		}
		if got.Int64() != c.want {
			t.Errorf("Eval(%d,%d,%q) = %s, want %d", c.lhs, c.rhs, c.op, got, c.want)
		}
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	if _, err := Eval(big.NewInt(1), big.NewInt(0), "/"); err == nil {
		t.Error("Eval division by zero succeeded, want error")
	}
}

func TestEvalInvalidOperator(t *testing.T) {
	if _, err := Eval(big.NewInt(1), big.NewInt(2), "%"); err == nil {
		t.Error("Eval with invalid operator succeeded, want error")
	}
}
