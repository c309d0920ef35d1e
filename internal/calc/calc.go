// Package calc implements the big-integer arithmetic action: plain
// +, -, *, / on arbitrary-precision operands, with division truncated
// toward zero.
package calc

import (
	"math/big"

	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// Eval computes lhs op rhs for op in {"+", "-", "*", "/"}.
//
// Division truncates toward zero (big.Int.Quo already does this,
// unlike Div which floors), matching the reference semantics.
func Eval(lhs, rhs *big.Int, op string) (*big.Int, error) {
	switch op {
	case "+":
		return new(big.Int).Add(lhs, rhs), nil
	case "-":
		return new(big.Int).Sub(lhs, rhs), nil
	case "*":
		return new(big.Int).Mul(lhs, rhs), nil
	case "/":
		if rhs.Sign() == 0 {
			return nil, kerr.New(kerr.Domain, "division by zero")
		}
		return new(big.Int).Quo(lhs, rhs), nil
	default:
		return nil, kerr.New(kerr.Domain, "invalid operator %q", op)
	}
}
