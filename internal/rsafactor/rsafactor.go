// Package rsafactor implements Bernstein's batch-GCD algorithm for
// finding shared prime factors across a large set of RSA moduli: a
// product tree followed by a remainder tree lets every modulus be
// checked against the product of all the others in O(n log n) big-
// integer multiplications instead of O(n^2) pairwise gcds.
package rsafactor

import (
	"math/big"
	"sort"

	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// Result is the outcome of batch-GCD for one input modulus.
type Result struct {
	// Factor is a non-trivial factor 1 < Factor < N, or nil if none
	// was found.
	Factor *big.Int
	// Coprime is true when no shared factor with any other input was
	// found (Factor is nil for a genuine reason, not because this
	// input shares all its structure with another input in the set).
	Coprime bool
}

func buildProductTree(leaves []*big.Int) [][]*big.Int {
	if len(leaves) == 0 {
		return nil
	}
	level := make([]*big.Int, len(leaves))
	copy(level, leaves)
	levels := [][]*big.Int{level}

	for len(levels[len(levels)-1]) > 1 {
		cur := levels[len(levels)-1]
		var next []*big.Int
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next = append(next, new(big.Int).Mul(cur[i], cur[i+1]))
			} else {
				next = append(next, cur[i])
			}
		}
		levels = append(levels, next)
	}
	return levels
}

// remainderTree performs the top-down reduction: for every leaf i,
// returns z_i = P mod n_i^2, where P is the full product of all
// moduli.
func remainderTree(levels [][]*big.Int) []*big.Int {
	if len(levels) == 0 || len(levels[0]) == 0 {
		return nil
	}
	current := levels[len(levels)-1]

	for lvl := len(levels) - 2; lvl >= 0; lvl-- {
		nodes := levels[lvl]
		next := make([]*big.Int, len(nodes))
		for idx, node := range nodes {
			parent := current[idx/2]
			nSquare := new(big.Int).Mul(node, node)
			next[idx] = new(big.Int).Mod(parent, nSquare)
		}
		current = next
	}
	return current
}

// BatchGCD returns, for each input modulus, a non-trivial shared
// factor if one was found by the batch-GCD computation, falling back
// to pairwise gcd scans for the rare moduli the batch pass can't
// resolve on its own (duplicate or near-duplicate moduli, where the
// remainder collapses to the modulus itself).
func BatchGCD(moduli []*big.Int) ([]Result, error) {
	if len(moduli) == 0 {
		return nil, nil
	}
	for i, n := range moduli {
		if n.Sign() <= 0 {
			return nil, kerr.New(kerr.Domain, "rsafactor: modulus at index %d is not positive", i)
		}
	}

	levels := buildProductTree(moduli)
	zs := remainderTree(levels)

	results := make([]Result, len(moduli))
	var unresolved []int

	for i, n := range moduli {
		z := zs[i]
		quotient := new(big.Int).Div(z, n)
		g := new(big.Int).GCD(nil, nil, quotient, n)

		switch {
		case g.Cmp(big.NewInt(1)) > 0 && g.Cmp(n) < 0:
			results[i] = Result{Factor: g}
		case g.Cmp(n) == 0:
			unresolved = append(unresolved, i)
		default:
			results[i] = Result{Coprime: true}
		}
	}

	for _, i := range unresolved {
		n := moduli[i]
		found := false
		for j, other := range moduli {
			if j == i {
				continue
			}
			g := new(big.Int).GCD(nil, nil, n, other)
			if g.Cmp(big.NewInt(1)) > 0 && g.Cmp(n) < 0 {
				results[i] = Result{Factor: g}
				found = true
				break
			}
		}
		if !found {
			results[i] = Result{Coprime: true}
		}
	}
	return results, nil
}

// Pair is a pair of non-trivial, ordered (p <= q) factors of one
// input modulus.
type Pair struct {
	P, Q *big.Int
}

// PairwiseShared reduces a BatchGCD result to the deduplicated,
// sorted set of (p, q) factor pairs it implies — the convenience
// shape used when the caller wants factor pairs rather than a
// per-input answer.
func PairwiseShared(moduli []*big.Int, results []Result) []Pair {
	seen := make(map[string]Pair)
	for i, r := range results {
		if r.Factor == nil {
			continue
		}
		q := new(big.Int).Div(moduli[i], r.Factor)
		p, q := r.Factor, q
		if p.Cmp(q) > 0 {
			p, q = q, p
		}
		key := p.String() + "," + q.String()
		seen[key] = Pair{P: p, Q: q}
	}
	pairs := make([]Pair, 0, len(seen))
	for _, pair := range seen {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if c := pairs[i].P.Cmp(pairs[j].P); c != 0 {
			return c < 0
		}
		return pairs[i].Q.Cmp(pairs[j].Q) < 0
	})
	return pairs
}
