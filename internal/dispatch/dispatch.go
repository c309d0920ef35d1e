// Package dispatch maps job-file action names onto the core
// components (internal/field128, gfpoly, gcm, gcmcrack,
// paddingoracle, rsafactor, calc) and handles the JSON argument and
// reply shapes each action uses on the wire.
package dispatch

import (
	"context"
	"encoding/json"
	"math/big"
	weak "math/rand"
	"net"
	"strconv"
	"time"

	"github.com/rbnschffmchr/kauma/internal/calc"
	"github.com/rbnschffmchr/kauma/internal/field128"
	"github.com/rbnschffmchr/kauma/internal/gcm"
	"github.com/rbnschffmchr/kauma/internal/gcmcrack"
	"github.com/rbnschffmchr/kauma/internal/gfpoly"
	"github.com/rbnschffmchr/kauma/internal/job"
	"github.com/rbnschffmchr/kauma/internal/kerr"
	"github.com/rbnschffmchr/kauma/internal/paddingoracle"
	"github.com/rbnschffmchr/kauma/internal/rsafactor"
)

// Handler runs one action against its raw JSON arguments and returns
// the reply value to encode, or an error.
type Handler func(ctx context.Context, raw json.RawMessage) (any, error)

// Registry is the action-name-to-handler lookup table.
type Registry map[string]Handler

func decodeArgs(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return kerr.Wrap(kerr.Encoding, err)
	}
	return nil
}

func modulusOf(name string) (field128.Modulus, error) {
	return field128.ModulusByName(name)
}

// New builds the default registry, using rng as the shared EDF
// randomness source for every factoring action and oracleTimeout as
// the padding-oracle client's per-request network timeout.
func New(rng *weak.Rand, oracleTimeout time.Duration) Registry {
	r := Registry{}

	r["calc"] = handleCalc

	r["gf_mul"] = handleGFMul
	r["gfmul"] = handleGFMul
	r["gf_div"] = handleGFDiv
	r["gfdiv"] = handleGFDiv
	r["gf_inv"] = handleGFInv
	r["gf_pow"] = handleGFPow
	r["gf_sqrt"] = handleGFSqrt
	r["gf_divmod"] = handleGFDivMod

	r["gfpoly_sort"] = handleGFPolySort
	r["gfpoly_monic"] = handleGFPolyMonic
	r["gfpoly_make_monic"] = handleGFPolyMonic
	r["gfpoly_add"] = handleGFPolyAdd
	r["gfpoly_mul"] = handleGFPolyMul
	r["gfpoly_divmod"] = handleGFPolyDivMod
	r["gfpoly_gcd"] = handleGFPolyGCD
	r["gfpoly_pow"] = handleGFPolyPow
	r["gfpoly_powmod"] = handleGFPolyPowMod
	r["gfpoly_diff"] = handleGFPolyDiff
	r["gfpoly_sqrt"] = handleGFPolySqrt

	r["gfpoly_factor_sff"] = handleGFPolyFactorSFF
	r["gfpoly_factor_ddf"] = handleGFPolyFactorDDF
	r["gfpoly_factor_edf"] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		return handleGFPolyFactorEDF(rng, raw)
	}

	r["gcm_encrypt"] = handleGCMEncrypt
	r["gcm_decrypt"] = handleGCMDecrypt
	r["gcm_crack"] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		return handleGCMCrack(rng, raw)
	}

	r["padding_oracle"] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		return handlePaddingOracle(ctx, raw, oracleTimeout)
	}
	r["rsa_factor"] = handleRSAFactor

	return r
}

// blockArgs decodes a two-operand, poly-qualified field argument set.
type blockArgs struct {
	A    string `json:"a"`
	B    string `json:"b"`
	Poly string `json:"poly"`
}

func handleGFMul(ctx context.Context, raw json.RawMessage) (any, error) {
	var args blockArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	a, err := job.DecodeBlock(args.A)
	if err != nil {
		return nil, err
	}
	b, err := job.DecodeBlock(args.B)
	if err != nil {
		return nil, err
	}
	y := field128.Mul(a, b, mod)
	return map[string]any{"y": job.EncodeBlock(y)}, nil
}

func handleGFDiv(ctx context.Context, raw json.RawMessage) (any, error) {
	var args blockArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	a, err := job.DecodeBlock(args.A)
	if err != nil {
		return nil, err
	}
	b, err := job.DecodeBlock(args.B)
	if err != nil {
		return nil, err
	}
	q, err := field128.Div(a, b, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"q": job.EncodeBlock(q)}, nil
}

func handleGFInv(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		X    string `json:"x"`
		Poly string `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	x, err := job.DecodeBlock(args.X)
	if err != nil {
		return nil, err
	}
	y, err := field128.Inv(x, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"y": job.EncodeBlock(y)}, nil
}

func handleGFPow(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		B    string      `json:"b"`
		E    job.BigInt  `json:"e"`
		Poly string      `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	b, err := job.DecodeBlock(args.B)
	if err != nil {
		return nil, err
	}
	y := field128.Pow(b, args.E.Int, mod)
	return map[string]any{"y": job.EncodeBlock(y)}, nil
}

func handleGFSqrt(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		X    string `json:"x"`
		Poly string `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	x, err := job.DecodeBlock(args.X)
	if err != nil {
		return nil, err
	}
	y := field128.Sqrt(x, mod)
	return map[string]any{"y": job.EncodeBlock(y)}, nil
}

// handleGFDivMod runs the raw, unreduced GF(2)[x] polynomial division
// the "gf_divmod" action exposes — distinct from field division, and
// taking no "poly" argument because no reduction is involved.
func handleGFDivMod(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	a, err := job.DecodeBlock(args.A)
	if err != nil {
		return nil, err
	}
	b, err := job.DecodeBlock(args.B)
	if err != nil {
		return nil, err
	}
	q, r, err := field128.RawPolyDivMod(a, b)
	if err != nil {
		return nil, err
	}
	return map[string]any{"q": job.EncodeBlock(q), "r": job.EncodeBlock(r)}, nil
}

// polyPair decodes two poly-qualified polynomial arguments, "A"/"B".
type polyPair struct {
	A    []string `json:"A"`
	B    []string `json:"B"`
	Poly string   `json:"poly"`
}

func decodePolyPair(raw json.RawMessage) (gfpoly.Poly, gfpoly.Poly, field128.Modulus, error) {
	var args polyPair
	if err := decodeArgs(raw, &args); err != nil {
		return gfpoly.Poly{}, gfpoly.Poly{}, field128.Modulus{}, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return gfpoly.Poly{}, gfpoly.Poly{}, field128.Modulus{}, err
	}
	a, err := job.DecodePoly(args.A)
	if err != nil {
		return gfpoly.Poly{}, gfpoly.Poly{}, field128.Modulus{}, err
	}
	b, err := job.DecodePoly(args.B)
	if err != nil {
		return gfpoly.Poly{}, gfpoly.Poly{}, field128.Modulus{}, err
	}
	return a, b, mod, nil
}

func handleGFPolySort(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Polys [][]string `json:"polys"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	polys := make([]gfpoly.Poly, len(args.Polys))
	for i, p := range args.Polys {
		decoded, err := job.DecodePoly(p)
		if err != nil {
			return nil, err
		}
		polys[i] = decoded
	}
	sorted := gfpoly.Sort(polys)
	out := make([][]string, len(sorted))
	for i, p := range sorted {
		out[i] = job.EncodePoly(p)
	}
	return map[string]any{"sorted": out}, nil
}

func handleGFPolyMonic(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		A    []string `json:"A"`
		Poly string   `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	a, err := job.DecodePoly(args.A)
	if err != nil {
		return nil, err
	}
	m, err := gfpoly.Monic(a, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"A*": job.EncodePoly(m)}, nil
}

func handleGFPolyAdd(ctx context.Context, raw json.RawMessage) (any, error) {
	a, b, _, err := decodePolyPair(raw)
	if err != nil {
		return nil, err
	}
	return map[string]any{"S": job.EncodePoly(gfpoly.Add(a, b))}, nil
}

func handleGFPolyMul(ctx context.Context, raw json.RawMessage) (any, error) {
	a, b, mod, err := decodePolyPair(raw)
	if err != nil {
		return nil, err
	}
	return map[string]any{"P": job.EncodePoly(gfpoly.Mul(a, b, mod))}, nil
}

func handleGFPolyDivMod(ctx context.Context, raw json.RawMessage) (any, error) {
	a, b, mod, err := decodePolyPair(raw)
	if err != nil {
		return nil, err
	}
	q, r, err := gfpoly.DivMod(a, b, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Q": job.EncodePoly(q), "R": job.EncodePoly(r)}, nil
}

func handleGFPolyGCD(ctx context.Context, raw json.RawMessage) (any, error) {
	a, b, mod, err := decodePolyPair(raw)
	if err != nil {
		return nil, err
	}
	g, err := gfpoly.GCD(a, b, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"G": job.EncodePoly(g)}, nil
}

func handleGFPolyPow(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		B    []string   `json:"B"`
		E    job.BigInt `json:"e"`
		Poly string     `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	b, err := job.DecodePoly(args.B)
	if err != nil {
		return nil, err
	}
	z := gfpoly.Pow(b, args.E.Int, mod)
	return map[string]any{"Z": job.EncodePoly(z)}, nil
}

func handleGFPolyPowMod(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		B    []string   `json:"B"`
		M    []string   `json:"M"`
		E    job.BigInt `json:"e"`
		Poly string     `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	b, err := job.DecodePoly(args.B)
	if err != nil {
		return nil, err
	}
	m, err := job.DecodePoly(args.M)
	if err != nil {
		return nil, err
	}
	z, err := gfpoly.PowMod(b, args.E.Int, m, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Z": job.EncodePoly(z)}, nil
}

func handleGFPolyDiff(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		F    []string `json:"F"`
		Poly string   `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	f, err := job.DecodePoly(args.F)
	if err != nil {
		return nil, err
	}
	return map[string]any{"F'": job.EncodePoly(gfpoly.Diff(f))}, nil
}

func handleGFPolySqrt(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		S    []string `json:"S"`
		Poly string   `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	s, err := job.DecodePoly(args.S)
	if err != nil {
		return nil, err
	}
	root, err := gfpoly.Sqrt(s, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{"R": job.EncodePoly(root)}, nil
}

func decodeSingleFactorArgs(raw json.RawMessage) (gfpoly.Poly, field128.Modulus, error) {
	var args struct {
		F    []string `json:"F"`
		Poly string   `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return gfpoly.Poly{}, field128.Modulus{}, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return gfpoly.Poly{}, field128.Modulus{}, err
	}
	f, err := job.DecodePoly(args.F)
	if err != nil {
		return gfpoly.Poly{}, field128.Modulus{}, err
	}
	return f, mod, nil
}

func handleGFPolyFactorSFF(ctx context.Context, raw json.RawMessage) (any, error) {
	f, mod, err := decodeSingleFactorArgs(raw)
	if err != nil {
		return nil, err
	}
	terms, err := gfpoly.SFF(f, mod)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(terms))
	for i, t := range terms {
		out[i] = map[string]any{"factor": job.EncodePoly(t.Factor), "exponent": t.Exponent}
	}
	return map[string]any{"factors": out}, nil
}

func handleGFPolyFactorDDF(ctx context.Context, raw json.RawMessage) (any, error) {
	f, mod, err := decodeSingleFactorArgs(raw)
	if err != nil {
		return nil, err
	}
	terms, err := gfpoly.DDF(f, mod)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(terms))
	for i, t := range terms {
		out[i] = map[string]any{"factor": job.EncodePoly(t.Factor), "degree": t.Degree}
	}
	return map[string]any{"factors": out}, nil
}

func handleGFPolyFactorEDF(rng *weak.Rand, raw json.RawMessage) (any, error) {
	var args struct {
		F    []string `json:"F"`
		D    int      `json:"d"`
		Poly string   `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	f, err := job.DecodePoly(args.F)
	if err != nil {
		return nil, err
	}
	factors, err := gfpoly.EDF(f, args.D, rng, mod)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(factors))
	for i, fac := range factors {
		out[i] = job.EncodePoly(fac)
	}
	return map[string]any{"factors": out}, nil
}

func handleGCMEncrypt(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Key       string `json:"key"`
		Nonce     string `json:"nonce"`
		Plaintext string `json:"plaintext"`
		AD        string `json:"ad"`
		Poly      string `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	key, err := job.DecodeBytes(args.Key)
	if err != nil {
		return nil, err
	}
	nonce, err := job.DecodeBytes(args.Nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := job.DecodeBytes(args.Plaintext)
	if err != nil {
		return nil, err
	}
	ad, err := job.DecodeBytes(args.AD)
	if err != nil {
		return nil, err
	}
	res, err := gcm.Encrypt(key, nonce, plaintext, ad, mod)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"ciphertext": job.EncodeBytes(res.Ciphertext),
		"tag":        job.EncodeBytes(res.Tag[:]),
		"L":          job.EncodeBytes(res.L[:]),
		"H":          job.EncodeBytes(res.H[:]),
	}, nil
}

func handleGCMDecrypt(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Key        string `json:"key"`
		Nonce      string `json:"nonce"`
		Ciphertext string `json:"ciphertext"`
		AD         string `json:"ad"`
		Tag        string `json:"tag"`
		Poly       string `json:"poly"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	key, err := job.DecodeBytes(args.Key)
	if err != nil {
		return nil, err
	}
	nonce, err := job.DecodeBytes(args.Nonce)
	if err != nil {
		return nil, err
	}
	ciphertext, err := job.DecodeBytes(args.Ciphertext)
	if err != nil {
		return nil, err
	}
	ad, err := job.DecodeBytes(args.AD)
	if err != nil {
		return nil, err
	}
	tagBytes, err := job.DecodeBytes(args.Tag)
	if err != nil {
		return nil, err
	}
	if len(tagBytes) != 16 {
		return nil, kerr.New(kerr.Encoding, "gcm_decrypt: tag has length %d, want 16", len(tagBytes))
	}
	var tag [16]byte
	copy(tag[:], tagBytes)

	plaintext, err := gcm.Decrypt(key, nonce, ciphertext, tag, ad, mod)
	if err != nil {
		return map[string]any{"authentic": false}, nil
	}
	return map[string]any{"authentic": true, "plaintext": job.EncodeBytes(plaintext)}, nil
}

func decodeGCMMessage(m struct {
	AssociatedData string `json:"associated_data"`
	Ciphertext     string `json:"ciphertext"`
	Tag            string `json:"tag"`
}) (gcmcrack.Message, error) {
	var ad []byte
	var err error
	if m.AssociatedData != "" {
		ad, err = job.DecodeBytes(m.AssociatedData)
		if err != nil {
			return gcmcrack.Message{}, err
		}
	}
	ciphertext, err := job.DecodeBytes(m.Ciphertext)
	if err != nil {
		return gcmcrack.Message{}, err
	}
	tagBytes, err := job.DecodeBytes(m.Tag)
	if err != nil {
		return gcmcrack.Message{}, err
	}
	if len(tagBytes) != 16 {
		return gcmcrack.Message{}, kerr.New(kerr.Encoding, "gcm_crack: tag has length %d, want 16", len(tagBytes))
	}
	var tag [16]byte
	copy(tag[:], tagBytes)
	return gcmcrack.Message{AD: ad, Ciphertext: ciphertext, Tag: tag}, nil
}

func handleGCMCrack(rng *weak.Rand, raw json.RawMessage) (any, error) {
	type wireMessage struct {
		AssociatedData string `json:"associated_data"`
		Ciphertext     string `json:"ciphertext"`
		Tag            string `json:"tag"`
	}
	var args struct {
		Poly    string      `json:"poly"`
		M1      wireMessage `json:"m1"`
		M2      wireMessage `json:"m2"`
		M3      wireMessage `json:"m3"`
		Forgery struct {
			AssociatedData string `json:"associated_data"`
			Ciphertext     string `json:"ciphertext"`
		} `json:"forgery"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mod, err := modulusOf(args.Poly)
	if err != nil {
		return nil, err
	}
	m1, err := decodeGCMMessage(args.M1)
	if err != nil {
		return nil, err
	}
	m2, err := decodeGCMMessage(args.M2)
	if err != nil {
		return nil, err
	}
	m3, err := decodeGCMMessage(args.M3)
	if err != nil {
		return nil, err
	}
	rec, err := gcmcrack.Recover(m1, m2, m3, rng, mod)
	if err != nil {
		return nil, err
	}

	var forgeAD []byte
	if args.Forgery.AssociatedData != "" {
		forgeAD, err = job.DecodeBytes(args.Forgery.AssociatedData)
		if err != nil {
			return nil, err
		}
	}
	forgeCT, err := job.DecodeBytes(args.Forgery.Ciphertext)
	if err != nil {
		return nil, err
	}
	tag := gcmcrack.Forge(rec, forgeAD, forgeCT, mod)

	return map[string]any{
		"tag":  job.EncodeBytes(tag[:]),
		"H":    job.EncodeBlock(rec.H),
		"mask": job.EncodeBlock(rec.EY0),
	}, nil
}

func handlePaddingOracle(ctx context.Context, raw json.RawMessage, timeout time.Duration) (any, error) {
	var args struct {
		Hostname   string `json:"hostname"`
		Port       int    `json:"port"`
		KeyID      int    `json:"key_id"`
		IV         string `json:"iv"`
		Ciphertext string `json:"ciphertext"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	ivBytes, err := job.DecodeBytes(args.IV)
	if err != nil {
		return nil, err
	}
	if len(ivBytes) != 16 {
		return nil, kerr.New(kerr.Encoding, "padding_oracle: iv has length %d, want 16", len(ivBytes))
	}
	var iv [16]byte
	copy(iv[:], ivBytes)
	ciphertext, err := job.DecodeBytes(args.Ciphertext)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(args.Hostname, strconv.Itoa(args.Port))
	plaintext, err := paddingoracle.Attack(ctx, addr, uint16(args.KeyID), timeout, iv, ciphertext)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}
	return map[string]any{"plaintext": job.EncodeBytes(plaintext)}, nil
}

func handleRSAFactor(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Moduli []job.BigInt `json:"moduli"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	moduli := make([]*big.Int, len(args.Moduli))
	for i, m := range args.Moduli {
		moduli[i] = m.Int
	}
	results, err := rsafactor.BatchGCD(moduli)
	if err != nil {
		return nil, err
	}
	pairs := rsafactor.PairwiseShared(moduli, results)
	out := make([][]any, len(pairs))
	for i, p := range pairs {
		out[i] = []any{job.EncodeBigInt(p.P), job.EncodeBigInt(p.Q)}
	}
	return map[string]any{"factored_moduli": out}, nil
}

func handleCalc(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		LHS job.BigInt `json:"lhs"`
		RHS job.BigInt `json:"rhs"`
		Op  string     `json:"op"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	answer, err := calc.Eval(args.LHS.Int, args.RHS.Int, args.Op)
	if err != nil {
		return nil, err
	}
	return map[string]any{"answer": job.EncodeBigInt(answer)}, nil
}
