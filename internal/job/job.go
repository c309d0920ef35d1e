// Package job decodes the batch job file format the command line
// entry point consumes and encodes the line-delimited JSON reply
// stream it produces, including the base64 field-element and
// polynomial encodings shared by every action's arguments and
// results.
package job

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/rbnschffmchr/kauma/internal/field128"
	"github.com/rbnschffmchr/kauma/internal/gfpoly"
	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// File is the top-level job document: test cases in the order they
// appear in the source document, matching the reply stream's ordering
// requirement.
type File struct {
	Testcases []TestcaseEntry
}

// TestcaseEntry pairs a test case ID with its decoded case, preserving
// the document's key order (Go's JSON decoder does not preserve
// map-key order, so the top-level object is walked token by token).
type TestcaseEntry struct {
	ID   string
	Case Case
}

// Case is one test case: an action name and its raw JSON arguments,
// decoded further by the action's own handler.
type Case struct {
	Action    string          `json:"action"`
	Arguments json.RawMessage `json:"arguments"`
}

// Decode parses a job file's JSON bytes. A document without a
// top-level "testcases" key is treated as that object directly,
// matching the looser shape some job files use.
func Decode(raw []byte) (*File, error) {
	var probe struct {
		Testcases json.RawMessage `json:"testcases"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, kerr.Wrap(kerr.Encoding, err)
	}
	body := probe.Testcases
	if body == nil {
		body = raw
	}
	entries, err := decodeOrderedCases(body)
	if err != nil {
		return nil, err
	}
	return &File{Testcases: entries}, nil
}

// decodeOrderedCases walks a {"<id>": {...}, ...} object preserving
// the order its keys appear in, since encoding/json's map decoding
// does not.
func decodeOrderedCases(raw json.RawMessage) ([]TestcaseEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, kerr.Wrap(kerr.Encoding, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, kerr.New(kerr.Encoding, "job: expected a JSON object of test cases")
	}

	var entries []TestcaseEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, kerr.Wrap(kerr.Encoding, err)
		}
		id, ok := keyTok.(string)
		if !ok {
			return nil, kerr.New(kerr.Encoding, "job: test case key is not a string")
		}
		var c Case
		if err := dec.Decode(&c); err != nil {
			return nil, kerr.Wrap(kerr.Encoding, err)
		}
		entries = append(entries, TestcaseEntry{ID: id, Case: c})
	}
	return entries, nil
}

// Reply is one line of the output stream.
type Reply struct {
	ID    string `json:"id"`
	Reply any    `json:"reply"`
}

// DecodeBlock base64-decodes a 16-byte GCM-encoded field element.
func DecodeBlock(s string) (field128.Elem, error) {
	b, err := DecodeBytes(s)
	if err != nil {
		return field128.Elem{}, err
	}
	if len(b) != 16 {
		return field128.Elem{}, kerr.New(kerr.Encoding, "job: field element block has length %d, want 16", len(b))
	}
	var block field128.Block
	copy(block[:], b)
	return field128.Decode(block), nil
}

// EncodeBlock base64-encodes a field element as a 16-byte GCM-encoded
// block.
func EncodeBlock(e field128.Elem) string {
	block := field128.Encode(e)
	return EncodeBytes(block[:])
}

// DecodePoly decodes a polynomial given as an array of base64 block
// strings, low-degree first.
func DecodePoly(elems []string) (gfpoly.Poly, error) {
	coeffs := make([]field128.Elem, len(elems))
	for i, s := range elems {
		e, err := DecodeBlock(s)
		if err != nil {
			return gfpoly.Poly{}, err
		}
		coeffs[i] = e
	}
	return gfpoly.New(coeffs), nil
}

// EncodePoly encodes a polynomial as an array of base64 block
// strings, low-degree first.
func EncodePoly(p gfpoly.Poly) []string {
	out := make([]string, len(p.Coeffs))
	for i, c := range p.Coeffs {
		out[i] = EncodeBlock(c)
	}
	return out
}

// DecodeBytes base64-decodes an arbitrary byte string argument.
func DecodeBytes(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, kerr.Wrap(kerr.Encoding, err)
	}
	return b, nil
}

// EncodeBytes base64-encodes an arbitrary byte string result.
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// ParseBigInt converts a JSON number or a decimal/hex/octal string
// (accepting the same "0x"/"0o"/"0" prefixes Go's big.Int.SetString
// base-0 mode does) into an integer.
func ParseBigInt(v any) (*big.Int, error) {
	switch t := v.(type) {
	case json.Number:
		n, ok := new(big.Int).SetString(t.String(), 10)
		if !ok {
			return nil, kerr.New(kerr.Encoding, "job: invalid integer %q", t.String())
		}
		return n, nil
	case float64:
		return big.NewInt(int64(t)), nil
	case string:
		s := strings.TrimSpace(t)
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, kerr.New(kerr.Encoding, "job: invalid integer %q", t)
		}
		return n, nil
	default:
		return nil, kerr.New(kerr.Encoding, "job: expected a number or string, got %T", v)
	}
}

// thirtyTwoBitMin/Max bound the range Go's int32 covers, matching the
// "fits in 32 bits" test the JSON surface uses to decide between a
// plain number and a hex string.
var (
	thirtyTwoBitMin = big.NewInt(-1 << 31)
	thirtyTwoBitMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 31), big.NewInt(1))
)

// EncodeBigInt returns an int64 when v fits a signed 32-bit range, or
// its hex representation (with a leading "0x", sign preserved)
// otherwise.
func EncodeBigInt(v *big.Int) any {
	if v.Cmp(thirtyTwoBitMin) >= 0 && v.Cmp(thirtyTwoBitMax) <= 0 {
		return v.Int64()
	}
	if v.Sign() < 0 {
		return "-0x" + new(big.Int).Neg(v).Text(16)
	}
	return "0x" + v.Text(16)
}

// BigInt wraps big.Int so struct fields can decode either a JSON
// number or a decimal/hex/octal string argument, and encode back in
// the same number-or-hex shape.
type BigInt struct {
	*big.Int
}

// UnmarshalJSON accepts a bare JSON number literal or a quoted string.
func (b *BigInt) UnmarshalJSON(raw []byte) error {
	s := strings.Trim(string(raw), `"`)
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		// base-0 parsing rejects a plain decimal literal with no
		// prefix only when it has a leading zero; fall back to base 10.
		n, ok = new(big.Int).SetString(s, 10)
		if !ok {
			return kerr.New(kerr.Encoding, "job: invalid integer %q", s)
		}
	}
	b.Int = n
	return nil
}

// MarshalJSON emits the int64-or-hex-string shape EncodeBigInt defines.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeBigInt(b.Int))
}
