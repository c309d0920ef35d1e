package job

import (
	"math/big"
	"testing"

	"github.com/rbnschffmchr/kauma/internal/field128"
)

func TestDecodePreservesOrder(t *testing.T) {
	raw := []byte(`{"testcases": {
		"c": {"action": "calc", "arguments": {}},
		"a": {"action": "calc", "arguments": {}},
		"b": {"action": "calc", "arguments": {}}
	}}`)
	f, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"c", "a", "b"}
	if len(f.Testcases) != len(want) {
		t.Fatalf("got %d entries, want %d", len(f.Testcases), len(want))
	}
	for i, id := range want {
		if f.Testcases[i].ID != id {
			t.Errorf("entry %d: id = %q, want %q", i, f.Testcases[i].ID, id)
		}
	}
}

func TestDecodeFlatShape(t *testing.T) {
	raw := []byte(`{"x": {"action": "calc", "arguments": {}}}`)
	f, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Testcases) != 1 || f.Testcases[0].ID != "x" {
		t.Fatalf("got %+v, want one entry with id x", f.Testcases)
	}
}

func TestBlockCodecRoundTrip(t *testing.T) {
	e := field128.Elem{Lo: 0x0102030405060708, Hi: 0x1112131415161718}
	s := EncodeBlock(e)
	got, err := DecodeBlock(s)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(e) {
		t.Errorf("round trip: got %+v, want %+v", got, e)
	}
}

func TestEncodeBigIntSmallFitsInt64(t *testing.T) {
	if v := EncodeBigInt(big.NewInt(42)); v != int64(42) {
		t.Errorf("EncodeBigInt(42) = %v (%T), want int64(42)", v, v)
	}
}

func TestEncodeBigIntLargeUsesHex(t *testing.T) {
	big35 := new(big.Int).Lsh(big.NewInt(1), 35)
	v := EncodeBigInt(big35)
	s, ok := v.(string)
	if !ok {
		t.Fatalf("EncodeBigInt(2^35) = %v (%T), want string", v, v)
	}
	if s[:2] != "0x" {
		t.Errorf("EncodeBigInt(2^35) = %q, want 0x-prefixed", s)
	}
}

func TestBigIntUnmarshalAcceptsNumberAndHexString(t *testing.T) {
	var fromNumber BigInt
	if err := fromNumber.UnmarshalJSON([]byte(`42`)); err != nil {
		t.Fatal(err)
	}
	if fromNumber.Int64() != 42 {
		t.Errorf("got %s, want 42", fromNumber.String())
	}

	var fromHex BigInt
	if err := fromHex.UnmarshalJSON([]byte(`"0x2a"`)); err != nil {
		t.Fatal(err)
	}
	if fromHex.Int64() != 42 {
		t.Errorf("got %s, want 42", fromHex.String())
	}
}
