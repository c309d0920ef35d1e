package paddingoracle

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	weak "math/rand"
	"net"
	"testing"
	"time"
)

func init() { weak.Seed(time.Now().UnixNano()) }

// serveOracle runs a single padding-oracle session on conn: it reads
// the key ID and target block, then repeatedly answers guess batches
// until it receives a zero-length batch or the connection closes.
// This stands in for the remote system the real client talks to; it
// is test scaffolding, not the attack under test.
func serveOracle(conn net.Conn, block cipher.Block) {
	defer conn.Close()

	readExact := func(n int) ([]byte, error) {
		buf := make([]byte, n)
		read := 0
		for read < n {
			m, err := conn.Read(buf[read:])
			if err != nil {
				return nil, err
			}
			read += m
		}
		return buf, nil
	}

	if _, err := readExact(2); err != nil {
		return
	}
	targetRaw, err := readExact(16)
	if err != nil {
		return
	}
	var decryptedTarget [16]byte
	block.Decrypt(decryptedTarget[:], targetRaw)

	for {
		countRaw, err := readExact(2)
		if err != nil {
			return
		}
		count := binary.BigEndian.Uint16(countRaw)
		if count == 0 {
			return
		}
		guessesRaw, err := readExact(int(count) * 16)
		if err != nil {
			return
		}
		resp := make([]byte, count)
		for i := 0; i < int(count); i++ {
			var pt [16]byte
			for j := 0; j < 16; j++ {
				pt[j] = decryptedTarget[j] ^ guessesRaw[i*16+j]
			}
			if validPadding(pt[:]) {
				resp[i] = 1
			}
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func startTestOracleServer(t *testing.T, key []byte) string {
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveOracle(conn, block)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

// pkcs7Pad pads buf to a multiple of 16 bytes.
func pkcs7Pad(buf []byte) []byte {
	n := 16 - len(buf)%16
	out := make([]byte, len(buf)+n)
	copy(out, buf)
	for i := len(buf); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func TestAttackRecoversPlaintextOverTCP(t *testing.T) {
	key := make([]byte, 16)
	weak.Read(key)
	var iv [16]byte
	weak.Read(iv[:])

	plaintext := pkcs7Pad([]byte("the quick brown fox jumps!"))
	aesCipher, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(aesCipher, iv[:]).CryptBlocks(ciphertext, plaintext)

	addr := startTestOracleServer(t, key)

	got, err := Attack(context.Background(), addr, 7, time.Second, iv, ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("recovered = %q, want %q", got, plaintext)
	}
}
