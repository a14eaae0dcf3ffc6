package signer

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestSHA256(t *testing.T) {
	if got := HexSHA256(nil); got != EmptyStringSHA256 {
		t.Errorf("expected %s, got %s", EmptyStringSHA256, got)
	}
	if got := HexSHA256([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected digest %s", got)
	}
}

func TestHMACSHA256(t *testing.T) {
	// RFC 4231 test case 2.
	mac := HMACSHA256([]byte("Jefe"), []byte("what do ya want for nothing?"))

	expected := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if hex.EncodeToString(mac) != expected {
		t.Errorf("expected %s, got %x", expected, mac)
	}
}

func TestSelfTest(t *testing.T) {
	if err := SelfTest(); err != nil {
		t.Fatalf("expected self test to pass, got %v", err)
	}

	broken := func(data []byte) []byte { return make([]byte, 32) }
	err := runSelfTest(broken, HMACSHA256)
	if !errors.Is(err, ErrCryptoBackend) {
		t.Errorf("expected ErrCryptoBackend, got %v", err)
	}

	brokenMAC := func(key, data []byte) []byte { return SHA256(data) }
	err = runSelfTest(SHA256, brokenMAC)
	if !errors.Is(err, ErrCryptoBackend) {
		t.Errorf("expected ErrCryptoBackend, got %v", err)
	}
}
