package signer

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// HexSHA256 returns the lowercase hex encoded SHA-256 digest of data.
func HexSHA256(data []byte) string {
	return hex.EncodeToString(SHA256(data))
}

// HMACSHA256 computes HMAC-SHA256 of data with the given key.
// Reference: AWS SDK v4 signer internal/v4/hmac.go HMACSHA256
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

var (
	selfTestOnce sync.Once
	selfTestErr  error
)

// SelfTest checks the hash backend against known answers (FIPS 180-4 "abc"
// and RFC 4231 test case 2). The result is computed once per process.
func SelfTest() error {
	selfTestOnce.Do(func() {
		selfTestErr = runSelfTest(SHA256, HMACSHA256)
	})
	return selfTestErr
}

func runSelfTest(digest func([]byte) []byte, mac func(key, data []byte) []byte) error {
	want, _ := hex.DecodeString("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if got := digest([]byte("abc")); !bytes.Equal(got, want) {
		return fmt.Errorf("%w: sha256 known answer mismatch", ErrCryptoBackend)
	}
	want, _ = hex.DecodeString("5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843")
	if got := mac([]byte("Jefe"), []byte("what do ya want for nothing?")); !bytes.Equal(got, want) {
		return fmt.Errorf("%w: hmac-sha256 known answer mismatch", ErrCryptoBackend)
	}
	return nil
}
