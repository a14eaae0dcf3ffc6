package signer

import "strings"

// keyDerivator produces the signing key for one request.
// Reference: AWS SDK v4 signer v4.go keyDerivator interface
type keyDerivator interface {
	DeriveKey(secretAccessKey, service, region string, signingTime SigningTime) []byte
}

// freshDeriver derives a new key on every call. It is the default: nothing
// derived from the secret outlives the signing call.
type freshDeriver struct{}

func (freshDeriver) DeriveKey(secretAccessKey, service, region string, signingTime SigningTime) []byte {
	return DeriveSigningKey(secretAccessKey, signingTime.DateStamp(), region, service)
}

// lookupKey creates a cache key from the secret fingerprint and scope.
func lookupKey(secretFingerprint, dateStamp, region, service string) string {
	var b strings.Builder
	b.Grow(len(secretFingerprint) + len(dateStamp) + len(region) + len(service) + 3)
	b.WriteString(secretFingerprint)
	b.WriteRune('/')
	b.WriteString(dateStamp)
	b.WriteRune('/')
	b.WriteString(region)
	b.WriteRune('/')
	b.WriteString(service)
	return b.String()
}

// CachingKeyDeriver reuses derived keys within one UTC day.
// Keys are cached per (secret, dateStamp, region, service).
// Reference: AWS SDK v4 signer internal/v4/cache.go
type CachingKeyDeriver struct {
	cache *derivedKeyCache
}

// NewCachingKeyDeriver creates a CachingKeyDeriver with an empty cache.
func NewCachingKeyDeriver() *CachingKeyDeriver {
	return &CachingKeyDeriver{cache: newDerivedKeyCache()}
}

// DeriveKey returns the cached key for the scope or derives and stores it.
func (k *CachingKeyDeriver) DeriveKey(secretAccessKey, service, region string, signingTime SigningTime) []byte {
	dateStamp := signingTime.DateStamp()
	cacheKey := lookupKey(HexSHA256([]byte(secretAccessKey)), dateStamp, region, service)
	if key, ok := k.cache.get(cacheKey, dateStamp); ok {
		return key
	}

	key := DeriveSigningKey(secretAccessKey, dateStamp, region, service)
	k.cache.set(cacheKey, dateStamp, key)
	return key
}

// Len reports the number of cached keys.
func (k *CachingKeyDeriver) Len() int {
	return k.cache.len()
}
