package signer

import (
	"fmt"
	"time"
)

// Credentials is an access key pair. The secret never leaves the signer
// except as input to the key derivation.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// String implements fmt.Stringer without revealing the secret.
func (c Credentials) String() string {
	return RedactAccessKey(c.AccessKeyID) + ":[redacted]"
}

// GoString implements fmt.GoStringer so %#v does not leak the secret either.
func (c Credentials) GoString() string {
	return "signer.Credentials{" + c.String() + "}"
}

// Config holds the configuration for SigV4 signing.
// All fields are required except Service, which defaults to "s3",
// CacheSigningKeys and Clock.
type Config struct {
	Credentials Credentials

	// Region is the signing region (e.g., "auto" for Cloudflare R2).
	Region string

	// Service is the signing service name (defaults to "s3").
	Service string

	// CacheSigningKeys reuses derived signing keys within the same UTC day.
	// When false every request derives its key from scratch.
	CacheSigningKeys bool

	// Clock supplies the signing instant. Defaults to time.Now.
	Clock func() time.Time
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("%w: region is required", ErrConfiguration)
	}
	if c.Credentials.AccessKeyID == "" {
		return fmt.Errorf("%w: access key ID is required", ErrConfiguration)
	}
	if c.Credentials.SecretAccessKey == "" {
		return fmt.Errorf("%w: secret access key is required", ErrConfiguration)
	}
	if c.Service == "" {
		c.Service = DefaultService
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return nil
}

// RedactAccessKey keeps the first four characters of an access key ID.
func RedactAccessKey(id string) string {
	const keep = 4
	if len(id) <= keep {
		return "****"
	}
	return id[:keep] + "****"
}
