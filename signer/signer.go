package signer

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Signer computes AWS Signature Version 4 artifacts. It holds no mutable
// state unless signing key caching is enabled, in which case the cache is
// synchronised. A Signer is safe for concurrent use.
//
// Reference: AWS SDK v4 signer v4.go Signer struct
type Signer struct {
	config       Config
	keyDerivator keyDerivator
}

// NewSigner creates a new Signer with the given config. It fails with
// ErrConfiguration on missing parameters and ErrCryptoBackend when the hash
// backend does not pass its known answer test.
func NewSigner(config Config) (*Signer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := SelfTest(); err != nil {
		return nil, err
	}

	var kd keyDerivator = freshDeriver{}
	if config.CacheSigningKeys {
		kd = NewCachingKeyDeriver()
	}

	return &Signer{
		config:       config,
		keyDerivator: kd,
	}, nil
}

// AccessKeyID returns the access key ID used in credential strings.
func (s *Signer) AccessKeyID() string { return s.config.Credentials.AccessKeyID }

// Region returns the signing region.
func (s *Signer) Region() string { return s.config.Region }

// Service returns the signing service.
func (s *Signer) Service() string { return s.config.Service }

// Descriptor identifies the request being signed. Path must already be
// percent-encoded and start with '/'.
type Descriptor struct {
	Method string
	Path   string
	Host   string
}

// Validate checks the descriptor before any hashing happens.
func (d Descriptor) Validate() error {
	if d.Method == "" {
		return fmt.Errorf("%w: method is required", ErrConfiguration)
	}
	if d.Host == "" {
		return fmt.Errorf("%w: host is required", ErrConfiguration)
	}
	return ValidatePath(d.Path)
}

// Artifacts are the products of one signing operation. They are single-use:
// sign again for every attempt.
type Artifacts struct {
	AmzDate          string
	DateStamp        string
	CredentialScope  string
	CanonicalRequest string
	SignedHeaders    string
	StringToSign     string
	Signature        string
	Authorization    string
}

// Apply sets the headers the server needs to recompute the signature.
func (a *Artifacts) Apply(h http.Header) {
	h.Set(AuthorizationHeader, a.Authorization)
	h.Set(AmzDateKey, a.AmzDate)
	h.Set(ContentSHAKey, UnsignedPayload)
}

// Sign signs d for an unsigned payload at the current instant. The clock is
// read exactly once.
func (s *Signer) Sign(d Descriptor) (*Artifacts, error) {
	return s.SignAt(d, s.config.Clock())
}

// SignAt signs d for an unsigned payload at signingTime.
func (s *Signer) SignAt(d Descriptor, signingTime time.Time) (*Artifacts, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	st := NewSigningTime(signingTime)
	amzDate := st.AmzDate()
	credentialScope := BuildCredentialScope(st, s.config.Region, s.config.Service)

	signedHeaders, canonicalHeaders := BuildUnsignedCanonicalHeaders(d.Host, amzDate)
	canonicalRequest := BuildCanonicalString(
		d.Method,
		d.Path,
		"",
		signedHeaders,
		canonicalHeaders,
		UnsignedPayload,
	)

	strToSign := BuildStringToSign(SigningAlgorithm, amzDate, credentialScope, canonicalRequest)

	key := s.keyDerivator.DeriveKey(
		s.config.Credentials.SecretAccessKey,
		s.config.Service,
		s.config.Region,
		st,
	)
	signature := BuildSignature(key, strToSign)

	return &Artifacts{
		AmzDate:          amzDate,
		DateStamp:        st.DateStamp(),
		CredentialScope:  credentialScope,
		CanonicalRequest: canonicalRequest,
		SignedHeaders:    signedHeaders,
		StringToSign:     strToSign,
		Signature:        signature,
		Authorization: BuildAuthorizationHeader(
			s.config.Credentials.AccessKeyID+"/"+credentialScope,
			signedHeaders,
			signature,
		),
	}, nil
}

// SignHTTP signs an arbitrary HTTP request with full header canonicalisation.
// The request is modified in place: X-Amz-Date and Authorization are set.
// payloadHash is the hex SHA-256 of the body, EmptyStringSHA256 or
// UnsignedPayload; it is not added as a header.
// Reference: AWS SDK v4 signer v4.go SignHTTP method
func (s *Signer) SignHTTP(req *http.Request, payloadHash string, signingTime time.Time) (*Artifacts, error) {
	if payloadHash == "" {
		return nil, fmt.Errorf("%w: payload hash is required", ErrConfiguration)
	}

	st := NewSigningTime(signingTime)
	amzDate := st.AmzDate()
	req.Header.Set(AmzDateKey, amzDate)

	query := req.URL.Query()
	for key := range query {
		sort.Strings(query[key])
	}
	rawQuery := strings.ReplaceAll(query.Encode(), "+", "%20")

	SanitizeHostForHeader(req)

	credentialScope := BuildCredentialScope(st, s.config.Region, s.config.Service)

	signedHeadersStr, canonicalHeaderStr := BuildCanonicalHeaders(GetHost(req), req.Header, req.ContentLength)

	canonicalString := BuildCanonicalString(
		req.Method,
		GetURIPath(req.URL),
		rawQuery,
		signedHeadersStr,
		canonicalHeaderStr,
		payloadHash,
	)

	strToSign := BuildStringToSign(SigningAlgorithm, amzDate, credentialScope, canonicalString)

	key := s.keyDerivator.DeriveKey(
		s.config.Credentials.SecretAccessKey,
		s.config.Service,
		s.config.Region,
		st,
	)
	signature := BuildSignature(key, strToSign)

	authHeader := BuildAuthorizationHeader(
		s.config.Credentials.AccessKeyID+"/"+credentialScope,
		signedHeadersStr,
		signature,
	)

	req.Header.Set(AuthorizationHeader, authHeader)
	req.URL.RawQuery = rawQuery

	return &Artifacts{
		AmzDate:          amzDate,
		DateStamp:        st.DateStamp(),
		CredentialScope:  credentialScope,
		CanonicalRequest: canonicalString,
		SignedHeaders:    signedHeadersStr,
		StringToSign:     strToSign,
		Signature:        signature,
		Authorization:    authHeader,
	}, nil
}

// DescriptorFromURL builds a Descriptor for method and the encoded path and
// host of rawURL. A default port is dropped from the host.
func DescriptorFromURL(method, rawURL string) (Descriptor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if u.Host == "" {
		return Descriptor{}, fmt.Errorf("%w: URL %q has no host", ErrConfiguration, rawURL)
	}
	return Descriptor{
		Method: method,
		Path:   GetURIPath(u),
		Host:   CanonicalHost(u.Scheme, u.Host),
	}, nil
}
