package signer

import (
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// BuildCredentialScope builds the SigV4 credential scope.
// Format: date/region/service/aws4_request
// Reference: AWS SDK v4 signer internal/v4/scope.go
func BuildCredentialScope(t SigningTime, region, service string) string {
	return strings.Join([]string{
		t.DateStamp(),
		region,
		service,
		ScopeTerminator,
	}, "/")
}

// BuildUnsignedCanonicalHeaders builds the closed header set of an unsigned
// payload request: host, x-amz-content-sha256 and x-amz-date, in that order.
// Values are emitted as given. Extending the set requires BuildCanonicalHeaders.
func BuildUnsignedCanonicalHeaders(host, amzDate string) (signedHeaders, canonicalHeaders string) {
	var b strings.Builder
	b.Grow(len(host) + len(amzDate) + 64)
	b.WriteString("host:")
	b.WriteString(host)
	b.WriteRune('\n')
	b.WriteString("x-amz-content-sha256:")
	b.WriteString(UnsignedPayload)
	b.WriteRune('\n')
	b.WriteString("x-amz-date:")
	b.WriteString(amzDate)
	b.WriteRune('\n')
	return UnsignedSignedHeaders, b.String()
}

// BuildCanonicalHeaders builds the canonical headers of an arbitrary header
// set for SignHTTP. Names are lowercased and sorted, host comes from the
// host argument, and content-length is signed when length is positive.
// Headers rejected by IsSignedHeader are skipped.
func BuildCanonicalHeaders(host string, header http.Header, length int64) (signedHeaders, canonicalHeaders string) {
	values := map[string][]string{"host": {host}}
	if length > 0 {
		values["content-length"] = []string{strconv.FormatInt(length, 10)}
	}
	// Keys differing only in case are merged in sorted key order.
	keys := make([]string, 0, len(header))
	for name := range header {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		lower := strings.ToLower(name)
		if lower == "host" || lower == "content-length" || !IsSignedHeader(name) {
			continue
		}
		values[lower] = append(values[lower], header[name]...)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(canonicalHeaderValue(values[name]))
		b.WriteByte('\n')
	}
	return strings.Join(names, ";"), b.String()
}

// BuildCanonicalString builds the canonical request string.
// Format: METHOD\nURI\nQUERY\nHEADERS\nSIGNED_HEADERS\nPAYLOAD_HASH
// canonicalHeaders already ends in a newline, so a blank line separates it
// from the signed header list.
// Reference: AWS SDK v4 signer v4.go buildCanonicalString
func BuildCanonicalString(method, uri, query, signedHeaders, canonicalHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		uri,
		query,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
}

// BuildStringToSign builds the string to sign.
// Format: ALGORITHM\nTIMESTAMP\nSCOPE\nHEX(SHA256(CANONICAL_REQUEST))
// Reference: AWS SDK v4 signer v4.go buildStringToSign
func BuildStringToSign(algorithm, timestamp, credentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		algorithm,
		timestamp,
		credentialScope,
		HexSHA256([]byte(canonicalRequest)),
	}, "\n")
}

// BuildSignature computes the lowercase hex HMAC-SHA256 signature.
// Reference: AWS SDK v4 signer v4.go buildSignature
func BuildSignature(key []byte, stringToSign string) string {
	return hex.EncodeToString(HMACSHA256(key, []byte(stringToSign)))
}

// BuildAuthorizationHeader builds the Authorization header value:
// ALGORITHM Credential=..., SignedHeaders=..., Signature=...
func BuildAuthorizationHeader(credential, signedHeaders, signature string) string {
	return SigningAlgorithm +
		" Credential=" + credential +
		", SignedHeaders=" + signedHeaders +
		", Signature=" + signature
}
