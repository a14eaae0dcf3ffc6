package signer

import (
	"net/http"
	"strings"
)

// ignoredHeaders are never signed. Proxies and clients may add or rewrite
// them after signing. Keys are in canonical MIME form.
var ignoredHeaders = map[string]struct{}{
	"Authorization":     {},
	"User-Agent":        {},
	"X-Amzn-Trace-Id":   {},
	"Expect":            {},
	"Transfer-Encoding": {},
}

// IsSignedHeader reports whether a header takes part in the signature.
func IsSignedHeader(name string) bool {
	_, ignored := ignoredHeaders[http.CanonicalHeaderKey(name)]
	return !ignored
}

// canonicalHeaderValue joins repeated values with commas after trimming each
// and collapsing inner runs of spaces.
func canonicalHeaderValue(values []string) string {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = StripExcessSpaces(v)
	}
	return strings.Join(trimmed, ",")
}
