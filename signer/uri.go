package signer

import (
	"fmt"
	"net/url"
	"strings"
)

// GetURIPath returns the escaped URI path of u. The path is used as-is: S3
// canonical requests are built from the encoded path without a second
// escaping pass.
// Reference: AWS SDK v4 signer internal/v4/util.go GetURIPath
func GetURIPath(u *url.URL) string {
	var uriPath string

	if len(u.Opaque) > 0 {
		const schemeSep, pathSep, queryStart = "//", "/", "?"
		opaque := u.Opaque

		if idx := strings.Index(opaque, queryStart); idx >= 0 {
			opaque = opaque[:idx]
		}
		if strings.Index(opaque, schemeSep) == 0 {
			opaque = opaque[len(schemeSep):]
		}
		if idx := strings.Index(opaque, pathSep); idx >= 0 {
			uriPath = opaque[idx:]
		}
	} else {
		uriPath = u.EscapedPath()
	}

	if len(uriPath) == 0 {
		uriPath = "/"
	}

	return uriPath
}

// EscapePath percent-encodes every byte of p except the unreserved set
// (A-Z a-z 0-9 - . _ ~) and '/'. Hex digits are uppercase.
func EscapePath(p string) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// ValidatePath checks that p can be used as a canonical URI path.
func ValidatePath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: canonical URI path %q must start with '/'", ErrConfiguration, p)
	}
	return nil
}
