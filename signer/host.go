package signer

import (
	"net/http"
	"strings"
)

// CanonicalHost returns hostport without the port when the port is the
// default for scheme. The result is what the transport sends as Host and
// therefore what must be signed.
// Reference: AWS SDK v4 signer internal/v4/host.go SanitizeHostForHeader
func CanonicalHost(scheme, hostport string) string {
	port := PortOnly(hostport)
	if port != "" && IsDefaultPort(scheme, port) {
		return StripPort(hostport)
	}
	return hostport
}

// SanitizeHostForHeader removes a default port from the request host.
func SanitizeHostForHeader(r *http.Request) {
	host := GetHost(r)
	if sanitized := CanonicalHost(r.URL.Scheme, host); sanitized != host {
		r.Host = sanitized
	}
}

// GetHost returns the host from the request.
func GetHost(r *http.Request) string {
	if r.Host != "" {
		return r.Host
	}
	return r.URL.Host
}

// StripPort removes the port from a host:port string. IPv6 literals keep
// their brackets so the result is still a valid Host header.
func StripPort(hostport string) string {
	colon := strings.IndexByte(hostport, ':')
	if colon == -1 {
		return hostport
	}
	if i := strings.IndexByte(hostport, ']'); i != -1 {
		return hostport[:i+1]
	}
	return hostport[:colon]
}

// PortOnly returns the port part of a host:port string.
func PortOnly(hostport string) string {
	colon := strings.IndexByte(hostport, ':')
	if colon == -1 {
		return ""
	}
	if i := strings.Index(hostport, "]:"); i != -1 {
		return hostport[i+len("]:"):]
	}
	if strings.Contains(hostport, "]") {
		return ""
	}
	return hostport[colon+len(":"):]
}

// IsDefaultPort checks if port is the default for the scheme.
func IsDefaultPort(scheme, port string) bool {
	if port == "" {
		return true
	}
	lowerScheme := strings.ToLower(scheme)
	return (lowerScheme == "http" && port == "80") ||
		(lowerScheme == "https" && port == "443")
}

// StripExcessSpaces trims leading and trailing spaces and collapses every
// inner run of spaces to a single space.
// Reference: AWS SDK v4 signer internal/v4/util.go StripExcessSpaces
func StripExcessSpaces(str string) string {
	str = strings.Trim(str, " ")
	if !strings.Contains(str, "  ") {
		return str
	}

	var b strings.Builder
	b.Grow(len(str))
	prevSpace := false
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteByte(c)
	}
	return b.String()
}
