package signer

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestIsSignedHeader(t *testing.T) {
	cases := map[string]bool{
		"authorization":   false,
		"User-Agent":      false,
		"x-amzn-trace-id": false,
		"Content-Type":    true,
		"x-amz-date":      true,
	}
	for name, want := range cases {
		if got := IsSignedHeader(name); got != want {
			t.Errorf("IsSignedHeader(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestBuildCredentialScope(t *testing.T) {
	tm := NewSigningTime(time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC))
	scope := BuildCredentialScope(tm, "us-east-1", "s3")

	expected := "20231201/us-east-1/s3/aws4_request"
	if scope != expected {
		t.Errorf("expected %s, got %s", expected, scope)
	}
}

func TestSigningTimeDateConsistency(t *testing.T) {
	instants := []time.Time{
		time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(2025, 1, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600)),
		time.Unix(0, 0),
	}

	for _, in := range instants {
		st := NewSigningTime(in)
		amzDate := st.AmzDate()
		if len(amzDate) != len(TimeFormat) {
			t.Errorf("expected amz date length %d, got %q", len(TimeFormat), amzDate)
		}
		if st.DateStamp() != amzDate[:8] {
			t.Errorf("date stamp %s is not the prefix of %s", st.DateStamp(), amzDate)
		}
	}

	// 00:30 CET is still the previous day in UTC.
	st := NewSigningTime(time.Date(2025, 1, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600)))
	if st.AmzDate() != "20241231T233000Z" {
		t.Errorf("expected UTC conversion, got %s", st.AmzDate())
	}
}

func TestParseAmzDate(t *testing.T) {
	st, err := ParseAmzDate("20150830T123600Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.DateStamp() != "20150830" {
		t.Errorf("expected 20150830, got %s", st.DateStamp())
	}
	if _, err := ParseAmzDate("2015-08-30T12:36:00Z"); err == nil {
		t.Error("expected error for extended ISO-8601 format")
	}
}

func TestGetURIPath(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "simple path",
			url:      "https://example.com/bucket/key",
			expected: "/bucket/key",
		},
		{
			name:     "root path",
			url:      "https://example.com/",
			expected: "/",
		},
		{
			name:     "no path",
			url:      "https://example.com",
			expected: "/",
		},
		{
			name:     "path with query",
			url:      "https://example.com/bucket/key?foo=bar",
			expected: "/bucket/key",
		},
		{
			name:     "encoded path",
			url:      "https://example.com/bucket/my%20photo.webp",
			expected: "/bucket/my%20photo.webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatalf("failed to parse URL: %v", err)
			}

			path := GetURIPath(u)
			if path != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, path)
			}
		})
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/bucket/key.webp", "/bucket/key.webp"},
		{"/bucket/my photo.webp", "/bucket/my%20photo.webp"},
		{"/bucket/a+b=c", "/bucket/a%2Bb%3Dc"},
		{"/bucket/dir/sub_dir/~file-1.png", "/bucket/dir/sub_dir/~file-1.png"},
		{"/bucket/grüße.jpg", "/bucket/gr%C3%BC%C3%9Fe.jpg"},
	}

	for _, tt := range tests {
		if got := EscapePath(tt.input); got != tt.expected {
			t.Errorf("EscapePath(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath("/bucket/key"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := ValidatePath("bucket/key"); err == nil {
		t.Error("expected error for relative path")
	}
}

func TestStripExcessSpaces(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no spaces",
			input:    "test",
			expected: "test",
		},
		{
			name:     "single space",
			input:    "test value",
			expected: "test value",
		},
		{
			name:     "multiple spaces",
			input:    "test    value",
			expected: "test value",
		},
		{
			name:     "leading spaces",
			input:    "   test",
			expected: "test",
		},
		{
			name:     "trailing spaces",
			input:    "test   ",
			expected: "test",
		},
		{
			name:     "all spaces",
			input:    "   test    value   ",
			expected: "test value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripExcessSpaces(tt.input)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestBuildUnsignedCanonicalHeaders(t *testing.T) {
	signedHeaders, canonical := BuildUnsignedCanonicalHeaders("acct.r2.cloudflarestorage.com", "20250101T120000Z")

	expected := "host:acct.r2.cloudflarestorage.com\n" +
		"x-amz-content-sha256:UNSIGNED-PAYLOAD\n" +
		"x-amz-date:20250101T120000Z\n"
	if canonical != expected {
		t.Errorf("expected:\n%q\ngot:\n%q", expected, canonical)
	}
	if signedHeaders != "host;x-amz-content-sha256;x-amz-date" {
		t.Errorf("unexpected signed headers %s", signedHeaders)
	}

	// The signed list must name the canonical headers in the same order.
	var names []string
	for _, line := range strings.Split(strings.TrimSuffix(canonical, "\n"), "\n") {
		names = append(names, line[:strings.IndexByte(line, ':')])
	}
	if strings.Join(names, ";") != signedHeaders {
		t.Errorf("signed headers %s do not match canonical order %v", signedHeaders, names)
	}
}

func TestBuildCanonicalHeaders(t *testing.T) {
	headers := make(http.Header)
	headers.Set("Host", "example.com")
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Amz-Meta-Custom", "  value   with   spaces ")
	headers.Add("X-Amz-Meta-Multi", "a")
	headers.Add("X-Amz-Meta-Multi", "b")
	headers.Set("User-Agent", "ignored")

	signedHeadersStr, canonicalStr := BuildCanonicalHeaders("example.com", headers, 5)

	expectedSigned := "content-length;content-type;host;x-amz-meta-custom;x-amz-meta-multi"
	if signedHeadersStr != expectedSigned {
		t.Errorf("expected %s, got %s", expectedSigned, signedHeadersStr)
	}

	expectedCanonical := "content-length:5\n" +
		"content-type:application/json\n" +
		"host:example.com\n" +
		"x-amz-meta-custom:value with spaces\n" +
		"x-amz-meta-multi:a,b\n"
	if canonicalStr != expectedCanonical {
		t.Errorf("expected:\n%q\ngot:\n%q", expectedCanonical, canonicalStr)
	}
}

func TestBuildCanonicalHeadersMergesCaseVariantsInOrder(t *testing.T) {
	headers := http.Header{
		"x-amz-meta-tag": {"lower"},
		"X-Amz-Meta-Tag": {"canonical"},
		"X-AMZ-META-TAG": {"upper"},
	}

	expected := "host:example.com\nx-amz-meta-tag:upper,canonical,lower\n"
	for i := 0; i < 50; i++ {
		signedHeaders, canonical := BuildCanonicalHeaders("example.com", headers, 0)
		if signedHeaders != "host;x-amz-meta-tag" {
			t.Fatalf("expected host;x-amz-meta-tag, got %s", signedHeaders)
		}
		if canonical != expected {
			t.Fatalf("run %d: expected %q, got %q", i, expected, canonical)
		}
	}
}

func TestBuildCanonicalString(t *testing.T) {
	signedHeaders, canonicalHeaders := BuildUnsignedCanonicalHeaders("example.com", "20231201T120000Z")

	result := BuildCanonicalString(
		"PUT",
		"/bucket/key",
		"",
		signedHeaders,
		canonicalHeaders,
		UnsignedPayload,
	)

	expected := "PUT\n" +
		"/bucket/key\n" +
		"\n" +
		"host:example.com\n" +
		"x-amz-content-sha256:UNSIGNED-PAYLOAD\n" +
		"x-amz-date:20231201T120000Z\n" +
		"\n" +
		"host;x-amz-content-sha256;x-amz-date\n" +
		"UNSIGNED-PAYLOAD"

	if result != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, result)
	}
}

func TestBuildStringToSign(t *testing.T) {
	timestamp := "20231201T120000Z"
	credentialScope := "20231201/us-east-1/s3/aws4_request"
	canonicalRequest := "GET\n/bucket/key\n\nhost:example.com\n\nhost\n" + EmptyStringSHA256

	result := BuildStringToSign(
		SigningAlgorithm,
		timestamp,
		credentialScope,
		canonicalRequest,
	)

	lines := strings.Split(result, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != SigningAlgorithm || lines[1] != timestamp || lines[2] != credentialScope {
		t.Errorf("unexpected header lines: %q", lines[:3])
	}
	if lines[3] != HexSHA256([]byte(canonicalRequest)) {
		t.Errorf("expected canonical request hash, got %s", lines[3])
	}
	if strings.ToLower(lines[3]) != lines[3] || len(lines[3]) != 64 {
		t.Errorf("hash must be 64 lowercase hex digits, got %s", lines[3])
	}
}

func TestBuildSignature(t *testing.T) {
	key := []byte("test-key-32-bytes-long-for-sha256!")
	stringToSign := "test string to sign"

	signature := BuildSignature(key, stringToSign)

	if len(signature) != 64 {
		t.Errorf("expected signature length 64, got %d", len(signature))
	}

	if _, err := hex.DecodeString(signature); err != nil {
		t.Errorf("signature should be valid hex: %v", err)
	}

	if signature != BuildSignature(key, stringToSign) {
		t.Error("signature should be deterministic")
	}
}

func TestBuildAuthorizationHeader(t *testing.T) {
	credentialStr := "AKID/20231201/us-east-1/s3/aws4_request"
	signedHeadersStr := "host;x-amz-content-sha256;x-amz-date"
	signature := "abc123"

	result := BuildAuthorizationHeader(credentialStr, signedHeadersStr, signature)

	expected := "AWS4-HMAC-SHA256 Credential=AKID/20231201/us-east-1/s3/aws4_request, " +
		"SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=abc123"
	if result != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, result)
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		name     string
		scheme   string
		host     string
		expected string
	}{
		{"default HTTP port", "http", "example.com:80", "example.com"},
		{"default HTTPS port", "https", "example.com:443", "example.com"},
		{"non-default port", "https", "example.com:8080", "example.com:8080"},
		{"no port", "https", "example.com", "example.com"},
		{"ipv6 default port", "http", "[::1]:80", "[::1]"},
		{"ipv6 default https port", "https", "[2001:db8::1]:443", "[2001:db8::1]"},
		{"ipv6 no port", "https", "[::1]", "[::1]"},
		{"ipv6 custom port", "http", "[::1]:9000", "[::1]:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalHost(tt.scheme, tt.host); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestSanitizeHostForHeader(t *testing.T) {
	u, err := url.Parse("https://example.com:443/path")
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}

	req := &http.Request{URL: u, Host: "example.com:443"}
	SanitizeHostForHeader(req)

	if req.Host != "example.com" {
		t.Errorf("expected example.com, got %s", req.Host)
	}
}

func TestRedactAccessKey(t *testing.T) {
	if got := RedactAccessKey("AKIDEXAMPLE"); got != "AKID****" {
		t.Errorf("expected AKID****, got %s", got)
	}
	if got := RedactAccessKey("abc"); got != "****" {
		t.Errorf("expected ****, got %s", got)
	}
}
