package upload

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/r2put/signer"
)

const (
	testAccessKey = "AKIDEXAMPLE"
	testSecret    = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
)

func newTestSigner(t *testing.T, secret string, clock func() time.Time) *signer.Signer {
	t.Helper()
	s, err := signer.NewSigner(signer.Config{
		Credentials: signer.Credentials{AccessKeyID: testAccessKey, SecretAccessKey: secret},
		Region:      "auto",
		Service:     "s3",
		Clock:       clock,
	})
	require.NoError(t, err)
	return s
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// countingDoer records every request it forwards.
type countingDoer struct {
	next  Doer
	calls atomic.Int32
	mu    sync.Mutex
	reqs  []*http.Request
}

func (c *countingDoer) Do(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.reqs = append(c.reqs, r)
	c.mu.Unlock()
	return c.next.Do(r)
}

func cannedResponse(status int, body string) Doer {
	return doerFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})
}

var authRE = regexp.MustCompile(`^AWS4-HMAC-SHA256 Credential=([^/]+)/(\d{8})/([^/]+)/([^/]+)/aws4_request, SignedHeaders=([a-z0-9;-]+), Signature=([0-9a-f]{64})$`)

// verifySigV4 recomputes the signature the way an S3 server does, without
// using the signer package.
func verifySigV4(r *http.Request, secret string) error {
	m := authRE.FindStringSubmatch(r.Header.Get("Authorization"))
	if m == nil {
		return errors.New("malformed authorization header")
	}
	dateStamp, region, service, signedHeaders, signature := m[2], m[3], m[4], m[5], m[6]

	amzDate := r.Header.Get("X-Amz-Date")
	if !strings.HasPrefix(amzDate, dateStamp) {
		return fmt.Errorf("scope date %s does not match %s", dateStamp, amzDate)
	}

	var canonicalHeaders strings.Builder
	for _, name := range strings.Split(signedHeaders, ";") {
		value := r.Header.Get(name)
		if name == "host" {
			value = r.Host
		}
		canonicalHeaders.WriteString(name + ":" + value + "\n")
	}
	canonicalRequest := strings.Join([]string{
		r.Method,
		r.URL.EscapedPath(),
		r.URL.RawQuery,
		canonicalHeaders.String(),
		signedHeaders,
		r.Header.Get("X-Amz-Content-Sha256"),
	}, "\n")

	mac := func(key []byte, msg string) []byte {
		h := hmac.New(sha256.New, key)
		h.Write([]byte(msg))
		return h.Sum(nil)
	}
	crHash := sha256.Sum256([]byte(canonicalRequest))
	scope := dateStamp + "/" + region + "/" + service + "/aws4_request"
	stringToSign := "AWS4-HMAC-SHA256\n" + amzDate + "\n" + scope + "\n" + hex.EncodeToString(crHash[:])
	key := mac(mac(mac(mac([]byte("AWS4"+secret), dateStamp), region), service), "aws4_request")
	if expected := hex.EncodeToString(mac(key, stringToSign)); expected != signature {
		return fmt.Errorf("signature mismatch: expected %s, got %s", expected, signature)
	}
	return nil
}

// stubStore is an in-memory S3 endpoint that verifies SigV4 headers.
type stubStore struct {
	secret string

	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
}

func newStubStore(secret string) *stubStore {
	return &stubStore{
		secret:      secret,
		objects:     make(map[string][]byte),
		contentType: make(map[string]string),
	}
}

const signatureMismatchXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>SignatureDoesNotMatch</Code><Message>The request signature we calculated does not match the signature you provided.</Message></Error>`

func (s *stubStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-Amz-Content-Sha256") != "UNSIGNED-PAYLOAD" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := verifySigV4(r, s.secret); err != nil {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, signatureMismatchXML)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.objects[r.URL.EscapedPath()] = body
	s.contentType[r.URL.EscapedPath()] = r.Header.Get("Content-Type")
	s.mu.Unlock()

	sum := sha256.Sum256(body)
	w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:8])+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *stubStore) object(path string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[path]
	return b, s.contentType[path], ok
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }
func (errReader) Close() error             { return nil }
