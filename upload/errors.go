package upload

import (
	"errors"
	"strconv"
	"strings"

	"github.com/forestrie/r2put/signer"
)

// Error kinds. Match them with errors.Is on any error returned by Upload.
var (
	// ErrConfiguration: a credential or target parameter is missing. Returned
	// before any request is sent.
	ErrConfiguration = signer.ErrConfiguration

	// ErrCryptoBackend: the hash backend failed its self test.
	ErrCryptoBackend = signer.ErrCryptoBackend

	// ErrTransport: no complete response was obtained (DNS, connect, timeout,
	// cancellation, truncated response body). Safe to retry.
	ErrTransport = errors.New("transport error")

	// ErrAuthenticationRejected: the store refused the signature or timestamp.
	ErrAuthenticationRejected = errors.New("authentication rejected")

	// ErrStorage: any other non-2xx response.
	ErrStorage = errors.New("storage error")
)

// Error describes a failed upload attempt.
type Error struct {
	// Kind is one of the Err* kinds above.
	Kind error
	// Op names the step that failed.
	Op string
	// State is the state the attempt had reached when it failed.
	State State
	// StatusCode, Code and Body are set for responses from the store. Body is
	// the raw response text; Code is the S3 error code when the body is an
	// S3 XML error document.
	StatusCode int
	Code       string
	Body       string
	// Truncated is set when the response body was longer than the part kept
	// in Body.
	Truncated bool
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("upload ")
	b.WriteString(e.Op)
	if e.Err == nil || !errors.Is(e.Err, e.Kind) {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.StatusCode != 0 {
		b.WriteString(" (status ")
		b.WriteString(strconv.Itoa(e.StatusCode))
		if e.Code != "" {
			b.WriteString(", ")
			b.WriteString(e.Code)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
		if e.Truncated {
			b.WriteString(" [truncated]")
		}
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether repeating the same upload may succeed without
// changing configuration. A retry always re-signs with a fresh timestamp.
func (e *Error) Retryable() bool {
	return e.Kind == ErrTransport || e.Code == "RequestTimeTooSkewed"
}

// Hint gives the operator a short suggestion for fixing the failure.
func (e *Error) Hint() string {
	switch e.Kind {
	case ErrConfiguration:
		return "check the account id, access key, secret and bucket settings"
	case ErrCryptoBackend:
		return "the SHA-256/HMAC implementation is broken; do not retry"
	case ErrTransport:
		return "the object store could not be reached; retry the upload"
	case ErrAuthenticationRejected:
		if e.Code == "RequestTimeTooSkewed" {
			return "the local clock is too far from the store's clock"
		}
		return "the store rejected the signature; verify the credentials and region"
	default:
		if _, ok := permissionErrorCodes[e.Code]; ok {
			return "the credentials are valid but not allowed to write this bucket or key"
		}
		return "the store rejected this request; see the response body"
	}
}

// kindOf maps an error to the metric/log label of its kind.
func kindOf(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrCryptoBackend):
		return "crypto_backend"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrAuthenticationRejected):
		return "authentication_rejected"
	default:
		return "storage"
	}
}
