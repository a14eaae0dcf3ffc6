package signer

import "errors"

// Errors returned by the signer. Callers match them with errors.Is.
var (
	// ErrConfiguration reports a missing credential or request parameter.
	// It is raised before any cryptographic work begins.
	ErrConfiguration = errors.New("configuration error")

	// ErrCryptoBackend reports a broken SHA-256/HMAC implementation.
	ErrCryptoBackend = errors.New("crypto backend error")
)
