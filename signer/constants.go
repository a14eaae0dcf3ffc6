package signer

// Signature Version 4 (SigV4) constants.
// Reference: AWS SDK v4 signer internal/v4/const.go

const (
	// EmptyStringSHA256 is the hex encoded SHA256 hash of an empty string.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	// UnsignedPayload is the payload hash sentinel used when the body is not
	// part of the signature.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// SigningAlgorithm is the SigV4 signing algorithm identifier.
	SigningAlgorithm = "AWS4-HMAC-SHA256"

	// ScopeTerminator closes every credential scope.
	ScopeTerminator = "aws4_request"

	// AuthorizationHeader is the HTTP header name for authorization.
	AuthorizationHeader = "Authorization"

	// AmzDateKey is the header key for the request timestamp.
	// Format: YYYYMMDDTHHMMSSZ (e.g., 20231201T120000Z)
	AmzDateKey = "X-Amz-Date"

	// ContentSHAKey is the header key for the request payload hash.
	ContentSHAKey = "X-Amz-Content-Sha256"

	// UnsignedSignedHeaders is the signed header list of the unsigned payload
	// request form. Order matters and must match BuildUnsignedCanonicalHeaders.
	UnsignedSignedHeaders = "host;x-amz-content-sha256;x-amz-date"

	// TimeFormat is the time format for X-Amz-Date header.
	// Format: YYYYMMDDTHHMMSSZ
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the shortened time format for credential scope.
	// Format: YYYYMMDD
	ShortTimeFormat = "20060102"

	// DefaultService is used when Config.Service is empty.
	DefaultService = "s3"
)
