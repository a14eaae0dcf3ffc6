package upload

import (
	"encoding/xml"
	"net/http"
	"strings"
)

// s3ErrorDocument is the XML error body returned by S3-compatible stores.
type s3ErrorDocument struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestId"`
}

// authErrorCodes are S3 error codes that mean the signature or its timestamp
// was not accepted, whatever the status code.
var authErrorCodes = map[string]struct{}{
	"SignatureDoesNotMatch":        {},
	"RequestTimeTooSkewed":         {},
	"InvalidAccessKeyId":           {},
	"AuthorizationHeaderMalformed": {},
	"ExpiredToken":                 {},
	"InvalidToken":                 {},
	"MissingSecurityHeader":        {},
}

// permissionErrorCodes are S3 error codes for a valid signature that lacks
// access to the bucket or account. They are storage errors even on 403.
var permissionErrorCodes = map[string]struct{}{
	"AccessDenied":      {},
	"AllAccessDisabled": {},
	"AccountProblem":    {},
}

// parseErrorCode extracts the S3 error code from body, or "" when body is
// not an S3 XML error document.
func parseErrorCode(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "<") {
		return ""
	}
	var doc s3ErrorDocument
	if err := xml.Unmarshal([]byte(trimmed), &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Code)
}

// classify returns the error kind for a non-2xx response. A recognised S3
// code decides; otherwise 401 and 403 count as authentication failures.
func classify(status int, code string) error {
	if _, ok := authErrorCodes[code]; ok {
		return ErrAuthenticationRejected
	}
	if _, ok := permissionErrorCodes[code]; ok {
		return ErrStorage
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrAuthenticationRejected
	}
	return ErrStorage
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
