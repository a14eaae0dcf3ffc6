package signer

// DeriveSigningKey performs the SigV4 key derivation:
//   - kDate = HMAC-SHA256("AWS4" + secret, dateStamp)
//   - kRegion = HMAC-SHA256(kDate, region)
//   - kService = HMAC-SHA256(kRegion, service)
//   - kSigning = HMAC-SHA256(kService, "aws4_request")
//
// Reference: AWS SDK v4 signer internal/v4/cache.go deriveKey function
func DeriveSigningKey(secret, dateStamp, region, service string) []byte {
	kDate := HMACSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := HMACSHA256(kDate, []byte(region))
	kService := HMACSHA256(kRegion, []byte(service))
	return HMACSHA256(kService, []byte(ScopeTerminator))
}
