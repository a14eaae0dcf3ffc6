package signer

import "time"

// SigningTime wraps the single instant captured for one signing operation.
// Both the X-Amz-Date value and the credential scope date derive from it.
// Reference: AWS SDK v4 signer internal/v4/time.go
type SigningTime struct {
	time.Time
	amzDate string
}

// NewSigningTime creates a new SigningTime from a time.Time.
// The time is converted to UTC.
func NewSigningTime(t time.Time) SigningTime {
	t = t.UTC()
	return SigningTime{
		Time:    t,
		amzDate: t.Format(TimeFormat),
	}
}

// AmzDate returns the time formatted for the X-Amz-Date header.
// Format: YYYYMMDDTHHMMSSZ (e.g., 20231201T120000Z)
func (st SigningTime) AmzDate() string {
	if st.amzDate == "" {
		return st.Time.UTC().Format(TimeFormat)
	}
	return st.amzDate
}

// DateStamp returns the credential scope date, the first eight characters of
// AmzDate. Format: YYYYMMDD (e.g., 20231201)
func (st SigningTime) DateStamp() string {
	return st.AmzDate()[:len(ShortTimeFormat)]
}

// ParseAmzDate parses a YYYYMMDDTHHMMSSZ timestamp.
func ParseAmzDate(v string) (SigningTime, error) {
	t, err := time.Parse(TimeFormat, v)
	if err != nil {
		return SigningTime{}, err
	}
	return NewSigningTime(t), nil
}
