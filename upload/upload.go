// Package upload stores single objects in an S3-compatible bucket with a
// path-style, unsigned-payload SigV4 PUT.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/forestrie/r2put/signer"
)

const (
	// DefaultStorageDomain is the Cloudflare R2 S3 API domain.
	DefaultStorageDomain = "r2.cloudflarestorage.com"

	// DefaultContentType is used when Object.ContentType is empty.
	DefaultContentType = "application/octet-stream"

	// maxResponseBody bounds how much of a response is kept for diagnostics.
	maxResponseBody = 1 << 20

	tracerName = "github.com/forestrie/r2put/upload"
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Target addresses the object store.
type Target struct {
	// AccountID and StorageDomain form the host {AccountID}.{StorageDomain}.
	AccountID     string
	StorageDomain string

	// Endpoint, when set, replaces the derived host. It is a URL of the form
	// scheme://host[:port] and serves S3-compatible stores other than R2.
	Endpoint string
}

// endpoint returns the scheme and the host that is both sent and signed.
func (t Target) endpoint() (scheme, host string, err error) {
	if t.Endpoint != "" {
		u, err := url.Parse(t.Endpoint)
		if err != nil {
			return "", "", fmt.Errorf("%w: endpoint: %v", ErrConfiguration, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return "", "", fmt.Errorf("%w: endpoint %q needs a scheme and a host", ErrConfiguration, t.Endpoint)
		}
		return u.Scheme, signer.CanonicalHost(u.Scheme, u.Host), nil
	}
	if t.AccountID == "" {
		return "", "", fmt.Errorf("%w: account id is required", ErrConfiguration)
	}
	domain := t.StorageDomain
	if domain == "" {
		domain = DefaultStorageDomain
	}
	return "https", t.AccountID + "." + domain, nil
}

// Object is one payload to store.
type Object struct {
	Bucket      string
	Key         string
	ContentType string
	Body        []byte
}

func (o Object) validate() error {
	if o.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrConfiguration)
	}
	if strings.Contains(o.Bucket, "/") {
		return fmt.Errorf("%w: bucket %q must not contain '/'", ErrConfiguration, o.Bucket)
	}
	if strings.TrimLeft(o.Key, "/") == "" {
		return fmt.Errorf("%w: object key is required", ErrConfiguration)
	}
	return nil
}

// path returns the encoded path-style URI /{bucket}/{key}.
func (o Object) path() string {
	return signer.EscapePath("/" + o.Bucket + "/" + strings.TrimLeft(o.Key, "/"))
}

// Result describes a stored object.
type Result struct {
	Bucket     string
	Key        string
	Size       int
	URL        string
	StatusCode int
	ETag       string
	State      State
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithTransport sets the HTTP transport. Defaults to http.DefaultClient.
func WithTransport(d Doer) Option {
	return func(u *Uploader) { u.transport = d }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(u *Uploader) { u.logger = l }
}

// WithMetrics records upload metrics.
func WithMetrics(m *Metrics) Option {
	return func(u *Uploader) { u.metrics = m }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(u *Uploader) { u.tracer = tp.Tracer(tracerName) }
}

// WithTimeout bounds each attempt, in addition to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(u *Uploader) { u.timeout = d }
}

// WithStateObserver is called on every state change of every attempt.
func WithStateObserver(fn func(State)) Option {
	return func(u *Uploader) { u.observer = fn }
}

// Uploader issues signed PUT requests. It owns no cryptography: signing is
// delegated to a signer.Signer. An Uploader is safe for concurrent use.
type Uploader struct {
	signer    *signer.Signer
	target    Target
	transport Doer
	logger    logrus.FieldLogger
	metrics   *Metrics
	tracer    trace.Tracer
	timeout   time.Duration
	observer  func(State)
}

// New creates an Uploader. s may be nil when the caller wants configuration
// errors to surface from Upload; every Upload then fails with ErrConfiguration
// before any request is made.
func New(s *signer.Signer, target Target, opts ...Option) *Uploader {
	discard := logrus.New()
	discard.Out = io.Discard

	u := &Uploader{
		signer:    s,
		target:    target,
		transport: http.DefaultClient,
		logger:    discard,
		tracer:    otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// URL returns the object URL Upload would use for bucket and key.
func (u *Uploader) URL(bucket, key string) (string, error) {
	scheme, host, err := u.target.endpoint()
	if err != nil {
		return "", err
	}
	return scheme + "://" + host + Object{Bucket: bucket, Key: key}.path(), nil
}

// Upload stores obj with a single PUT. It signs with a freshly captured
// timestamp on every call and never retries; on failure the returned error
// is an *Error. A cancelled or expired ctx aborts the request and yields
// ErrTransport: the store keeps either the complete object or nothing.
func (u *Uploader) Upload(ctx context.Context, obj Object) (*Result, error) {
	started := time.Now()
	u.metrics.start()

	ctx, span := u.tracer.Start(ctx, "upload.Put",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("s3.bucket", obj.Bucket),
			attribute.String("s3.key", obj.Key),
			attribute.Int("s3.size", len(obj.Body)),
		),
	)

	log := u.logger.WithFields(logrus.Fields{
		"bucket": obj.Bucket,
		"key":    obj.Key,
		"size":   len(obj.Body),
	})

	res, err := u.upload(ctx, obj, log)

	outcome := kindOf(err)
	u.metrics.finish(outcome, len(obj.Body), time.Since(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		var uerr *Error
		if errors.As(err, &uerr) && uerr.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.status_code", uerr.StatusCode))
		}
		log.WithError(err).WithField("outcome", outcome).Warn("upload failed")
	} else {
		span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
		span.SetStatus(codes.Ok, "")
		log.WithField("url", res.URL).Info("upload succeeded")
	}
	span.End()

	return res, err
}

func (u *Uploader) upload(ctx context.Context, obj Object, log logrus.FieldLogger) (*Result, error) {
	att := newAttempt(log, u.observer)
	fail := func(e *Error) error {
		e.State = att.state
		att.to(StateFailed)
		return e
	}

	log.Info("upload started")

	if u.signer == nil {
		return nil, fail(&Error{Kind: ErrConfiguration, Op: "validate", Err: errors.New("no signer configured")})
	}
	scheme, host, err := u.target.endpoint()
	if err != nil {
		return nil, fail(&Error{Kind: ErrConfiguration, Op: "validate", Err: err})
	}
	if err := obj.validate(); err != nil {
		return nil, fail(&Error{Kind: ErrConfiguration, Op: "validate", Err: err})
	}

	att.to(StateSigning)
	path := obj.path()
	art, err := u.signer.Sign(signer.Descriptor{
		Method: http.MethodPut,
		Path:   path,
		Host:   host,
	})
	if err != nil {
		kind := ErrConfiguration
		if errors.Is(err, ErrCryptoBackend) {
			kind = ErrCryptoBackend
		}
		return nil, fail(&Error{Kind: kind, Op: "sign", Err: err})
	}
	log.WithField("accessKey", signer.RedactAccessKey(u.signer.AccessKeyID())).
		WithField("amzDate", art.AmzDate).
		Debug("signature generated")

	objectURL := scheme + "://" + host + path
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objectURL, bytes.NewReader(obj.Body))
	if err != nil {
		return nil, fail(&Error{Kind: ErrConfiguration, Op: "build request", Err: err})
	}
	req.Host = host
	contentType := obj.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	req.Header.Set("Content-Type", contentType)
	art.Apply(req.Header)

	att.to(StateSent)
	log.WithField("url", objectURL).Debug("sending request")
	resp, err := u.transport.Do(req)
	if err != nil {
		return nil, fail(&Error{Kind: ErrTransport, Op: "send", Err: err})
	}
	defer resp.Body.Close()

	// A response that cannot be read completely is not a success, even with
	// a 2xx status line.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, fail(&Error{Kind: ErrTransport, Op: "read response", StatusCode: resp.StatusCode, Err: err})
	}
	truncated := len(body) > maxResponseBody
	if truncated {
		body = body[:maxResponseBody]
	}
	log.WithField("status", resp.StatusCode).Debug("response received")

	if !isSuccess(resp.StatusCode) {
		code := parseErrorCode(body)
		return nil, fail(&Error{
			Kind:       classify(resp.StatusCode, code),
			Op:         "put",
			StatusCode: resp.StatusCode,
			Code:       code,
			Body:       string(body),
			Truncated:  truncated,
		})
	}

	att.to(StateSucceeded)
	return &Result{
		Bucket:     obj.Bucket,
		Key:        obj.Key,
		Size:       len(obj.Body),
		URL:        objectURL,
		StatusCode: resp.StatusCode,
		ETag:       resp.Header.Get("ETag"),
		State:      StateSucceeded,
	}, nil
}
