package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/forestrie/r2put/signer"
	"github.com/forestrie/r2put/tracing"
	"github.com/forestrie/r2put/upload"
)

// newUploader validates the configuration and builds an Uploader. reg may be
// nil when metrics are not exported.
func (gs *globalState) newUploader(reg prometheus.Registerer) (*upload.Uploader, error) {
	if err := gs.cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := signer.NewSigner(gs.cfg.SignerConfig())
	if err != nil {
		return nil, err
	}
	timeout, err := gs.cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	transport := gs.transport
	if transport == nil {
		transport = &http.Client{}
	}
	opts := []upload.Option{
		upload.WithTransport(transport),
		upload.WithLogger(gs.logger),
		upload.WithTimeout(timeout),
	}
	if reg != nil {
		opts = append(opts, upload.WithMetrics(upload.NewMetrics(reg)))
	}

	gs.logger.WithField("accessKey", signer.RedactAccessKey(s.AccessKeyID())).
		WithField("region", s.Region()).
		Debug("signer ready")
	return upload.New(s, gs.cfg.Target(), opts...), nil
}

func (gs *globalState) initTracing() (tracing.ShutdownFunc, error) {
	return tracing.Init(gs.ctx, tracing.Options{
		Enabled:     gs.cfg.TracingEnabled.Bool,
		Endpoint:    gs.cfg.TracingEndpoint.String,
		Protocol:    gs.cfg.TracingProtocol.String,
		ServiceName: "r2put",
		Logger:      gs.logger,
	})
}
