package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/guregu/null.v3"

	"github.com/forestrie/r2put/server"
)

func getServeCmd(gs *globalState) *cobra.Command {
	var addr string
	var maxBytes int64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the multipart upload action over HTTP",
		Long: `Serve POST /upload (multipart form fields: webp, bucket, filename),
GET /healthz and GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				gs.cfg.Listen = null.StringFrom(addr)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			u, err := gs.newUploader(reg)
			if err != nil {
				return err
			}

			shutdown, err := gs.initTracing()
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()

			srv := server.New(server.Options{
				Uploader:       u,
				ResolveBucket:  gs.cfg.ResolveBucket,
				ContentType:    gs.cfg.ContentType.String,
				MaxUploadBytes: maxBytes,
				Logger:         gs.logger,
				Registry:       reg,
			})
			return srv.ListenAndServe(cmd.Context(), gs.cfg.Listen.String)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().Int64Var(&maxBytes, "max-upload-bytes", server.DefaultMaxUploadBytes, "largest accepted file")
	return cmd
}
