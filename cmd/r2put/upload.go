package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forestrie/r2put/server"
	"github.com/forestrie/r2put/upload"
)

func getUploadCmd(gs *globalState) *cobra.Command {
	var bucket, key, contentType string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload one file with a single signed PUT",
		Long: `Upload one file with a single signed PUT.

The bucket is a configured alias (bucket1, bucket2 or one from the config
file) or a configured bucket name. The object key defaults to the file name.
On success a JSON result is printed to stdout.`,
		Example: `  r2put upload cover.webp --bucket bucket2
  r2put upload ./out/cover.webp --key houses/42/cover.webp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if key == "" {
				key = filepath.Base(path)
			}
			if contentType == "" {
				contentType = gs.cfg.ContentType.String
			}

			resolved, err := gs.cfg.ResolveBucket(bucket)
			if err != nil {
				return err
			}
			u, err := gs.newUploader(nil)
			if err != nil {
				return err
			}
			body, err := afero.ReadFile(gs.fs, path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
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

			res, err := u.Upload(cmd.Context(), upload.Object{
				Bucket:      resolved,
				Key:         key,
				ContentType: contentType,
				Body:        body,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(server.UploadResponse{
				Success:  true,
				Filename: key,
				Bucket:   res.Bucket,
				Size:     res.Size,
				URL:      res.URL,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&bucket, "bucket", "b", "", "bucket alias or name (default bucket1)")
	flags.StringVarP(&key, "key", "k", "", "object key (default: the file name)")
	flags.StringVar(&contentType, "content-type", "", "Content-Type of the object (default from config)")
	return cmd
}
