package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forestrie/r2put/signer"
	"github.com/forestrie/r2put/upload"
)

func getSignCmd(gs *globalState) *cobra.Command {
	var method, rawURL, bucket, key, amzDate string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the signing steps for a request",
		Long: `Print the canonical request, string to sign and Authorization header that
an upload would send. Use it to compare against the canonical request an S3
endpoint reports in a SignatureDoesNotMatch error. The secret is never printed.`,
		Example: `  r2put sign --bucket bucket1 --key cover.webp
  r2put sign --url https://acct.r2.cloudflarestorage.com/images/cover.webp --date 20250101T120000Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := gs.cfg.Validate(); err != nil {
				return err
			}
			s, err := signer.NewSigner(gs.cfg.SignerConfig())
			if err != nil {
				return err
			}

			if rawURL == "" {
				if key == "" {
					return fmt.Errorf("%w: either --url or --key is required", upload.ErrConfiguration)
				}
				resolved, err := gs.cfg.ResolveBucket(bucket)
				if err != nil {
					return err
				}
				rawURL, err = upload.New(s, gs.cfg.Target()).URL(resolved, key)
				if err != nil {
					return err
				}
			}
			d, err := signer.DescriptorFromURL(strings.ToUpper(method), rawURL)
			if err != nil {
				return err
			}

			var art *signer.Artifacts
			if amzDate != "" {
				st, err := signer.ParseAmzDate(amzDate)
				if err != nil {
					return fmt.Errorf("%w: --date: %v", upload.ErrConfiguration, err)
				}
				art, err = s.SignAt(d, st.Time)
				if err != nil {
					return err
				}
			} else if art, err = s.Sign(d); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "URL:\n%s\n\n", rawURL)
			fmt.Fprintf(w, "Canonical request:\n%s\n\n", art.CanonicalRequest)
			fmt.Fprintf(w, "String to sign:\n%s\n\n", art.StringToSign)
			fmt.Fprintf(w, "Headers:\n")
			fmt.Fprintf(w, "Host: %s\n", d.Host)
			fmt.Fprintf(w, "%s: %s\n", signer.AmzDateKey, art.AmzDate)
			fmt.Fprintf(w, "%s: %s\n", signer.ContentSHAKey, signer.UnsignedPayload)
			fmt.Fprintf(w, "%s: %s\n", signer.AuthorizationHeader, art.Authorization)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&method, "method", "X", http.MethodPut, "HTTP method")
	flags.StringVar(&rawURL, "url", "", "full object URL; overrides --bucket and --key")
	flags.StringVarP(&bucket, "bucket", "b", "", "bucket alias or name (default bucket1)")
	flags.StringVarP(&key, "key", "k", "", "object key")
	flags.StringVar(&amzDate, "date", "", "sign at this X-Amz-Date (YYYYMMDDTHHMMSSZ) instead of now")
	return cmd
}
