// Command r2put uploads files to Cloudflare R2 or any S3-compatible store
// with SigV4-signed, unsigned-payload PUT requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(newGlobalState(ctx), os.Args[1:])
	stop()
	os.Exit(code)
}
