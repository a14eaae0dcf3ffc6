package main

import (
	"errors"

	"github.com/forestrie/r2put/upload"
)

// Process exit codes.
const (
	exitGeneric        = 1
	exitConfiguration  = 2
	exitAuthentication = 3
	exitStorage        = 4
	exitTransport      = 5
)

// exitCode picks the process exit code for err.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, upload.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, upload.ErrAuthenticationRejected):
		return exitAuthentication
	case errors.Is(err, upload.ErrStorage):
		return exitStorage
	case errors.Is(err, upload.ErrTransport):
		return exitTransport
	default:
		return exitGeneric
	}
}
