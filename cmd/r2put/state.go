package main

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/forestrie/r2put/config"
	"github.com/forestrie/r2put/upload"
)

// globalState holds everything a command touches outside its own flags, so
// tests can swap the filesystem, environment and output streams.
type globalState struct {
	ctx       context.Context
	fs        afero.Fs
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	logger    *logrus.Logger

	// transport overrides the HTTP client used for uploads.
	transport upload.Doer

	flags rootFlags
	cfg   config.Config
}

type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
}

func newGlobalState(ctx context.Context) *globalState {
	return &globalState{
		ctx:       ctx,
		fs:        afero.NewOsFs(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
		logger: &logrus.Logger{
			Out:       os.Stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
}
