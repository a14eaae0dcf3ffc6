package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/forestrie/r2put/config"
	"github.com/forestrie/r2put/upload"
)

func newRootCommand(gs *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "r2put",
		Short:         "upload files to Cloudflare R2 with SigV4-signed PUT requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return gs.loadConfig(cmd.Flags())
		},
	}
	cmd.SetOut(gs.stdout)
	cmd.SetErr(gs.stderr)
	cmd.PersistentFlags().AddFlagSet(rootFlagSet(&gs.flags))

	cmd.AddCommand(
		getUploadCmd(gs),
		getSignCmd(gs),
		getServeCmd(gs),
	)
	return cmd
}

func rootFlagSet(f *rootFlags) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&f.configPath, "config", "c", "", "YAML config file (default $"+config.ConfigEnvKey+")")
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	return flags
}

// loadConfig builds the configuration and sets up the logger. Flags win over
// the environment, which wins over the config file.
func (gs *globalState) loadConfig(flags *pflag.FlagSet) error {
	cfg, err := config.Load(gs.fs, gs.flags.configPath, gs.lookupEnv)
	if err != nil {
		return err
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = null.StringFrom(gs.flags.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = null.StringFrom(gs.flags.logFormat)
	}
	if gs.flags.verbose {
		cfg.LogLevel = null.StringFrom("debug")
	}
	gs.cfg = cfg
	return gs.setupLogger()
}

func (gs *globalState) setupLogger() error {
	level, err := logrus.ParseLevel(gs.cfg.LogLevel.String)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	gs.logger.SetLevel(level)
	gs.logger.SetOutput(gs.stderr)

	switch gs.cfg.LogFormat.String {
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		gs.logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	default:
		return fmt.Errorf("%w: unsupported log format %q", config.ErrConfiguration, gs.cfg.LogFormat.String)
	}
	return nil
}

// execute runs the CLI with args and returns the process exit code.
func execute(gs *globalState, args []string) int {
	cmd := newRootCommand(gs)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(gs.ctx)
	if err == nil {
		return 0
	}

	fields := logrus.Fields{}
	var uerr *upload.Error
	if errors.As(err, &uerr) {
		fields["hint"] = uerr.Hint()
		if uerr.Retryable() {
			fields["retryable"] = true
		}
	}
	gs.logger.WithFields(fields).Error(err)
	return exitCode(err)
}
