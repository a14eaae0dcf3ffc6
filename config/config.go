// Package config loads r2put settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/forestrie/r2put/signer"
	"github.com/forestrie/r2put/upload"
)

// ConfigEnvKey names the environment variable holding the YAML file path.
const ConfigEnvKey = "R2PUT_CONFIG"

// Bucket aliases accepted by ResolveBucket for the two env-configured buckets.
const (
	Bucket1Alias = "bucket1"
	Bucket2Alias = "bucket2"
)

// ErrConfiguration is returned for invalid or incomplete settings.
var ErrConfiguration = signer.ErrConfiguration

// Config holds all r2put settings. Each field is a null value so that layers
// only override what they actually set.
//
//nolint:lll
type Config struct {
	AccountID       null.String `envconfig:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     null.String `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	SecretAccessKey null.String `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	Bucket1         null.String `envconfig:"CLOUDFLARE_BUCKET_1"`
	Bucket2         null.String `envconfig:"CLOUDFLARE_BUCKET_2"`

	StorageDomain    null.String `envconfig:"R2PUT_STORAGE_DOMAIN"`
	Endpoint         null.String `envconfig:"R2PUT_ENDPOINT"`
	Region           null.String `envconfig:"R2PUT_REGION"`
	Service          null.String `envconfig:"R2PUT_SERVICE"`
	ContentType      null.String `envconfig:"R2PUT_CONTENT_TYPE"`
	Timeout          null.String `envconfig:"R2PUT_TIMEOUT"`
	CacheSigningKeys null.Bool   `envconfig:"R2PUT_CACHE_SIGNING_KEYS"`

	LogLevel  null.String `envconfig:"R2PUT_LOG_LEVEL"`
	LogFormat null.String `envconfig:"R2PUT_LOG_FORMAT"`
	Listen    null.String `envconfig:"R2PUT_LISTEN"`

	TracingEnabled  null.Bool   `envconfig:"R2PUT_TRACING_ENABLED"`
	TracingEndpoint null.String `envconfig:"R2PUT_TRACING_ENDPOINT"`
	TracingProtocol null.String `envconfig:"R2PUT_TRACING_PROTOCOL"`

	// Buckets maps extra aliases to bucket names. Only the YAML file sets it.
	Buckets map[string]string `ignored:"true"`
}

// NewConfig returns a Config holding the default values. None of them are
// marked valid, so applying NewConfig() over another Config changes nothing.
func NewConfig() Config {
	return Config{
		StorageDomain:    null.NewString(upload.DefaultStorageDomain, false),
		Region:           null.NewString("auto", false),
		Service:          null.NewString(signer.DefaultService, false),
		ContentType:      null.NewString("image/webp", false),
		Timeout:          null.NewString("30s", false),
		CacheSigningKeys: null.NewBool(false, false),
		LogLevel:         null.NewString("info", false),
		LogFormat:        null.NewString("text", false),
		Listen:           null.NewString("127.0.0.1:8080", false),
		TracingEnabled:   null.NewBool(false, false),
		TracingProtocol:  null.NewString("grpc", false),
	}
}

// Apply returns c with every valid field of cfg copied over it.
//
//nolint:cyclop
func (c Config) Apply(cfg Config) Config {
	if cfg.AccountID.Valid {
		c.AccountID = cfg.AccountID
	}
	if cfg.AccessKeyID.Valid {
		c.AccessKeyID = cfg.AccessKeyID
	}
	if cfg.SecretAccessKey.Valid {
		c.SecretAccessKey = cfg.SecretAccessKey
	}
	if cfg.Bucket1.Valid {
		c.Bucket1 = cfg.Bucket1
	}
	if cfg.Bucket2.Valid {
		c.Bucket2 = cfg.Bucket2
	}
	if cfg.StorageDomain.Valid && cfg.StorageDomain.String != "" {
		c.StorageDomain = cfg.StorageDomain
	}
	if cfg.Endpoint.Valid {
		c.Endpoint = cfg.Endpoint
	}
	if cfg.Region.Valid && cfg.Region.String != "" {
		c.Region = cfg.Region
	}
	if cfg.Service.Valid && cfg.Service.String != "" {
		c.Service = cfg.Service
	}
	if cfg.ContentType.Valid && cfg.ContentType.String != "" {
		c.ContentType = cfg.ContentType
	}
	if cfg.Timeout.Valid {
		c.Timeout = cfg.Timeout
	}
	if cfg.CacheSigningKeys.Valid {
		c.CacheSigningKeys = cfg.CacheSigningKeys
	}
	if cfg.LogLevel.Valid {
		c.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat.Valid {
		c.LogFormat = cfg.LogFormat
	}
	if cfg.Listen.Valid {
		c.Listen = cfg.Listen
	}
	if cfg.TracingEnabled.Valid {
		c.TracingEnabled = cfg.TracingEnabled
	}
	if cfg.TracingEndpoint.Valid {
		c.TracingEndpoint = cfg.TracingEndpoint
	}
	if cfg.TracingProtocol.Valid {
		c.TracingProtocol = cfg.TracingProtocol
	}
	if len(cfg.Buckets) > 0 {
		merged := make(map[string]string, len(c.Buckets)+len(cfg.Buckets))
		for k, v := range c.Buckets {
			merged[k] = v
		}
		for k, v := range cfg.Buckets {
			merged[k] = v
		}
		c.Buckets = merged
	}
	return c
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (or at $R2PUT_CONFIG when path is empty), then the environment.
// lookupEnv defaults to os.LookupEnv. A missing file is only an error when a
// path was given.
func Load(fsys afero.Fs, path string, lookupEnv func(string) (string, bool)) (Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if path == "" {
		path, _ = lookupEnv(ConfigEnvKey)
	}

	cfg := NewConfig()
	if path != "" {
		fileCfg, err := readFile(fsys, path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Apply(fileCfg)
	}

	envCfg := Config{}
	if err := envconfig.Process("", &envCfg, lookupEnv); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", ErrConfiguration, err)
	}
	return cfg.Apply(envCfg), nil
}

// Validate reports the first problem that would prevent an upload.
func (c Config) Validate() error {
	if c.AccountID.String == "" && c.Endpoint.String == "" {
		return fmt.Errorf("%w: CLOUDFLARE_ACCOUNT_ID is required", ErrConfiguration)
	}
	if c.AccessKeyID.String == "" {
		return fmt.Errorf("%w: CLOUDFLARE_ACCESS_KEY_ID is required", ErrConfiguration)
	}
	if c.SecretAccessKey.String == "" {
		return fmt.Errorf("%w: CLOUDFLARE_SECRET_ACCESS_KEY is required", ErrConfiguration)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	switch c.LogFormat.String {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q must be text or json", ErrConfiguration, c.LogFormat.String)
	}
	switch c.TracingProtocol.String {
	case "grpc", "http":
	default:
		return fmt.Errorf("%w: tracing protocol %q must be grpc or http", ErrConfiguration, c.TracingProtocol.String)
	}
	return nil
}

// TimeoutDuration parses Timeout. Zero means no per-upload timeout.
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout.String == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout.String)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: invalid timeout %q", ErrConfiguration, c.Timeout.String)
	}
	return d, nil
}

// SignerConfig returns the signer settings. Clock is left to its default.
func (c Config) SignerConfig() signer.Config {
	return signer.Config{
		Credentials: signer.Credentials{
			AccessKeyID:     c.AccessKeyID.String,
			SecretAccessKey: c.SecretAccessKey.String,
		},
		Region:           c.Region.String,
		Service:          c.Service.String,
		CacheSigningKeys: c.CacheSigningKeys.Bool,
	}
}

// Target returns the object store address.
func (c Config) Target() upload.Target {
	return upload.Target{
		AccountID:     c.AccountID.String,
		StorageDomain: c.StorageDomain.String,
		Endpoint:      c.Endpoint.String,
	}
}

// BucketAliases returns every configured alias and the bucket it names.
func (c Config) BucketAliases() map[string]string {
	aliases := make(map[string]string, len(c.Buckets)+2)
	for k, v := range c.Buckets {
		if v != "" {
			aliases[k] = v
		}
	}
	if c.Bucket1.String != "" {
		aliases[Bucket1Alias] = c.Bucket1.String
	}
	if c.Bucket2.String != "" {
		aliases[Bucket2Alias] = c.Bucket2.String
	}
	return aliases
}

// ResolveBucket maps an alias, or a configured bucket name, to a bucket name.
// An empty name selects bucket1.
func (c Config) ResolveBucket(name string) (string, error) {
	if name == "" {
		name = Bucket1Alias
	}
	aliases := c.BucketAliases()
	if bucket, ok := aliases[name]; ok {
		return bucket, nil
	}
	for _, bucket := range aliases {
		if bucket == name {
			return bucket, nil
		}
	}

	known := make([]string, 0, len(aliases))
	for k := range aliases {
		known = append(known, k)
	}
	sort.Strings(known)
	if len(known) == 0 {
		return "", fmt.Errorf("%w: no buckets configured (set CLOUDFLARE_BUCKET_1)", ErrConfiguration)
	}
	return "", fmt.Errorf("%w: unknown bucket %q (configured: %s)", ErrConfiguration, name, strings.Join(known, ", "))
}

// fileConfig is the YAML layout of the config file.
//
// Example:
//
//	accountID: "0123abcd"
//	accessKeyID: "..."
//	secretAccessKey: "..."
//	buckets:
//	  bucket1: "images"
//	  thumbs: "images-thumbs"
//	timeout: "30s"
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4317"
type fileConfig struct {
	AccountID        string            `yaml:"accountID"`
	AccessKeyID      string            `yaml:"accessKeyID"`
	SecretAccessKey  string            `yaml:"secretAccessKey"`
	Buckets          map[string]string `yaml:"buckets"`
	StorageDomain    string            `yaml:"storageDomain"`
	Endpoint         string            `yaml:"endpoint"`
	Region           string            `yaml:"region"`
	Service          string            `yaml:"service"`
	ContentType      string            `yaml:"contentType"`
	Timeout          string            `yaml:"timeout"`
	CacheSigningKeys *bool             `yaml:"cacheSigningKeys"`
	Log              struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Listen  string `yaml:"listen"`
	Tracing struct {
		Enabled  *bool  `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
		Protocol string `yaml:"protocol"`
	} `yaml:"tracing"`
}

func readFile(fsys afero.Fs, path string) (Config, error) {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: config file %s not found", ErrConfiguration, path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: parse config %s: %v", ErrConfiguration, path, err)
	}
	return fc.toConfig(), nil
}

func (fc fileConfig) toConfig() Config {
	str := func(s string) null.String { return null.NewString(s, s != "") }
	boolean := func(b *bool) null.Bool {
		if b == nil {
			return null.Bool{}
		}
		return null.BoolFrom(*b)
	}

	cfg := Config{
		AccountID:        str(fc.AccountID),
		AccessKeyID:      str(fc.AccessKeyID),
		SecretAccessKey:  str(fc.SecretAccessKey),
		StorageDomain:    str(fc.StorageDomain),
		Endpoint:         str(fc.Endpoint),
		Region:           str(fc.Region),
		Service:          str(fc.Service),
		ContentType:      str(fc.ContentType),
		Timeout:          str(fc.Timeout),
		CacheSigningKeys: boolean(fc.CacheSigningKeys),
		LogLevel:         str(fc.Log.Level),
		LogFormat:        str(fc.Log.Format),
		Listen:           str(fc.Listen),
		TracingEnabled:   boolean(fc.Tracing.Enabled),
		TracingEndpoint:  str(fc.Tracing.Endpoint),
		TracingProtocol:  str(fc.Tracing.Protocol),
	}
	if b, ok := fc.Buckets[Bucket1Alias]; ok {
		cfg.Bucket1 = str(b)
	}
	if b, ok := fc.Buckets[Bucket2Alias]; ok {
		cfg.Bucket2 = str(b)
	}
	if len(fc.Buckets) > 0 {
		cfg.Buckets = make(map[string]string, len(fc.Buckets))
		for k, v := range fc.Buckets {
			if k != Bucket1Alias && k != Bucket2Alias {
				cfg.Buckets[k] = v
			}
		}
		if len(cfg.Buckets) == 0 {
			cfg.Buckets = nil
		}
	}
	return cfg
}
