// Package config assembles the configuration of a generation run from the
// environment and the command line.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/pdok/atom-generator/pkg/atomfeed"
	"github.com/pdok/atom-generator/pkg/atomfeed/source"
	s3store "github.com/pdok/atom-generator/pkg/atomfeed/storage/s3"
	"github.com/pdok/atom-generator/pkg/utils"
)

// NGRBaseURLs maps NGR_ENVIRONMENT values to metadata catalog base URLs.
var NGRBaseURLs = map[string]string{
	"prod": "https://www.nationaalgeoregister.nl",
	"test": "https://www.ngr.test",
}

// Env is the environment every run requires
type Env struct {
	S3AccessKey          string `env:"S3_ACCESS_KEY" env-required:"true" env-description:"object store access key"`
	S3SecretKey          string `env:"S3_SECRET_KEY" env-required:"true" env-description:"object store secret key"`
	S3SigningRegion      string `env:"S3_SIGNING_REGION" env-required:"true" env-description:"object store signing region"`
	S3EndpointNoProtocol string `env:"S3_ENDPOINT_NO_PROTOCOL" env-required:"true" env-description:"object store host[:port]"`
	S3UseSSL             bool   `env:"S3_USE_SSL" env-default:"false" env-description:"use https for the object store"`
	NGREnvironment       string `env:"NGR_ENVIRONMENT" env-required:"true" env-description:"metadata catalog environment (prod or test)"`
}

// Config is the configuration of one generation run
type Config struct {
	Env Env

	SourceBucket      string
	SourcePrefix      string
	DestinationBucket string // legacy copy mode only
	DestinationPrefix string

	ConfigPath  string // feed description, JSON or YAML
	BaseURL     string
	ServicePath string
	OutputPath  string // local output directory, unused in copy mode
	Force       bool

	// generation requires a feed description and an output
	generation bool
}

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options, then validates it.
func Load(opts ...Option) (*Config, error) {
	cfg := Config{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", atomfeed.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the environment, the locations and, for generation runs,
// that the feed description and output directory exist.
func (c *Config) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"S3_ACCESS_KEY":           c.Env.S3AccessKey,
		"S3_SECRET_KEY":           c.Env.S3SecretKey,
		"S3_SIGNING_REGION":       c.Env.S3SigningRegion,
		"S3_ENDPOINT_NO_PROTOCOL": c.Env.S3EndpointNoProtocol,
		"NGR_ENVIRONMENT":         c.Env.NGREnvironment,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return invalid("environment variable(s) not set: %s", strings.Join(missing, ", "))
	}
	if _, ok := NGRBaseURLs[c.Env.NGREnvironment]; !ok {
		return invalid("invalid NGR environment %q", c.Env.NGREnvironment)
	}

	if strings.Trim(c.SourceBucket, "/") == "" {
		return invalid("source bucket is required")
	}
	if c.DestinationBucket == "" && c.DestinationPrefix != "" {
		return invalid("destination prefix given without destination bucket")
	}
	if c.DestinationBucket != "" && strings.Trim(c.DestinationPrefix, "/") == "" {
		return invalid("destination prefix is required with a destination bucket")
	}

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("base url %q is not an absolute url", c.BaseURL)
		}
	}

	if !c.generation {
		return nil
	}
	if c.ConfigPath == "" {
		return invalid("config path is required")
	}
	if _, err := os.Stat(c.ConfigPath); err != nil {
		return invalid("config path does not exist: %v", err)
	}
	if c.CopyMode() {
		return nil
	}
	if c.OutputPath == "" {
		return invalid("path is required unless a destination bucket is given")
	}
	info, err := os.Stat(c.OutputPath)
	if err != nil {
		return invalid("path does not exist: %v", err)
	}
	if !info.IsDir() {
		return invalid("path %s is not a directory", c.OutputPath)
	}
	return nil
}

// CopyMode reports whether the legacy destination bucket is configured.
func (c *Config) CopyMode() bool {
	return c.DestinationBucket != ""
}

// CatalogBaseURL returns the NGR base URL of the configured environment.
func (c *Config) CatalogBaseURL() string {
	return NGRBaseURLs[c.Env.NGREnvironment]
}

// ServiceURL returns the public base URL of the feed, with trailing slash.
// It is empty without a service path, except in copy mode where the
// destination prefix is the path.
func (c *Config) ServiceURL() string {
	if c.CopyMode() {
		return utils.BuildURI(true, c.BaseURL, c.DestinationPrefix)
	}
	if c.ServicePath == "" {
		return ""
	}
	return utils.BuildURI(true, c.BaseURL, c.ServicePath)
}

// S3 returns the object store configuration
func (c *Config) S3() s3store.Config {
	return s3store.Config{
		Endpoint:        c.Env.S3EndpointNoProtocol,
		Region:          c.Env.S3SigningRegion,
		AccessKeyID:     c.Env.S3AccessKey,
		SecretAccessKey: c.Env.S3SecretKey,
		UseSSL:          c.Env.S3UseSSL,
		UsePathStyle:    true,
	}
}

// Locations returns the source and destination of the accessor
func (c *Config) Locations() source.Config {
	return source.Config{
		SourceBucket:      c.SourceBucket,
		SourcePrefix:      c.SourcePrefix,
		DestinationBucket: c.DestinationBucket,
		DestinationPrefix: c.DestinationPrefix,
	}
}

// BuildAccessor connects to the object store and returns the accessor of
// the configured locations.
func (c *Config) BuildAccessor(logger *slog.Logger) (*source.Accessor, error) {
	store, err := s3store.New(c.S3())
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return source.New(store, c.Locations(), source.WithLogger(logger))
}

// Environment returns the feed environment of this run, bound to src.
func (c *Config) Environment(src atomfeed.Source) atomfeed.Environment {
	return atomfeed.Environment{
		Source:         src,
		ServiceURL:     c.ServiceURL(),
		CatalogBaseURL: c.CatalogBaseURL(),
		FlatDownloads:  c.CopyMode(),
	}
}

// LogValue renders the configuration without credentials.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("config_path", c.ConfigPath),
		slog.String("service_url", c.ServiceURL()),
		slog.Bool("force", c.Force),
		slog.String("path", c.OutputPath),
		slog.String("source", utils.BuildURI(false, c.SourceBucket, c.SourcePrefix)),
		slog.String("destination", utils.BuildURI(false, c.DestinationBucket, c.DestinationPrefix)),
		slog.String("endpoint", c.S3().EndpointURL()),
		slog.String("ngr", c.CatalogBaseURL()),
	)
}
