package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads the environment variables into the configuration.
func WithEnv() Option {
	return func(c *Config) error {
		if err := cleanenv.ReadEnv(&c.Env); err != nil {
			return invalid("%v", err)
		}
		return nil
	}
}

// WithEnvValues sets the environment explicitly
func WithEnvValues(env Env) Option {
	return func(c *Config) error {
		c.Env = env
		return nil
	}
}

// WithLocations sets source bucket and prefix and, with four values, the
// legacy destination bucket and prefix.
func WithLocations(locations ...string) Option {
	return func(c *Config) error {
		switch len(locations) {
		case 2:
			c.SourceBucket, c.SourcePrefix = locations[0], locations[1]
		case 4:
			c.SourceBucket, c.SourcePrefix = locations[0], locations[1]
			c.DestinationBucket, c.DestinationPrefix = locations[2], locations[3]
		default:
			return invalid("locations takes only 2 or 4 arguments, got %d", len(locations))
		}
		return nil
	}
}

// WithGeneration makes the feed description and output required, and sets them
func WithGeneration(configPath, baseURL string) Option {
	return func(c *Config) error {
		if configPath == "" {
			return fmt.Errorf("config path cannot be empty")
		}
		c.generation = true
		c.ConfigPath = configPath
		c.BaseURL = baseURL
		return nil
	}
}

// WithOutputPath sets the local output directory
func WithOutputPath(path string) Option {
	return func(c *Config) error {
		c.OutputPath = path
		return nil
	}
}

// WithServicePath sets the path of the feed below the base URL
func WithServicePath(servicePath string) Option {
	return func(c *Config) error {
		c.ServicePath = servicePath
		return nil
	}
}

// WithForce allows replacing an existing feed in the destination bucket
func WithForce(force bool) Option {
	return func(c *Config) error {
		c.Force = force
		return nil
	}
}
