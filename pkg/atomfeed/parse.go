package atomfeed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of an input document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the input format from a file extension; JSON unless the
// file ends in .yaml or .yml.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a feed description and binds it to env. Unknown keys are
// ignored.
func Parse(data []byte, format Format, env Environment) (*ServiceFeed, error) {
	var feed ServiceFeed
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &feed); err != nil {
			return nil, fmt.Errorf("parse yaml feed description: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &feed); err != nil {
			return nil, fmt.Errorf("parse json feed description: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported feed description format: %s", format)
	}
	return feed.Bind(env), nil
}

// Load reads and parses the feed description at path.
func Load(path string, env Environment) (*ServiceFeed, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("read feed description: %w", err)
	}
	return Parse(data, FormatOf(path), env)
}
