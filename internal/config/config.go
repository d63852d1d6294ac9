// Package config loads startup configuration.
//
// A config file is YAML (.yaml, .yml) or TOML (.toml). Whatever the format,
// the decoded document is unified with the embedded CUE schema, which closes
// the set of keys, checks enums and ranges, and fills in defaults:
//
//	database: stowage.db
//	max_conns: 4
//	log:
//	  level: info      # debug | info | warn | error
//	  format: text     # text | json | console | none
//	metrics:
//	  enabled: false
//	  namespace: stowage
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// ErrUnknownFormat is returned for config files with an unrecognized extension.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Config is the validated startup configuration.
type Config struct {
	Database string  `json:"database"`
	MaxConns int     `json:"max_conns"`
	Log      Log     `json:"log"`
	Metrics  Metrics `json:"metrics"`
}

// Log selects the logging sink.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Metrics controls Prometheus collection.
type Metrics struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// Default returns the configuration with every default applied.
func Default() (Config, error) {
	return build(map[string]any{}, "defaults")
}

// Load reads, validates and defaults the config file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	raw, err := decode(path, b)
	if err != nil {
		return Config{}, err
	}
	return build(raw, path)
}

// decode parses b by file extension into a generic document.
func decode(path string, b []byte) (map[string]any, error) {
	raw := map[string]any{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	// An empty YAML document decodes to a nil map.
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// build unifies raw with the schema and decodes the result.
func build(raw map[string]any, source string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config: schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", source, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: decode: %w", source, err)
	}
	return cfg, nil
}
