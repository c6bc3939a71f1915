// Package config loads the vehicle CLI configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

// Config is the file format, usually vehicle.yaml.
type Config struct {
	Log         LogConfig  `yaml:"log" json:"log"`
	FS          FSConfig   `yaml:"fs" json:"fs"`
	OutputLimit int        `yaml:"output_limit" json:"output_limit" validate:"gte=0" jsonschema:"description=Bytes of script output kept in memory per run (0 = unlimited)"`
	Timeout     Duration   `yaml:"timeout" json:"timeout" validate:"gte=0"`
	REPL        REPLConfig `yaml:"repl" json:"repl"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format" json:"format" validate:"oneof=console json" jsonschema:"enum=console,enum=json"`
}

// FSConfig holds the file op limits. 0 means unlimited.
type FSConfig struct {
	MaxFileSize   int64 `yaml:"max_file_size" json:"max_file_size" validate:"gte=0"`
	MaxWriteSize  int64 `yaml:"max_write_size" json:"max_write_size" validate:"gte=0"`
	MaxPathLength int   `yaml:"max_path_length" json:"max_path_length" validate:"gte=0"`
}

type REPLConfig struct {
	HistoryFile string `yaml:"history_file" json:"history_file" jsonschema:"description=Defaults to ~/.vehicle_history"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		FS: FSConfig{
			MaxFileSize:   10 * 1024 * 1024,
			MaxWriteSize:  10 * 1024 * 1024,
			MaxPathLength: 4096,
		},
		OutputLimit: 10 * 1024 * 1024,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Schema returns the JSON Schema of the config file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

// Duration is a time.Duration written as a string ("30s", "1m30s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`,
		Description: "Go duration string",
	}
}
