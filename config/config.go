// Package config loads the optional lifecycle configuration file of a
// program. The format is chosen by extension: .toml, or .yaml/.yml.
//
//	# prog.toml
//	detach = true
//	working_directory = "/var/lib/prog"
//	pid_file = "/run/prog/prog.pid"
//	log_file = "/var/log/prog/prog.log"
//	log_mode = "append"
//
//	[log]
//	level = "debug"
//	format = "json"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for a file extension other than
	// .toml, .yaml or .yml.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalidLogMode is returned for a log_mode other than
	// "truncate" or "append".
	ErrInvalidLogMode = errors.New("invalid log mode")
)

// Log modes accepted in LogMode.
const (
	LogModeTruncate = "truncate"
	LogModeAppend   = "append"
)

// Lifecycle holds the settings Start accepts as options. Empty fields leave
// the corresponding defaults in place.
type Lifecycle struct {
	// Detach runs the program in the background when set.
	Detach *bool `toml:"detach" yaml:"detach"`

	WorkingDirectory string `toml:"working_directory" yaml:"working_directory"`
	PIDFile          string `toml:"pid_file" yaml:"pid_file"`
	LogFile          string `toml:"log_file" yaml:"log_file"`

	// LogMode is "truncate" or "append".
	LogMode string `toml:"log_mode" yaml:"log_mode"`

	Log Log `toml:"log" yaml:"log"`
}

// Log configures the process logger.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	// AddSource is nil when the file does not set it.
	AddSource *bool `toml:"add_source" yaml:"add_source"`
}

// Load reads the configuration file at path. Relative paths inside the file
// are resolved against the directory of path.
func Load(path string) (Lifecycle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lifecycle{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Lifecycle
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return Lifecycle{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Lifecycle{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Lifecycle{}, fmt.Errorf("validating config %s: %w", path, err)
	}

	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Validate checks the field values.
func (c Lifecycle) Validate() error {
	switch strings.ToLower(c.LogMode) {
	case "", LogModeTruncate, LogModeAppend:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogMode, c.LogMode)
	}
}

func (c *Lifecycle) resolve(base string) {
	for _, p := range []*string{&c.WorkingDirectory, &c.PIDFile, &c.LogFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	c.LogMode = strings.ToLower(c.LogMode)
}
