package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML run configuration. Nil fields are unset and
// leave the corresponding option untouched.
type FileConfig struct {
	TargetDir     *string  `yaml:"target_dir"`
	Workers       *int     `yaml:"workers_amount"`
	MaxTextLength *int     `yaml:"maximum_text_length"`
	QueueSize     *int     `yaml:"queue_size"`
	Extensions    []string `yaml:"extensions"`
	Exclude       []string `yaml:"exclude"`
	Depth         *int     `yaml:"depth"`
	Archives      *bool    `yaml:"archives"`
	PatternFile   *string  `yaml:"pattern_file"`
	Timeout       *string  `yaml:"timeout"`
	LogLevel      *string  `yaml:"log_level"`
}

// LoadConfigFile reads a YAML config file from the provided path.
func LoadConfigFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Apply copies every set field onto opts.
func (fc FileConfig) Apply(opts *ScanOptions) {
	if fc.TargetDir != nil {
		opts.TargetDir = *fc.TargetDir
	}
	if fc.Workers != nil {
		opts.Workers = *fc.Workers
	}
	if fc.MaxTextLength != nil {
		opts.MaxTextLength = *fc.MaxTextLength
	}
	if fc.QueueSize != nil {
		opts.QueueSize = *fc.QueueSize
	}
	if len(fc.Extensions) > 0 {
		opts.Extensions = fc.Extensions
	}
	if len(fc.Exclude) > 0 {
		opts.Exclude = fc.Exclude
	}
	if fc.Depth != nil {
		opts.Depth = *fc.Depth
	}
	if fc.Archives != nil {
		opts.Archives = *fc.Archives
	}
}

// TimeoutDuration parses Timeout; zero means no timeout.
func (fc FileConfig) TimeoutDuration() (time.Duration, error) {
	if fc.Timeout == nil || *fc.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*fc.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", *fc.Timeout, err)
	}
	return d, nil
}
