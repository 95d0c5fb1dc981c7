// Package config holds the settings of the lof command: data source,
// neighborhood sizes, evaluation threshold, logging and metrics.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the lof command configuration.
type Config struct {
	// K is the neighborhood size. 0 runs a sweep over Sweep instead.
	K     int   `yaml:"k"`
	Sweep []int `yaml:"sweep"`

	// Threshold separates outliers (LOF > Threshold) from inliers.
	Threshold float64 `yaml:"threshold"`

	// PositiveLabel is the label of actual outliers, e.g. "M" (malignant).
	PositiveLabel string `yaml:"positive_label"`

	// Workers is the per-phase parallelism; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`

	Source Source `yaml:"source"`
	Sample Sample `yaml:"sample"`
	Log    Log    `yaml:"log"`

	// MetricsAddr serves Prometheus metrics on /metrics when set (":9100").
	MetricsAddr string `yaml:"metrics_addr"`
}

// Source selects where records are loaded from: a CSV file, or a SQLite
// database holding either a records table or a sqlite-vec docs table.
type Source struct {
	CSV    string `yaml:"csv"`
	Header bool   `yaml:"header"`

	SQLite     string `yaml:"sqlite"`
	Table      string `yaml:"table"`
	Embeddings string `yaml:"embeddings"`
}

// Sample down-samples records with Label, keeping each with probability
// Rate. Seed 0 picks a random seed.
type Sample struct {
	Label string  `yaml:"label"`
	Rate  float64 `yaml:"rate"`
	Seed  uint64  `yaml:"seed"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sweep:         []int{10, 20, 30, 40, 50},
		Threshold:     1.5,
		PositiveLabel: "M",
		Source:        Source{Table: "records"},
		Sample:        Sample{Rate: 1},
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path on top of Default using strict parsing.
// An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	defer file.Close()
	return decode(file, cfg)
}

func decode(r io.Reader, cfg Config) (Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: YAML error: %w", err)
	}
	return cfg, nil
}

// Ks returns the neighborhood sizes to run: K alone, or the sweep.
func (c Config) Ks() []int {
	if c.K > 0 {
		return []int{c.K}
	}
	return c.Sweep
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.K < 0 {
		return fmt.Errorf("config: k must be >= 0, got %d", c.K)
	}
	if c.K == 0 && len(c.Sweep) == 0 {
		return errors.New("config: either k or sweep must be set")
	}
	for _, k := range c.Sweep {
		if k < 1 {
			return fmt.Errorf("config: sweep values must be >= 1, got %d", k)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	switch {
	case c.Source.CSV == "" && c.Source.SQLite == "":
		return errors.New("config: no data source: set source.csv or source.sqlite")
	case c.Source.CSV != "" && c.Source.SQLite != "":
		return errors.New("config: source.csv and source.sqlite are mutually exclusive")
	case c.Source.Embeddings != "" && c.Source.SQLite == "":
		return errors.New("config: source.embeddings requires source.sqlite")
	}
	if c.Sample.Label != "" && (c.Sample.Rate < 0 || c.Sample.Rate > 1) {
		return fmt.Errorf("config: sample.rate must be within [0,1], got %v", c.Sample.Rate)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
