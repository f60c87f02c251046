// Package config loads the fredkin session configuration.
//
// The file is YAML, decoded strictly (unknown keys are errors) and then
// checked against an embedded CUE schema. Missing values take the defaults
// the firmware is built for; command-line flags override both.
//
//	port: /dev/ttyACM0
//	baud: 115200
//	timeout: 1s
//	poll_interval: 100ms
//	settle_delay: 2s
//	log_file: logs_fredkin.txt
//	db: fredkin.db
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fredkin/internal/receiver"
	"github.com/roach88/fredkin/internal/transport"
)

//go:embed schema.cue
var schemaCUE string

// Config is the resolved session configuration.
type Config struct {
	Port         string
	BaudRate     int
	Timeout      time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration
	LogFile      string
	Database     string
}

// fileConfig mirrors the YAML document. The json tags name the CUE fields.
type fileConfig struct {
	Port         string `yaml:"port" json:"port"`
	Baud         int    `yaml:"baud" json:"baud"`
	Timeout      string `yaml:"timeout" json:"timeout"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	SettleDelay  string `yaml:"settle_delay" json:"settle_delay"`
	LogFile      string `yaml:"log_file" json:"log_file"`
	Database     string `yaml:"db" json:"db"`
}

// DefaultPort is the serial port used when none is configured.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyACM0"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:         DefaultPort(),
		BaudRate:     transport.DefaultBaudRate,
		Timeout:      transport.DefaultTimeout,
		PollInterval: receiver.DefaultInterval,
		SettleDelay:  transport.DefaultSettleDelay,
	}
}

// Load reads path and merges it over Default. An empty path yields Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML config document.
func Parse(data []byte) (Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(fc); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return fc.resolve()
}

// validate unifies the document with the #Config schema.
func validate(fc fileConfig) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	doc := ctx.Encode(fc)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return errors.New(cueerrors.Details(err, nil))
	}
	return nil
}

func (fc fileConfig) resolve() (Config, error) {
	cfg := Default()
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.Baud != 0 {
		cfg.BaudRate = fc.Baud
	}
	cfg.LogFile = fc.LogFile
	cfg.Database = fc.Database

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", fc.Timeout, &cfg.Timeout},
		{"poll_interval", fc.PollInterval, &cfg.PollInterval},
		{"settle_delay", fc.SettleDelay, &cfg.SettleDelay},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid config: %s: %w", d.name, err)
		}
		*d.dst = v
	}
	if cfg.PollInterval == 0 {
		return Config{}, fmt.Errorf("invalid config: poll_interval must be positive")
	}
	return cfg, nil
}

// TransportConfig returns the link settings.
func (c Config) TransportConfig() transport.Config {
	return transport.Config{
		Port:        c.Port,
		BaudRate:    c.BaudRate,
		Timeout:     c.Timeout,
		SettleDelay: c.SettleDelay,
	}
}
