package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridctl/gridctl-go/pkg/configuration"
	"github.com/gridctl/gridctl-go/pkg/device"
	"github.com/gridctl/gridctl-go/pkg/log"
)

// Config holds the gridctl settings. It is read from an optional YAML file;
// command-line flags override it.
type Config struct {
	// Port is matched case-insensitively against MIDI port names.
	Port string `yaml:"port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// ProtocolLog is a .glog file receiving protocol events.
	ProtocolLog string `yaml:"protocol_log"`

	// Catalog is a YAML device catalog replacing the built-in one.
	Catalog string `yaml:"catalog"`

	// UnknownDeviceFallback decodes unknown device ids as a generic 16n.
	UnknownDeviceFallback bool `yaml:"unknown_device_fallback"`

	// RequestTimeout bounds the wait for a config dump.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		Port:           "16n",
		LogLevel:       "info",
		LogFormat:      "text",
		RequestTimeout: 5 * time.Second,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
	}
}

// NewLogger creates the operational logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewTranslator creates a translator using the configured catalog.
func (c Config) NewTranslator(logger *slog.Logger) (*configuration.Translator, error) {
	cat := device.Default()
	if c.Catalog != "" {
		f, err := os.Open(c.Catalog)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		if cat, err = device.LoadCatalog(f); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", c.Catalog, err)
		}
	}
	return configuration.NewTranslator(configuration.Config{
		Catalog:               cat,
		UnknownDeviceFallback: c.UnknownDeviceFallback,
		Logger:                logger,
	}), nil
}

// NewProtocolLogger creates the protocol event logger. Events go to the
// protocol log file when one is configured, and to logger at debug level.
// Close the returned logger to flush the file.
func (c Config) NewProtocolLogger(logger *slog.Logger) (*log.MultiLogger, error) {
	loggers := []log.Logger{log.NewSlogAdapter(logger)}
	if c.ProtocolLog != "" {
		fl, err := log.NewFileLogger(c.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
	}
	return log.NewMultiLogger(loggers...), nil
}

// commonFlags are accepted by every command.
type commonFlags struct {
	config   string
	logLevel string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.config, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&cf.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cf
}

// load reads the config file and applies flag overrides.
func (cf *commonFlags) load() (Config, error) {
	cfg, err := LoadConfig(cf.config)
	if err != nil {
		return cfg, err
	}
	if cf.logLevel != "" {
		cfg.LogLevel = cf.logLevel
	}
	return cfg, cfg.Validate()
}
