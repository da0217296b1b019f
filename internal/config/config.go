package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8451
)

// Config is the runtime configuration for one ingest run.
type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	OutputPath  string `toml:"output_path"`
	MetricsAddr string `toml:"metrics_addr"`

	// ReadTimeout bounds each blocking receive; empty disables it.
	ReadTimeout    string `toml:"read_timeout"`
	MaxBufferBytes int    `toml:"max_buffer_bytes"`
	MaxBins        int    `toml:"max_bins"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Host: DefaultHost,
		Port: DefaultPort,
	}
}

// Load reads a TOML config file, fills defaults, and validates.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("config missing host")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("config port out of range: %d", cfg.Port)
	}
	if cfg.MaxBufferBytes < 0 {
		return fmt.Errorf("config max_buffer_bytes negative: %d", cfg.MaxBufferBytes)
	}
	if cfg.MaxBins < 0 {
		return fmt.Errorf("config max_bins negative: %d", cfg.MaxBins)
	}
	if _, err := cfg.ReadTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// Addr returns the dial target for the digitizer connection.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReadTimeoutDuration parses the read_timeout field; zero means disabled.
func (c Config) ReadTimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(c.ReadTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config parse read_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config read_timeout negative: %s", raw)
	}
	return d, nil
}
