package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Shehab101tf/tareeqa0-sub002/escpos"
	"github.com/Shehab101tf/tareeqa0-sub002/hardware"
	"github.com/Shehab101tf/tareeqa0-sub002/serialio"
)

const configFileName = "config.toml"

// Config is the daemon configuration.
type Config struct {
	Serial    SerialConfig    `toml:"serial"`
	Printer   PrinterConfig   `toml:"printer"`
	Detection DetectionConfig `toml:"detection"`
	Web       WebConfig       `toml:"web"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

// SerialConfig holds the port parameters applied to every printer and drawer.
type SerialConfig struct {
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits"`
	Parity   string `toml:"parity"`
	StopBits int    `toml:"stop_bits"`
}

// PrinterConfig holds the encoder profile shared by all print jobs.
type PrinterConfig struct {
	PaperWidth      int    `toml:"paper_width"`
	Encoding        string `toml:"encoding"`
	InterJobDelayMs int    `toml:"inter_job_delay_ms"`
}

// DetectionConfig controls the redetection ticker and autoconnect behavior.
type DetectionConfig struct {
	IntervalSeconds int  `toml:"interval_seconds"`
	Autoconnect     bool `toml:"autoconnect"`
}

// WebConfig holds the loopback API settings.
type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	Bind    string `toml:"bind"`
}

// DatabaseConfig holds journal database settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level     string `toml:"level"`
	Directory string `toml:"directory"`
}

// DefaultConfig returns the configuration for a till with one ESC/POS
// printer on a 9600 baud serial line and Arabic receipts.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			BaudRate: 9600,
			DataBits: 8,
			Parity:   "none",
			StopBits: 1,
		},
		Printer: PrinterConfig{
			PaperWidth:      80,
			Encoding:        "cp864",
			InterJobDelayMs: 100,
		},
		Detection: DetectionConfig{
			IntervalSeconds: 0,
			Autoconnect:     true,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8385,
			Bind:    "127.0.0.1",
		},
		Database: DatabaseConfig{
			Path: "", // platform data dir / hardware.db
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// findConfig returns the first config file that exists, in the search order:
// explicit flag path, TAREEQA_CONFIG, executable directory, working
// directory, platform config directories.
func findConfig(flagPath string) (string, bool) {
	var candidates []string

	if flagPath != "" {
		candidates = append(candidates, flagPath)
	}
	if env := os.Getenv("TAREEQA_CONFIG"); env != "" {
		candidates = append(candidates, env)
	}
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), configFileName))
	}
	candidates = append(candidates, configFileName)
	candidates = append(candidates, platformConfigPaths()...)

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func platformConfigPaths() []string {
	var paths []string
	switch runtime.GOOS {
	case "windows":
		paths = append(paths, filepath.Join(os.Getenv("ProgramData"), "Tareeqa", configFileName))
	case "darwin":
		paths = append(paths, filepath.Join("/Library/Application Support", "Tareeqa", configFileName))
	default:
		paths = append(paths, filepath.Join("/etc/tareeqa", configFileName))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			paths = append(paths, filepath.Join(homeDir, "AppData", "Local", "Tareeqa", configFileName))
		case "darwin":
			paths = append(paths, filepath.Join(homeDir, "Library", "Application Support", "Tareeqa", configFileName))
		default:
			paths = append(paths, filepath.Join(homeDir, ".config", "tareeqa", configFileName))
		}
	}
	return paths
}

// LoadConfig resolves and loads the configuration. A missing file is not an
// error; the defaults apply and the returned path is empty. Environment
// overrides are applied last in every case.
func LoadConfig(flagPath string) (*Config, string, error) {
	cfg := DefaultConfig()

	path, found := findConfig(flagPath)
	if found {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, path, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, path, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TAREEQA_DB_PATH"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("TAREEQA_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("TAREEQA_WEB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Web.Port = port
		}
	}
}

// WriteDefaultConfig writes the default configuration to the given path.
func WriteDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(DefaultConfig()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// registryConfig converts the file-level settings into the registry's form.
// The encoding name is validated here so a typo fails startup instead of the
// first print job.
func (c *Config) registryConfig() (hardware.Config, error) {
	encoding, err := escpos.ParseEncoding(c.Printer.Encoding)
	if err != nil {
		return hardware.Config{}, err
	}
	return hardware.Config{
		Serial: serialio.Config{
			BaudRate: c.Serial.BaudRate,
			DataBits: c.Serial.DataBits,
			Parity:   c.Serial.Parity,
			StopBits: c.Serial.StopBits,
		},
		Printer: escpos.Config{
			PaperWidth: c.Printer.PaperWidth,
			Encoding:   encoding,
		},
		InterJobDelay: time.Duration(c.Printer.InterJobDelayMs) * time.Millisecond,
	}, nil
}

// databasePath resolves the journal location: the configured path wins, an
// empty one lands in the platform data directory.
func (c *Config) databasePath(isService bool) (string, error) {
	if c.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
		return c.Database.Path, nil
	}
	dataDir, err := defaultDataDir(isService)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "hardware.db"), nil
}

// logDirectory resolves where log files go: the configured directory wins,
// an empty one means the platform log directory for services and ./logs for
// interactive runs.
func (c *Config) logDirectory(isService bool) string {
	if c.Logging.Directory != "" {
		return c.Logging.Directory
	}
	dir, err := defaultLogDir(isService)
	if err != nil {
		return "logs"
	}
	return dir
}

func defaultDataDir(isService bool) (string, error) {
	var dataDir string
	if isService {
		switch runtime.GOOS {
		case "windows":
			dataDir = filepath.Join(os.Getenv("ProgramData"), "Tareeqa", "hardware")
		default:
			dataDir = "/var/lib/tareeqa/hardware"
		}
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		switch runtime.GOOS {
		case "windows":
			dataDir = filepath.Join(homeDir, "AppData", "Local", "Tareeqa", "hardware")
		case "darwin":
			dataDir = filepath.Join(homeDir, "Library", "Application Support", "Tareeqa", "hardware")
		default:
			dataDir = filepath.Join(homeDir, ".local", "share", "tareeqa", "hardware")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}

func defaultLogDir(isService bool) (string, error) {
	var logDir string
	if isService {
		switch runtime.GOOS {
		case "windows":
			logDir = filepath.Join(os.Getenv("ProgramData"), "Tareeqa", "hardware", "logs")
		default:
			logDir = "/var/log/tareeqa"
		}
	} else {
		logDir = "logs"
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return logDir, nil
}
