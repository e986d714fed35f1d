// Package config reads and writes the emplac TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultDataFile is the workbook the dashboard opens when nothing else is
// configured, relative to the working directory.
const DefaultDataFile = "data/EMPLACAMENTO ANUAL - CAMINHÕES.xlsx"

// Config holds all emplac configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Report     ReportConfig     `toml:"report"`
	Filters    FilterConfig     `toml:"filters"`
	Server     ServerConfig     `toml:"server"`
	TUI        TUIConfig        `toml:"tui"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig says where the registration workbooks live.
type GeneralConfig struct {
	DataFile string `toml:"data_file"`
	DataDir  string `toml:"data_dir,omitempty"`
}

// ReportConfig controls what client reports show.
type ReportConfig struct {
	Columns        []string `toml:"columns"`
	ModeColumns    []string `toml:"mode_columns"`
	ShowPrediction bool     `toml:"show_prediction"`
	ShowModes      bool     `toml:"show_modes"`
	MaxClients     int      `toml:"max_clients"`
}

// FilterConfig holds the brand and segment filters applied by default.
type FilterConfig struct {
	Brands   []string `toml:"brands,omitempty"`
	Segments []string `toml:"segments,omitempty"`
}

// ServerConfig holds settings for `emplac serve`.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	PollIntervalSec int    `toml:"poll_interval_sec"`
	MaxUploadMB     int    `toml:"max_upload_mb"`
	EventsBuffer    int    `toml:"events_buffer"`
	LogLevel        string `toml:"log_level"`
}

// TUIConfig holds dashboard-specific settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DataFile: DefaultDataFile,
		},
		Report: ReportConfig{
			Columns:        []string{"Data emplacamento", "PLACA", "Marca", "Modelo", "Segmento"},
			ModeColumns:    []string{"Marca", "Modelo", "Segmento"},
			ShowPrediction: true,
			ShowModes:      true,
			MaxClients:     10,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8765",
			PollIntervalSec: 30,
			MaxUploadMB:     50,
			EventsBuffer:    200,
			LogLevel:        "info",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 30,
		},
		Appearance: AppearanceConfig{
			Theme: "denigris",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "emplac")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "emplac")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// DataPath returns the workbook or directory to load: the EMPLAC_DATA_FILE
// environment variable, then data_dir, then data_file.
func DataPath(cfg Config) string {
	if p := os.Getenv("EMPLAC_DATA_FILE"); p != "" {
		return p
	}
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	return cfg.General.DataFile
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
