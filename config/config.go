package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/shopspring/decimal"
)

// Config mirrors the config.json the tracker has always shipped with. The
// ledger core consumes only BackupsToKeep; LowStockThreshold, DefaultCurrency
// and DateFormat belong to the reporting side and are merely carried here.
type Config struct {
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	BackupsToKeep     int             `json:"backups_to_keep"`
	DefaultCurrency   string          `json:"default_currency"`
	DateFormat        string          `json:"date_format"`
}

func DefaultConfig() Config {
	return Config{
		LowStockThreshold: decimal.NewFromInt(10),
		BackupsToKeep:     30,
		DefaultCurrency:   "₹",
		DateFormat:        "2006-01-02",
	}
}

// LoadConfig reads the JSON config file, filling missing keys from defaults.
// A missing file is not an error: defaults are written back so the file exists
// for the next run.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, SaveConfig(path, cfg)
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return DefaultConfig(), err
	}
	if cfg.BackupsToKeep <= 0 {
		cfg.BackupsToKeep = DefaultConfig().BackupsToKeep
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultConfig().DateFormat
	}
	return cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	raw, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
