package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/linkq/internal/atomicfile"
)

type persistedConfig struct {
	Models   *string            `toml:"models,omitempty"`
	Database *persistedDatabase `toml:"database,omitempty"`
	Log      *persistedLog      `toml:"log,omitempty"`
	Server   *persistedServer   `toml:"server,omitempty"`
	UI       *persistedUI       `toml:"ui,omitempty"`
}

type persistedDatabase struct {
	Driver *string `toml:"driver,omitempty"`
	DSN    *string `toml:"dsn,omitempty"`
}

type persistedLog struct {
	Level *string `toml:"level,omitempty"`
}

type persistedServer struct {
	Addr *string `toml:"addr,omitempty"`
}

type persistedUI struct {
	Accent *string `toml:"accent,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes cfg to path atomically. Empty settings are omitted.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{Models: nonEmptyPtr(cfg.Models)}
	driver, dsn := nonEmptyPtr(cfg.Database.Driver), nonEmptyPtr(cfg.Database.DSN)
	if driver != nil || dsn != nil {
		out.Database = &persistedDatabase{Driver: driver, DSN: dsn}
	}
	if level := nonEmptyPtr(cfg.Log.Level); level != nil {
		out.Log = &persistedLog{Level: level}
	}
	if addr := nonEmptyPtr(cfg.Server.Addr); addr != nil {
		out.Server = &persistedServer{Addr: addr}
	}
	if accent := nonEmptyPtr(cfg.UI.Accent); accent != nil {
		out.UI = &persistedUI{Accent: accent}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
