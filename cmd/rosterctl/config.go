package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigName = ".rosterctl.yaml"
	defaultAPIURL     = "http://localhost:8080"
)

var errNotLoggedIn = errors.New(`not logged in, run "rosterctl login" first`)

// CLIConfig хранится в ~/.rosterctl.yaml.
type CLIConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token,omitempty"`
	UserID string `yaml:"user_id,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

func configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigName), nil
}

// loadConfig читает файл конфигурации. Отсутствующий файл дает конфигурацию по умолчанию.
func loadConfig(path string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}

func saveConfig(path string, cfg *CLIConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// файл содержит токен
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// resolveConfig применяет флаг --api-url поверх файла.
func resolveConfig(cmd *cobra.Command) (*CLIConfig, string, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, "", err
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}
	return cfg, path, nil
}

func (c *CLIConfig) requireLogin() error {
	if c.Token == "" || c.UserID == "" {
		return errNotLoggedIn
	}
	return nil
}
