package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHost(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"installer.timeout":      c.Installer.Timeout,
		"watch.debounce_seconds": c.Watch.DebounceSeconds,
	}); err != nil {
		return err
	}
	if c.Watch.RescanInterval < 0 {
		return errors.New("watch.rescan_interval must be >= 0")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.BaseDir == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/patchtrack/config.toml"
		}
		return fmt.Errorf("paths.base_dir is required. Edit %s (create with 'patchtrack config init')", defaultPath)
	}
	if c.Paths.DataDir == c.Paths.BaseDir {
		return errors.New("paths.data_dir must not be the base directory itself")
	}
	return nil
}

func (c *Config) validateHost() error {
	if strings.TrimSpace(c.Host.Name) == "" {
		return errors.New("host.name must be set when the hostname cannot be detected")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
