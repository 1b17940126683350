package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeHost(); err != nil {
		return err
	}
	c.normalizeInstaller()
	c.normalizeWatch()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.BaseDir = strings.TrimSpace(c.Paths.BaseDir)
	if c.Paths.BaseDir != "" {
		if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
			return fmt.Errorf("paths.base_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" && c.Paths.BaseDir != "" {
		c.Paths.DataDir = filepath.Join(c.Paths.BaseDir, defaultDataDirName)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" && c.Paths.DataDir != "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHost() error {
	c.Host.Name = strings.TrimSpace(c.Host.Name)
	if c.Host.Name == "" {
		if value, ok := os.LookupEnv("PATCHTRACK_HOST"); ok {
			c.Host.Name = strings.TrimSpace(value)
		}
	}
	if c.Host.Name == "" {
		name, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
		c.Host.Name = strings.TrimSpace(name)
	}
	return nil
}

func (c *Config) normalizeInstaller() {
	c.Installer.Command = strings.TrimSpace(c.Installer.Command)
	if c.Installer.Timeout <= 0 {
		c.Installer.Timeout = defaultInstallerTimeout
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = defaultWatchDebounce
	}
	if c.Watch.RescanInterval < 0 {
		c.Watch.RescanInterval = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Logging.Level = defaultLogLevel
	}
}
