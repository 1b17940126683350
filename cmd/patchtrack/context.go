package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
)

type commandContext struct {
	configFlag *string
	hostFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, hostFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		hostFlag:   hostFlag,
	}
}

// configPath returns the raw --config override, or "" for the default
// search path.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.hostFlag != nil {
			if host := strings.TrimSpace(*c.hostFlag); host != "" {
				cfg.Host.Name = host
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// hostName returns the identity commands act as. The --host flag override
// is already folded into the config by ensureConfig.
func (c *commandContext) hostName() string {
	cfg := c.configValue()
	if cfg == nil {
		return ""
	}
	return cfg.Host.Name
}

// withStore opens the catalog for the duration of fn. Every command goes
// through here so the handle is always closed before the process exits.
func (c *commandContext) withStore(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
