package main

import (
	"strings"
	"sync"

	"clipsight/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
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

// serverBase resolves the API base URL, preferring the --server flag over
// the bind address from configuration.
func (c *commandContext) serverBase() string {
	if c.serverFlag != nil {
		if base := strings.TrimSpace(*c.serverFlag); base != "" {
			return strings.TrimRight(base, "/")
		}
	}
	bind := "127.0.0.1:8017"
	if cfg := c.configValue(); cfg != nil && cfg.Paths.APIBind != "" {
		bind = cfg.Paths.APIBind
	}
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

func (c *commandContext) withClient(fn func(*apiClient) error) error {
	return fn(newAPIClient(c.serverBase()))
}
