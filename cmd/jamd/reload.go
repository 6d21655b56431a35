package main

import (
	"context"

	"github.com/rexliu/jamctl/pkg/config"
)

// watchConfig re-applies the welcome message when config.toml changes. Other
// settings take effect on restart.
func (d *daemon) watchConfig(ctx context.Context) error {
	applied := d.cfg.Server.WelcomeMessage
	return config.Watch(ctx, configPath(d.profileDir), config.DefaultDebounce, func(next *config.ProfileConfig, err error) {
		if err != nil {
			d.logger.Warnf("config reload ignored: %v", err)
			return
		}
		if next.Server.WelcomeMessage == applied {
			return
		}
		if err := d.server.SetWelcomeMessage(next.Server.WelcomeMessage); err != nil {
			d.logger.Errorf("apply welcome message: %v", err)
			return
		}
		applied = next.Server.WelcomeMessage
		d.logger.Infof("welcome message reloaded from %s", configPath(d.profileDir))
	})
}
