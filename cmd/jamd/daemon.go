package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/rexliu/jamctl/pkg/config"
	"github.com/rexliu/jamctl/pkg/control"
	"github.com/rexliu/jamctl/pkg/eventlog"
	"github.com/rexliu/jamctl/pkg/logging"
	"github.com/rexliu/jamctl/pkg/media"
	"github.com/rexliu/jamctl/pkg/rpc"
	"github.com/rexliu/jamctl/pkg/storage/sqlite"
	"github.com/rexliu/jamctl/pkg/transport"
)

type daemon struct {
	profileDir string
	cfg        *config.ProfileConfig
	logger     *logging.Logger
	store      *sqlite.Store
	events     *eventlog.Logger
	server     *media.Server
	rpc        *transport.Server
}

func run(ctx context.Context, profileDir string, logger *logging.Logger) error {
	d, err := start(ctx, profileDir, logger)
	if err != nil {
		return err
	}
	defer d.close()
	logger.Printf("daemon ready; rpc on %s", d.rpc.Addr())
	<-ctx.Done()
	logger.Printf("shutting down")
	return nil
}

// start brings up storage, the media server and the control listener. The
// caller owns the returned daemon and must close it.
func start(ctx context.Context, profileDir string, logger *logging.Logger) (*daemon, error) {
	cfg, err := config.LoadProfile(profileDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config not found in %s (run 'jamctl init --profile %s')", profileDir, profileDir)
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	d := &daemon{profileDir: profileDir, cfg: cfg, logger: logger}
	if err := d.open(ctx); err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

func (d *daemon) open(ctx context.Context) error {
	cfg := d.cfg
	logCfg := cfg.Logging
	logCfg.FilePath = d.resolve(logCfg.FilePath)
	if err := d.logger.Configure(logCfg); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	store, err := sqlite.Open(d.resolve(cfg.Storage.DBPath))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	d.store = store
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}

	d.events = eventlog.New()
	if cfg.EventLog.Enabled {
		path := d.resolve(cfg.EventLog.Path)
		if err := d.events.Activate(path); err != nil {
			d.logger.Warnf("event log %s unavailable: %v", path, err)
		}
	}

	srv, err := media.New(ctx, media.Config{
		Name:               cfg.Server.Name,
		City:               cfg.Server.City,
		Country:            cfg.Server.CountryCode,
		WelcomeMessage:     cfg.Server.WelcomeMessage,
		MaxClients:         cfg.Server.MaxClients,
		DirectoryType:      cfg.DirectoryType(),
		DirectoryAddress:   cfg.Directory.Address,
		RecordingDirectory: d.resolve(cfg.Recording.Directory),
		RecordingEnabled:   cfg.Recording.Enabled,
	}, media.WithStore(store), media.WithEvents(d.events), media.WithLogger(d.logger))
	if err != nil {
		return fmt.Errorf("start media server: %w", err)
	}
	d.server = srv

	registry := rpc.NewRegistry[control.Server]()
	if err := control.Register(registry, control.Options{AccessControl: cfg.RPC.AccessControl}); err != nil {
		return err
	}
	dispatcher := rpc.NewDispatcher[control.Server](registry, srv, d.logger)

	secret, err := config.ReadSecret(d.resolve(cfg.RPC.SecretFile))
	if err != nil {
		return fmt.Errorf("read rpc secret: %w", err)
	}
	address := cfg.RPC.Address
	if cfg.RPC.Network == "unix" {
		address = d.resolve(address)
	}
	d.rpc = transport.NewServer(dispatcher, transport.Options{
		Network: cfg.RPC.Network,
		Address: address,
		Codec:   transport.Codec(cfg.RPC.Codec),
		Secret:  secret,
		Logger:  d.logger,
	})
	if err := d.rpc.Start(ctx); err != nil {
		return fmt.Errorf("start rpc: %w", err)
	}
	if secret == "" && !isLoopback(d.rpc.Addr()) {
		d.logger.Warnf("rpc listener on %s has no secret configured", d.rpc.Addr())
	}
	d.logger.Printf("registered %d rpc methods", len(registry.Methods()))

	if err := d.watchConfig(ctx); err != nil {
		d.logger.Warnf("config reload disabled: %v", err)
	}
	return nil
}

func (d *daemon) resolve(p string) string {
	return config.ResolvePath(d.profileDir, p)
}

func (d *daemon) close() {
	if d.rpc != nil {
		d.rpc.Stop()
		if d.cfg.RPC.Network == "unix" {
			os.Remove(d.resolve(d.cfg.RPC.Address))
		}
	}
	if d.events != nil {
		d.events.Close()
	}
	if d.store != nil {
		d.store.Close()
	}
	d.logger.Close()
}

func isLoopback(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return true
	}
	return tcp.IP.IsLoopback()
}

func configPath(profileDir string) string {
	return filepath.Join(profileDir, config.FileName)
}
