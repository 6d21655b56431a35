package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/rexliu/jamctl/pkg/control"
	"github.com/rexliu/jamctl/pkg/eventlog"
	"github.com/rexliu/jamctl/pkg/transport"
)

// FileName is the config file inside a profile directory.
const FileName = "config.toml"

const (
	defaultMaxClients = 10
	maxClientsLimit   = 150
	minSecretLength   = 16
)

// ServerConfig describes the server as announced to clients and directories.
type ServerConfig struct {
	Name           string `toml:"name"`
	City           string `toml:"city"`
	CountryCode    int    `toml:"countryCode"`
	WelcomeMessage string `toml:"welcomeMessage"`
	MaxClients     int    `toml:"maxClients"`
}

// DirectoryConfig selects the directory the server registers with.
type DirectoryConfig struct {
	Type    string `toml:"type"`
	Address string `toml:"address"`
}

// RecordingConfig defines recorder defaults.
type RecordingConfig struct {
	Directory string `toml:"directory"`
	Enabled   bool   `toml:"enabled"`
}

// RPCConfig defines the control listener.
type RPCConfig struct {
	Network       string `toml:"network"`
	Address       string `toml:"address"`
	Codec         string `toml:"codec"`
	SecretFile    string `toml:"secretFile"`
	AccessControl bool   `toml:"accessControl"`
}

// StorageConfig defines where persistent state lives.
type StorageConfig struct {
	DBPath string `toml:"dbPath"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level"`
	FilePath    string `toml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB"`
}

// EventLogConfig controls the connection event log.
type EventLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ProfileConfig aggregates service configuration for a profile.
type ProfileConfig struct {
	ProfileName string          `toml:"profileName"`
	Server      ServerConfig    `toml:"server"`
	Directory   DirectoryConfig `toml:"directory"`
	Recording   RecordingConfig `toml:"recording"`
	RPC         RPCConfig       `toml:"rpc"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	EventLog    EventLogConfig  `toml:"eventlog"`
}

// DefaultProfile returns a loadable profile named name.
func DefaultProfile(name string) *ProfileConfig {
	return &ProfileConfig{
		ProfileName: name,
		Server:      ServerConfig{Name: name, MaxClients: defaultMaxClients},
		Directory:   DirectoryConfig{Type: control.DirectoryNone.String()},
		Recording:   RecordingConfig{Directory: "recordings"},
		RPC: RPCConfig{
			Network: "tcp",
			Address: "127.0.0.1:22100",
			Codec:   string(transport.CodecLine),
		},
		Storage:  StorageConfig{DBPath: "state.db"},
		Logging:  LoggingConfig{Level: "info", FilePath: "logs/jamd.log", FileMaxSize: 10},
		EventLog: EventLogConfig{Path: eventlog.DefaultFileName},
	}
}

// Load reads config.toml from the provided path.
func Load(path string) (*ProfileConfig, error) {
	var cfg ProfileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProfile reads config.toml from a profile directory.
func LoadProfile(dir string) (*ProfileConfig, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *ProfileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ResolvePath interprets p relative to the profile directory.
func ResolvePath(profileDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(profileDir, p)
}

// ReadSecret loads the API secret from path. An empty path disables
// authentication.
func ReadSecret(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	secret := strings.TrimSpace(string(data))
	if len(secret) < minSecretLength {
		return "", fmt.Errorf("secret in %s must be at least %d characters", path, minSecretLength)
	}
	return secret, nil
}

// DirectoryType parses the configured directory type.
func (cfg *ProfileConfig) DirectoryType() control.DirectoryType {
	t, _ := control.ParseDirectoryType(cfg.Directory.Type)
	return t
}

func (cfg *ProfileConfig) validate() error {
	if cfg.ProfileName == "" {
		return fmt.Errorf("profileName required")
	}
	if cfg.Server.MaxClients == 0 {
		cfg.Server.MaxClients = defaultMaxClients
	}
	if cfg.Server.MaxClients < 1 || cfg.Server.MaxClients > maxClientsLimit {
		return fmt.Errorf("server.maxClients must be between 1 and %d", maxClientsLimit)
	}
	if cfg.Server.CountryCode < 0 || cfg.Server.CountryCode > 999 {
		return fmt.Errorf("server.countryCode must be an ISO 3166-1 numeric code")
	}
	dirType, err := control.ParseDirectoryType(cfg.Directory.Type)
	if err != nil {
		return fmt.Errorf("directory.type: %w", err)
	}
	if dirType == control.DirectoryCustom && cfg.Directory.Address == "" {
		return fmt.Errorf("directory.address required for custom directory")
	}
	cfg.Directory.Type = dirType.String()
	switch cfg.RPC.Network {
	case "":
		cfg.RPC.Network = "tcp"
	case "tcp", "unix":
	default:
		return fmt.Errorf("rpc.network must be tcp or unix, got %q", cfg.RPC.Network)
	}
	if cfg.RPC.Address == "" {
		return fmt.Errorf("rpc.address required")
	}
	codec, err := transport.ParseCodec(cfg.RPC.Codec)
	if err != nil {
		return fmt.Errorf("rpc.codec: %w", err)
	}
	cfg.RPC.Codec = string(codec)
	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage.dbPath required")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if _, err := log.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.FileMaxSize < 0 {
		return fmt.Errorf("logging.fileMaxSizeMB must not be negative")
	}
	if cfg.EventLog.Enabled && cfg.EventLog.Path == "" {
		cfg.EventLog.Path = eventlog.DefaultFileName
	}
	return nil
}
