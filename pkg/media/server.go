// Package media is the in-process server whose state the control methods
// read and mutate: channel slots, the access-control list, the recorder and
// the directory profile.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/rexliu/jamctl/pkg/control"
	"github.com/rexliu/jamctl/pkg/storage/sqlite"
)

// DefaultMaxClients is used when Config.MaxClients is not positive.
const DefaultMaxClients = 10

var (
	// ErrAccessDenied is returned by Connect when the access-control list
	// rejects the address.
	ErrAccessDenied = errors.New("access denied")
	// ErrServerFull is returned by Connect when every slot is taken.
	ErrServerFull = errors.New("server full")
	// ErrInvalidAddress is returned by Connect for the empty sentinel.
	ErrInvalidAddress = errors.New("invalid client address")
	// ErrNotConnected is returned for addresses without a slot.
	ErrNotConnected = errors.New("client not connected")
)

// Store persists state that must survive restarts. *sqlite.Store satisfies it.
type Store interface {
	LoadAccessControl(ctx context.Context) (sqlite.AccessControl, error)
	SaveAccessControl(ctx context.Context, ac sqlite.AccessControl) error
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// EventSink receives connection lifecycle events. *eventlog.Logger satisfies it.
type EventSink interface {
	Connect(address string, active int)
	Idle()
	ChannelInfoChanged(address, name string)
}

// Logger receives diagnostic messages.
type Logger interface {
	Printf(format string, v ...any)
}

// Config holds the startup profile of the server.
type Config struct {
	Name               string
	City               string
	Country            int
	WelcomeMessage     string
	MaxClients         int
	DirectoryType      control.DirectoryType
	DirectoryAddress   string
	RecordingDirectory string
	RecordingEnabled   bool
}

// ChannelInfo is the client-supplied channel metadata.
type ChannelInfo struct {
	Name       string
	Instrument int
	City       string
	Country    int
	SkillLevel control.SkillLevel
}

// Option configures a Server.
type Option func(*Server)

// WithStore persists the access-control list and profile through store.
func WithStore(store Store) Option {
	return func(s *Server) { s.store = store }
}

// WithEvents routes lifecycle events to sink.
func WithEvents(sink EventSink) Option {
	return func(s *Server) { s.events = sink }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock overrides the time source used for recording session names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.recorder.now = now }
}

// Server implements control.Server. All methods are safe for concurrent use.
type Server struct {
	mu sync.RWMutex

	name           string
	city           string
	country        int
	welcomeMessage string

	directoryType    control.DirectoryType
	directoryAddress string
	registration     control.RegistrationStatus

	slots    []control.ClientRow
	acl      accessList
	recorder recorder

	store  Store
	events EventSink
	logger Logger
}

var _ control.Server = (*Server)(nil)

// New builds a server from cfg. Persisted access-control state, server name
// and welcome message take precedence over cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*Server, error) {
	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	s := &Server{
		name:             cfg.Name,
		city:             cfg.City,
		country:          cfg.Country,
		welcomeMessage:   cfg.WelcomeMessage,
		directoryType:    cfg.DirectoryType,
		directoryAddress: cfg.DirectoryAddress,
		registration:     control.RegistrationNotRegistered,
		slots:            make([]control.ClientRow, maxClients),
		acl:              accessList{mode: control.FirewallOpen},
		recorder:         recorder{now: time.Now},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store != nil {
		if err := s.loadPersisted(ctx); err != nil {
			return nil, err
		}
	}
	s.recorder.enabled = cfg.RecordingEnabled
	s.recorder.setDirectory(cfg.RecordingDirectory)
	return s, nil
}

func (s *Server) loadPersisted(ctx context.Context) error {
	ac, err := s.store.LoadAccessControl(ctx)
	if err != nil {
		return fmt.Errorf("load access control: %w", err)
	}
	s.acl = accessList{mode: ac.Mode, addresses: ac.Addresses}
	if v, ok, err := s.store.Setting(ctx, sqlite.SettingServerName); err != nil {
		return fmt.Errorf("load server name: %w", err)
	} else if ok {
		s.name = v
	}
	if v, ok, err := s.store.Setting(ctx, sqlite.SettingWelcomeMessage); err != nil {
		return fmt.Errorf("load welcome message: %w", err)
	} else if ok {
		s.welcomeMessage = v
	}
	return nil
}

// updateACL applies fn to a copy of the list and persists it. The in-memory
// list only changes when persisting succeeds.
func (s *Server) updateACL(fn func(a *accessList) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.acl.snapshot()
	if !fn(&next) {
		return nil
	}
	if s.store != nil {
		err := s.store.SaveAccessControl(context.Background(), sqlite.AccessControl{
			Mode:      next.mode,
			Addresses: next.addresses,
		})
		if err != nil {
			return fmt.Errorf("save access control: %w", err)
		}
	}
	s.acl = next
	return nil
}

func (s *Server) AddFirewallAddress(address string) error {
	address = normalizeAddress(address)
	return s.updateACL(func(a *accessList) bool { return a.add(address) })
}

func (s *Server) RemoveFirewallAddress(address string) error {
	address = normalizeAddress(address)
	return s.updateACL(func(a *accessList) bool { return a.remove(address) })
}

func (s *Server) SetFirewallMode(mode control.FirewallMode) error {
	if mode != control.FirewallOpen && mode != control.FirewallClosed {
		return fmt.Errorf("invalid firewall mode %d", mode)
	}
	return s.updateACL(func(a *accessList) bool {
		if a.mode == mode {
			return false
		}
		a.mode = mode
		return true
	})
}

func (s *Server) ResetFirewall() error {
	return s.updateACL(func(a *accessList) bool {
		a.mode = control.FirewallOpen
		a.addresses = nil
		return true
	})
}

func (s *Server) FirewallMode() control.FirewallMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acl.mode
}

func (s *Server) FirewallAddresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.acl.addresses...)
}

// Allowed reports whether ip may connect under the current list.
func (s *Server) Allowed(ip netip.Addr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acl.allowed(ip)
}

func (s *Server) RecorderStatus() control.RecorderStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recorder.status()
}

// RecordingSession returns the open session directory, or "" when idle.
func (s *Server) RecordingSession() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recorder.session
}

func (s *Server) SetRecordingEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder.setEnabled(enabled)
}

func (s *Server) SetRecordingDirectory(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder.setDirectory(dir)
}

func (s *Server) RequestNewRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder.restart()
}

func (s *Server) ServerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Server) SetServerName(name string) error {
	if err := s.persistSetting(sqlite.SettingServerName, name); err != nil {
		return err
	}
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	return nil
}

func (s *Server) ServerCity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.city
}

func (s *Server) ServerCountry() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.country
}

func (s *Server) WelcomeMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.welcomeMessage
}

func (s *Server) SetWelcomeMessage(message string) error {
	if err := s.persistSetting(sqlite.SettingWelcomeMessage, message); err != nil {
		return err
	}
	s.mu.Lock()
	s.welcomeMessage = message
	s.mu.Unlock()
	return nil
}

func (s *Server) persistSetting(key, value string) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SetSetting(context.Background(), key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Server) DirectoryType() control.DirectoryType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directoryType
}

func (s *Server) DirectoryAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directoryAddress
}

func (s *Server) RegistrationStatus() control.RegistrationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registration
}

// SetRegistrationStatus records the latest directory registration outcome.
func (s *Server) SetRegistrationStatus(status control.RegistrationStatus) {
	s.mu.Lock()
	s.registration = status
	s.mu.Unlock()
	s.logf("directory registration: %s", status)
}

func (s *Server) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}
