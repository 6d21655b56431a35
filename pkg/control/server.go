// Package control binds the operator JSON-RPC methods to a running media
// server. Handlers only translate parameters and shape results; all state
// lives behind the Server interface.
package control

import "net/netip"

// Server is the surface of the media server the control methods rely on.
// Implementations must be safe for concurrent use.
type Server interface {
	AddFirewallAddress(address string) error
	RemoveFirewallAddress(address string) error
	SetFirewallMode(mode FirewallMode) error
	FirewallMode() FirewallMode
	FirewallAddresses() []string
	ResetFirewall() error

	RecorderStatus() RecorderStatus
	SetRecordingEnabled(enabled bool)
	SetRecordingDirectory(dir string)
	RequestNewRecording()

	ServerName() string
	SetServerName(name string) error
	ServerCity() string
	ServerCountry() int
	WelcomeMessage() string
	SetWelcomeMessage(message string) error

	DirectoryType() DirectoryType
	DirectoryAddress() string
	RegistrationStatus() RegistrationStatus

	// Clients returns one row per channel slot in slot order. Unused slots
	// carry EmptyAddress.
	Clients() []ClientRow
}

// FirewallMode selects how the access-control list is applied.
type FirewallMode int

const (
	// FirewallOpen admits everyone except listed addresses.
	FirewallOpen FirewallMode = 0
	// FirewallClosed admits listed addresses only.
	FirewallClosed FirewallMode = 1
)

// RecorderStatus describes the session recorder.
type RecorderStatus struct {
	Initialised        bool   `json:"initialised"`
	ErrorMessage       string `json:"errorMessage"`
	Enabled            bool   `json:"enabled"`
	RecordingDirectory string `json:"recordingDirectory"`
}

// EmptyAddress marks an unused channel slot.
var EmptyAddress = netip.AddrPort{}

// ClientRow is one channel slot as reported by the server.
type ClientRow struct {
	Address          netip.AddrPort
	Name             string
	JitterBufferSize int
	Channels         int
	Instrument       int
	City             string
	Country          int
	SkillLevel       SkillLevel
}

// Empty reports whether the slot is unused. An unspecified IP is treated as
// unused regardless of port.
func (r ClientRow) Empty() bool {
	addr := r.Address.Addr()
	return !addr.IsValid() || addr.IsUnspecified()
}
