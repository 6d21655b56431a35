package control

import (
	"context"
	"fmt"

	"github.com/rexliu/jamctl/pkg/rpc"
)

// Method names as sent by operator clients.
const (
	MethodGetMode               = "jamulus/getMode"
	MethodAddFirewallAddress    = "jamulusserver/addFirewallAddress"
	MethodAddFirewallAddresses  = "jamulusserver/addFirewallAddresses"
	MethodRemoveFirewallAddress = "jamulusserver/removeFirewallAddress"
	MethodSetFirewallMode       = "jamulusserver/setFirewallMode"
	MethodResetFirewall         = "jamulusserver/resetFirewall"
	MethodGetFirewallStatus     = "jamulusserver/getFirewallStatus"
	MethodGetRecorderStatus     = "jamulusserver/getRecorderStatus"
	MethodGetClients            = "jamulusserver/getClients"
	MethodGetServerProfile      = "jamulusserver/getServerProfile"
	MethodSetServerName         = "jamulusserver/setServerName"
	MethodSetWelcomeMessage     = "jamulusserver/setWelcomeMessage"
	MethodSetRecordingDirectory = "jamulusserver/setRecordingDirectory"
	MethodStartRecording        = "jamulusserver/startRecording"
	MethodStopRecording         = "jamulusserver/stopRecording"
	MethodRestartRecording      = "jamulusserver/restartRecording"
)

const (
	resultOK           = "ok"
	resultAcknowledged = "acknowledged"
)

// Options selects which method groups are registered.
type Options struct {
	// AccessControl registers the firewall methods.
	AccessControl bool
}

type method struct {
	name    string
	handler rpc.HandlerFunc[Server]
}

func accessControlMethods() []method {
	return []method{
		{MethodAddFirewallAddress, rpc.Typed(addFirewallAddress)},
		{MethodAddFirewallAddresses, rpc.Typed(addFirewallAddresses)},
		{MethodRemoveFirewallAddress, rpc.Typed(removeFirewallAddress)},
		{MethodSetFirewallMode, rpc.Typed(setFirewallMode)},
		{MethodResetFirewall, resetFirewall},
		{MethodGetFirewallStatus, getFirewallStatus},
	}
}

func coreMethods() []method {
	return []method{
		{MethodGetMode, getMode},
		{MethodGetRecorderStatus, getRecorderStatus},
		{MethodGetClients, getClients},
		{MethodGetServerProfile, getServerProfile},
		{MethodSetServerName, rpc.Typed(setServerName)},
		{MethodSetWelcomeMessage, rpc.Typed(setWelcomeMessage)},
		{MethodSetRecordingDirectory, rpc.Typed(setRecordingDirectory)},
		{MethodStartRecording, startRecording},
		{MethodStopRecording, stopRecording},
		{MethodRestartRecording, restartRecording},
	}
}

// Register installs the control methods on reg.
func Register(reg *rpc.Registry[Server], opts Options) error {
	methods := coreMethods()
	if opts.AccessControl {
		methods = append(methods, accessControlMethods()...)
	}
	for _, m := range methods {
		if err := reg.Register(m.name, m.handler); err != nil {
			return fmt.Errorf("control: %w", err)
		}
	}
	return nil
}

type addressParams struct {
	Address string
}

func (p *addressParams) DecodeParams(ps rpc.Params) (err error) {
	p.Address, err = ps.String("address")
	return err
}

type addressesParams struct {
	Addresses []string
}

func (p *addressesParams) DecodeParams(ps rpc.Params) (err error) {
	p.Addresses, err = ps.Strings("addresses", "address")
	return err
}

type firewallModeParams struct {
	Mode FirewallMode
}

func (p *firewallModeParams) DecodeParams(ps rpc.Params) error {
	mode, err := ps.IntIn("mode", int(FirewallOpen), int(FirewallClosed))
	if err != nil {
		return err
	}
	p.Mode = FirewallMode(mode)
	return nil
}

type serverNameParams struct {
	ServerName string
}

func (p *serverNameParams) DecodeParams(ps rpc.Params) (err error) {
	p.ServerName, err = ps.String("serverName")
	return err
}

type welcomeMessageParams struct {
	WelcomeMessage string
}

func (p *welcomeMessageParams) DecodeParams(ps rpc.Params) (err error) {
	p.WelcomeMessage, err = ps.String("welcomeMessage")
	return err
}

type recordingDirectoryParams struct {
	RecordingDirectory string
}

func (p *recordingDirectoryParams) DecodeParams(ps rpc.Params) (err error) {
	p.RecordingDirectory, err = ps.String("recordingDirectory")
	return err
}

// ModeResult is returned by getMode.
type ModeResult struct {
	Mode string `json:"mode"`
}

// FirewallStatus is returned by getFirewallStatus.
type FirewallStatus struct {
	Mode      int      `json:"mode"`
	Addresses []string `json:"addresses"`
}

// ClientInfo is one connected client in getClients. CountryCode is ISO 3166-1
// numeric and CountryName is resolved by CountryName.
type ClientInfo struct {
	ID               int    `json:"id"`
	Address          string `json:"address"`
	Name             string `json:"name"`
	JitterBufferSize int    `json:"jitterBufferSize"`
	Channels         int    `json:"channels"`
	InstrumentCode   int    `json:"instrumentCode"`
	InstrumentName   string `json:"instrumentName"`
	City             string `json:"city"`
	CountryCode      int    `json:"countryCode"`
	CountryName      string `json:"countryName"`
	SkillLevelCode   int    `json:"skillLevelCode"`
	SkillLevelName   string `json:"skillLevelName"`
}

// ClientsResult is returned by getClients.
type ClientsResult struct {
	Connections int          `json:"connections"`
	Clients     []ClientInfo `json:"clients"`
}

// ServerProfile is returned by getServerProfile.
type ServerProfile struct {
	Name               string `json:"name"`
	City               string `json:"city"`
	CountryID          int    `json:"countryId"`
	WelcomeMessage     string `json:"welcomeMessage"`
	DirectoryServer    string `json:"directoryServer"`
	RegistrationStatus string `json:"registrationStatus"`
}

func getMode(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	return ModeResult{Mode: "server"}, nil
}

func addFirewallAddress(ctx context.Context, srv Server, p addressParams) (any, error) {
	if err := srv.AddFirewallAddress(p.Address); err != nil {
		return nil, err
	}
	return resultOK, nil
}

func addFirewallAddresses(ctx context.Context, srv Server, p addressesParams) (any, error) {
	for _, addr := range p.Addresses {
		if err := srv.AddFirewallAddress(addr); err != nil {
			return nil, err
		}
	}
	return resultOK, nil
}

func removeFirewallAddress(ctx context.Context, srv Server, p addressParams) (any, error) {
	if err := srv.RemoveFirewallAddress(p.Address); err != nil {
		return nil, err
	}
	return resultOK, nil
}

func setFirewallMode(ctx context.Context, srv Server, p firewallModeParams) (any, error) {
	if err := srv.SetFirewallMode(p.Mode); err != nil {
		return nil, err
	}
	return resultOK, nil
}

func resetFirewall(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	if err := srv.ResetFirewall(); err != nil {
		return nil, err
	}
	return resultOK, nil
}

func getFirewallStatus(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	addresses := srv.FirewallAddresses()
	if addresses == nil {
		addresses = []string{}
	}
	return FirewallStatus{Mode: int(srv.FirewallMode()), Addresses: addresses}, nil
}

func getRecorderStatus(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	return srv.RecorderStatus(), nil
}

func getClients(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	rows := srv.Clients()
	clients := make([]ClientInfo, 0, len(rows))
	for i, row := range rows {
		if row.Empty() {
			continue
		}
		clients = append(clients, ClientInfo{
			ID:               i,
			Address:          row.Address.String(),
			Name:             row.Name,
			JitterBufferSize: row.JitterBufferSize,
			Channels:         row.Channels,
			InstrumentCode:   row.Instrument,
			InstrumentName:   InstrumentName(row.Instrument),
			City:             row.City,
			CountryCode:      row.Country,
			CountryName:      CountryName(row.Country),
			SkillLevelCode:   int(row.SkillLevel),
			SkillLevelName:   SkillLevelName(row.SkillLevel),
		})
	}
	return ClientsResult{Connections: len(clients), Clients: clients}, nil
}

func getServerProfile(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	var directory string
	if t := srv.DirectoryType(); t != DirectoryNone {
		directory = DirectoryAddress(t, srv.DirectoryAddress())
	}
	return ServerProfile{
		Name:               srv.ServerName(),
		City:               srv.ServerCity(),
		CountryID:          srv.ServerCountry(),
		WelcomeMessage:     srv.WelcomeMessage(),
		DirectoryServer:    directory,
		RegistrationStatus: SerializeRegistrationStatus(srv.RegistrationStatus()),
	}, nil
}

func setServerName(ctx context.Context, srv Server, p serverNameParams) (any, error) {
	if err := srv.SetServerName(p.ServerName); err != nil {
		return nil, err
	}
	return resultOK, nil
}

func setWelcomeMessage(ctx context.Context, srv Server, p welcomeMessageParams) (any, error) {
	if err := srv.SetWelcomeMessage(p.WelcomeMessage); err != nil {
		return nil, err
	}
	return resultOK, nil
}

// setRecordingDirectory does not report whether the change took effect;
// clients read getRecorderStatus afterwards.
func setRecordingDirectory(ctx context.Context, srv Server, p recordingDirectoryParams) (any, error) {
	srv.SetRecordingDirectory(p.RecordingDirectory)
	return resultAcknowledged, nil
}

func startRecording(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	srv.SetRecordingEnabled(true)
	return resultAcknowledged, nil
}

func stopRecording(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	srv.SetRecordingEnabled(false)
	return resultAcknowledged, nil
}

func restartRecording(ctx context.Context, srv Server, _ rpc.Params) (any, error) {
	srv.RequestNewRecording()
	return resultAcknowledged, nil
}
