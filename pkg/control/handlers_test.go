package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/jamctl/pkg/rpc"
)

type fakeServer struct {
	addresses  []string
	mode       FirewallMode
	recorder   RecorderStatus
	restarts   int
	name       string
	city       string
	country    int
	welcome    string
	dirType    DirectoryType
	dirAddress string
	regStatus  RegistrationStatus
	clients    []ClientRow
	failWrites error
}

func (f *fakeServer) AddFirewallAddress(address string) error {
	if f.failWrites != nil {
		return f.failWrites
	}
	f.addresses = append(f.addresses, address)
	return nil
}

func (f *fakeServer) RemoveFirewallAddress(address string) error {
	for i, a := range f.addresses {
		if a == address {
			f.addresses = append(f.addresses[:i], f.addresses[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeServer) SetFirewallMode(mode FirewallMode) error { f.mode = mode; return nil }
func (f *fakeServer) FirewallMode() FirewallMode { return f.mode }
func (f *fakeServer) FirewallAddresses() []string { return f.addresses }
func (f *fakeServer) ResetFirewall() error {
	f.addresses = nil
	f.mode = FirewallOpen
	return nil
}
func (f *fakeServer) RecorderStatus() RecorderStatus { return f.recorder }
func (f *fakeServer) SetRecordingEnabled(enabled bool) { f.recorder.Enabled = enabled }
func (f *fakeServer) SetRecordingDirectory(dir string) { f.recorder.RecordingDirectory = dir }
func (f *fakeServer) RequestNewRecording() { f.restarts++ }
func (f *fakeServer) ServerName() string { return f.name }
func (f *fakeServer) SetServerName(name string) error { f.name = name; return f.failWrites }
func (f *fakeServer) ServerCity() string { return f.city }
func (f *fakeServer) ServerCountry() int { return f.country }
func (f *fakeServer) WelcomeMessage() string { return f.welcome }
func (f *fakeServer) SetWelcomeMessage(msg string) error { f.welcome = msg; return nil }
func (f *fakeServer) DirectoryType() DirectoryType { return f.dirType }
func (f *fakeServer) DirectoryAddress() string { return f.dirAddress }
func (f *fakeServer) RegistrationStatus() RegistrationStatus { return f.regStatus }
func (f *fakeServer) Clients() []ClientRow { return f.clients }

func newDispatcher(t *testing.T, srv Server, opts Options) *rpc.Dispatcher[Server] {
	t.Helper()
	reg := rpc.NewRegistry[Server]()
	require.NoError(t, Register(reg, opts))
	return rpc.NewDispatcher(reg, srv, nil)
}

func call(d *rpc.Dispatcher[Server], method, params string) rpc.Response {
	return d.Dispatch(context.Background(), rpc.Request{ID: json.RawMessage(`1`), Method: method, Params: json.RawMessage(params)})
}

// roundTrip renders the result the way a transport would.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRegisterRejectsDoubleRegistration(t *testing.T) {
	reg := rpc.NewRegistry[Server]()
	require.NoError(t, Register(reg, Options{AccessControl: true}))
	assert.Error(t, Register(reg, Options{}))
	assert.Len(t, reg.Methods(), 16)
}

func TestAccessControlMethodsAreOptional(t *testing.T) {
	d := newDispatcher(t, &fakeServer{}, Options{})
	for _, m := range accessControlMethods() {
		resp := call(d, m.name, `{}`)
		require.NotNil(t, resp.Error, m.name)
		assert.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)
	}
	resp := call(d, MethodGetMode, ``)
	require.True(t, resp.OK())
	assert.Equal(t, map[string]any{"mode": "server"}, roundTrip(t, resp.Result))
}

func TestSetFirewallMode(t *testing.T) {
	srv := &fakeServer{}
	d := newDispatcher(t, srv, Options{AccessControl: true})

	resp := call(d, MethodSetFirewallMode, `{"mode":1}`)
	require.True(t, resp.OK())
	assert.Equal(t, "ok", resp.Result)
	assert.Equal(t, FirewallClosed, srv.mode)

	resp = call(d, MethodSetFirewallMode, `{"mode":0}`)
	require.True(t, resp.OK())
	assert.Equal(t, FirewallOpen, srv.mode)

	for _, bad := range []string{`{"mode":2}`, `{"mode":-1}`, `{"mode":0.5}`, `{"mode":"1"}`, `{"mode":true}`, `{}`} {
		srv.mode = FirewallClosed
		resp := call(d, MethodSetFirewallMode, bad)
		require.NotNil(t, resp.Error, bad)
		assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code, bad)
		assert.Equal(t, FirewallClosed, srv.mode, bad)
	}
}

func TestAddFirewallAddressesIsAtomic(t *testing.T) {
	srv := &fakeServer{}
	d := newDispatcher(t, srv, Options{AccessControl: true})

	resp := call(d, MethodAddFirewallAddresses, `{"addresses":["1.2.3.4",42]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Invalid params: address within array is not a string", resp.Error.Message)
	assert.Empty(t, srv.addresses)

	resp = call(d, MethodAddFirewallAddresses, `{"addresses":"1.2.3.4"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Invalid params: addresses must be an array", resp.Error.Message)

	resp = call(d, MethodAddFirewallAddresses, `{"addresses":["1.2.3.4","5.6.7.8"]}`)
	require.True(t, resp.OK())
	assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, srv.addresses)
}

func TestFirewallAddressLifecycle(t *testing.T) {
	srv := &fakeServer{}
	d := newDispatcher(t, srv, Options{AccessControl: true})

	resp := call(d, MethodGetFirewallStatus, ``)
	require.True(t, resp.OK())
	assert.Equal(t, map[string]any{"mode": float64(0), "addresses": []any{}}, roundTrip(t, resp.Result))

	require.True(t, call(d, MethodAddFirewallAddress, `{"address":"10.0.0.1"}`).OK())
	require.True(t, call(d, MethodAddFirewallAddress, `{"address":"10.0.0.2"}`).OK())
	require.True(t, call(d, MethodRemoveFirewallAddress, `{"address":"10.0.0.1"}`).OK())

	resp = call(d, MethodAddFirewallAddress, `{"address":7}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Invalid params: address is not a string", resp.Error.Message)

	resp = call(d, MethodGetFirewallStatus, `{}`)
	assert.Equal(t, FirewallStatus{Mode: 0, Addresses: []string{"10.0.0.2"}}, resp.Result)

	require.True(t, call(d, MethodSetFirewallMode, `{"mode":1}`).OK())
	resp = call(d, MethodResetFirewall, `{}`)
	assert.Equal(t, "ok", resp.Result)
	assert.Empty(t, srv.addresses)
	assert.Equal(t, FirewallOpen, srv.mode)
}

func TestCollaboratorFaultIsInternalError(t *testing.T) {
	srv := &fakeServer{failWrites: errors.New("database is locked")}
	d := newDispatcher(t, srv, Options{AccessControl: true})
	resp := call(d, MethodAddFirewallAddress, `{"address":"10.0.0.1"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInternalError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "database is locked")

	resp = call(d, MethodGetMode, `{}`)
	assert.True(t, resp.OK())
}

func TestGetClientsSkipsEmptySlots(t *testing.T) {
	srv := &fakeServer{clients: []ClientRow{
		{Address: netip.MustParseAddrPort("10.0.0.1:22134"), Name: "alice", JitterBufferSize: 4, Channels: 2, Instrument: 10, City: "Berlin", Country: 276, SkillLevel: SkillExpert},
		{Address: netip.MustParseAddrPort("10.0.0.2:22134"), Name: "bob", Instrument: 999},
		{Address: EmptyAddress},
		{Address: netip.MustParseAddrPort("10.0.0.4:5000"), Name: "dora", Country: 840, SkillLevel: SkillBeginner},
	}}
	d := newDispatcher(t, srv, Options{})

	resp := call(d, MethodGetClients, `{}`)
	require.True(t, resp.OK())
	result := resp.Result.(ClientsResult)
	assert.Equal(t, 3, result.Connections)
	require.Len(t, result.Clients, 3)
	assert.Equal(t, []int{0, 1, 3}, []int{result.Clients[0].ID, result.Clients[1].ID, result.Clients[2].ID})

	alice := result.Clients[0]
	assert.Equal(t, ClientInfo{
		ID: 0, Address: "10.0.0.1:22134", Name: "alice", JitterBufferSize: 4, Channels: 2,
		InstrumentCode: 10, InstrumentName: "Vocal", City: "Berlin",
		CountryCode: 276, CountryName: "Germany", SkillLevelCode: 3, SkillLevelName: "Expert",
	}, alice)
	assert.Equal(t, "Unknown", result.Clients[1].InstrumentName)
	assert.Equal(t, "None", result.Clients[1].SkillLevelName)
	assert.Equal(t, "Unknown", result.Clients[1].CountryName)
	assert.Equal(t, "dora", result.Clients[2].Name)
}

func TestGetClientsUnspecifiedAddressIsEmpty(t *testing.T) {
	srv := &fakeServer{clients: []ClientRow{
		{Address: netip.MustParseAddrPort("0.0.0.0:22134"), Name: "ghost"},
	}}
	d := newDispatcher(t, srv, Options{})
	out := roundTrip(t, call(d, MethodGetClients, ``).Result)
	assert.Equal(t, map[string]any{"connections": float64(0), "clients": []any{}}, out)
}

func TestGetServerProfile(t *testing.T) {
	srv := &fakeServer{
		name: "Studio", city: "Paris", country: 250, welcome: "hi",
		dirType: DirectoryNone, dirAddress: "ignored:1", regStatus: RegistrationRegistered,
	}
	d := newDispatcher(t, srv, Options{})

	resp := call(d, MethodGetServerProfile, `{}`)
	require.True(t, resp.OK())
	assert.Equal(t, ServerProfile{
		Name: "Studio", City: "Paris", CountryID: 250, WelcomeMessage: "hi",
		DirectoryServer: "", RegistrationStatus: "registered",
	}, resp.Result)

	srv.dirType = DirectoryRock
	srv.regStatus = RegistrationStatus(42)
	profile := call(d, MethodGetServerProfile, `{}`).Result.(ServerProfile)
	assert.Equal(t, "rock.jamulus.io:22424", profile.DirectoryServer)
	assert.Equal(t, "unknown(42)", profile.RegistrationStatus)

	srv.dirType = DirectoryCustom
	srv.dirAddress = " dir.example.org:22124 "
	profile = call(d, MethodGetServerProfile, `{}`).Result.(ServerProfile)
	assert.Equal(t, "dir.example.org:22124", profile.DirectoryServer)
}

func TestProfileAndRecordingSetters(t *testing.T) {
	srv := &fakeServer{}
	d := newDispatcher(t, srv, Options{})

	assert.Equal(t, "ok", call(d, MethodSetServerName, `{"serverName":"Jam Room"}`).Result)
	assert.Equal(t, "Jam Room", srv.name)
	assert.Equal(t, "ok", call(d, MethodSetWelcomeMessage, `{"welcomeMessage":"Welcome!"}`).Result)
	assert.Equal(t, "Welcome!", srv.welcome)

	resp := call(d, MethodSetServerName, `{"serverName":null}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Invalid params: serverName is not a string", resp.Error.Message)
	resp = call(d, MethodSetWelcomeMessage, `{}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	assert.Equal(t, "acknowledged", call(d, MethodSetRecordingDirectory, `{"recordingDirectory":"/tmp/rec"}`).Result)
	assert.Equal(t, "/tmp/rec", srv.recorder.RecordingDirectory)
	resp = call(d, MethodSetRecordingDirectory, `{"recordingDirectory":1}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Invalid params: recordingDirectory is not a string", resp.Error.Message)

	assert.Equal(t, "acknowledged", call(d, MethodStartRecording, `{}`).Result)
	assert.True(t, srv.recorder.Enabled)
	assert.Equal(t, "acknowledged", call(d, MethodRestartRecording, `{}`).Result)
	assert.Equal(t, 1, srv.restarts)
	assert.Equal(t, "acknowledged", call(d, MethodStopRecording, `{}`).Result)
	assert.False(t, srv.recorder.Enabled)

	srv.recorder.Initialised = true
	out := roundTrip(t, call(d, MethodGetRecorderStatus, `{}`).Result)
	assert.Equal(t, map[string]any{
		"initialised": true, "errorMessage": "", "enabled": false, "recordingDirectory": "/tmp/rec",
	}, out)
}
