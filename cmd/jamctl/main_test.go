package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/jamctl/pkg/config"
	"github.com/rexliu/jamctl/pkg/control"
	"github.com/rexliu/jamctl/pkg/media"
	"github.com/rexliu/jamctl/pkg/rpc"
	"github.com/rexliu/jamctl/pkg/transport"
)

const secret = "a-long-enough-test-secret"

type harness struct {
	server  *media.Server
	address string
	secret  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv, err := media.New(ctx, media.Config{Name: "cli test", MaxClients: 4})
	require.NoError(t, err)
	reg := rpc.NewRegistry[control.Server]()
	require.NoError(t, control.Register(reg, control.Options{AccessControl: true}))
	ts := transport.NewServer(rpc.NewDispatcher[control.Server](reg, srv, nil), transport.Options{
		Network: "tcp",
		Address: "127.0.0.1:0",
		Secret:  secret,
	})
	require.NoError(t, ts.Start(ctx))
	t.Cleanup(func() { ts.Stop() })

	secretPath := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(secretPath, []byte(secret), 0o600))
	return &harness{server: srv, address: ts.Addr().String(), secret: secretPath}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	base := []string{"--profile", t.TempDir(), "--address", h.address, "--secret-file", h.secret}
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return out.String(), err
}

func TestFirewallCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "firewall", "add", "10.0.0.1", "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = h.run(t, "firewall", "mode", "closed")
	require.NoError(t, err)
	assert.Equal(t, control.FirewallClosed, h.server.FirewallMode())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, h.server.FirewallAddresses())

	_, err = h.run(t, "firewall", "mode", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-32602")

	out, err = h.run(t, "firewall", "status")
	require.NoError(t, err)
	var status control.FirewallStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.Mode)

	_, err = h.run(t, "firewall", "reset")
	require.NoError(t, err)
	assert.Empty(t, h.server.FirewallAddresses())
}

func TestCallCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "call", control.MethodGetMode)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"server"}`, out)

	_, err = h.run(t, "call", control.MethodSetServerName, `{"serverName": 5}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid params: serverName")

	_, err = h.run(t, "call", control.MethodGetMode, `{not json`)
	assert.Error(t, err)
}

func TestClientsCommand(t *testing.T) {
	h := newHarness(t)
	addr := netip.MustParseAddrPort("203.0.113.9:22134")
	_, err := h.server.Connect(addr)
	require.NoError(t, err)
	require.NoError(t, h.server.SetChannelInfo(addr, media.ChannelInfo{Name: "drums", Instrument: 3, SkillLevel: control.SkillExpert}))

	out, err := h.run(t, "clients")
	require.NoError(t, err)
	assert.Contains(t, out, "203.0.113.9:22134")
	assert.Contains(t, out, "drums")
	assert.Contains(t, out, "1 connected")
}

func TestWrongSecretIsReported(t *testing.T) {
	h := newHarness(t)
	bad := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(bad, []byte("definitely-not-the-secret"), 0o600))
	h.secret = bad

	_, err := h.run(t, "profile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication failed.")
}

func TestInitWritesLoadableProfile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--profile", dir, "init", "--name", "studio"})
	require.NoError(t, root.Execute())

	cfg, err := config.LoadProfile(dir)
	require.NoError(t, err)
	assert.Equal(t, "studio", cfg.ProfileName)

	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--profile", dir, "init"})
	assert.Error(t, root.Execute())
}
