package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/rexliu/jamctl/pkg/config"
	"github.com/rexliu/jamctl/pkg/transport"
)

const callTimeout = 10 * time.Second

type endpoint struct {
	network string
	address string
	codec   transport.Codec
	secret  string
}

// resolveEndpoint merges flag overrides with the profile. The profile is only
// required for values that were not given explicitly.
func resolveEndpoint(flags *connFlags) (endpoint, error) {
	ep := endpoint{network: flags.network, address: flags.address}
	secretFile := flags.secretFile
	codecName := flags.codec
	if ep.address == "" || codecName == "" || ep.network == "" {
		cfg, err := config.LoadProfile(flags.profile)
		switch {
		case err == nil:
			if ep.network == "" {
				ep.network = cfg.RPC.Network
			}
			if ep.address == "" {
				ep.address = cfg.RPC.Address
				if cfg.RPC.Network == "unix" {
					ep.address = config.ResolvePath(flags.profile, ep.address)
				}
			}
			if codecName == "" {
				codecName = cfg.RPC.Codec
			}
			if secretFile == "" {
				secretFile = config.ResolvePath(flags.profile, cfg.RPC.SecretFile)
			}
		case errors.Is(err, os.ErrNotExist) && ep.address != "":
			// explicit address without a profile
		case errors.Is(err, os.ErrNotExist):
			return ep, fmt.Errorf("config not found in %s (run 'jamctl init --profile %s')", flags.profile, flags.profile)
		default:
			return ep, fmt.Errorf("load config: %w", err)
		}
	}
	if ep.network == "" {
		ep.network = "tcp"
	}
	codec, err := transport.ParseCodec(codecName)
	if err != nil {
		return ep, err
	}
	ep.codec = codec
	secret, err := config.ReadSecret(secretFile)
	if err != nil {
		return ep, err
	}
	ep.secret = secret
	return ep, nil
}

// rpcCall connects, authenticates when a secret is known, and performs one call.
func rpcCall(ctx context.Context, flags *connFlags, method string, params any) (json.RawMessage, error) {
	ep, err := resolveEndpoint(flags)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	client, err := transport.Dial(ctx, ep.network, ep.address, ep.codec)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep.address, err)
	}
	defer client.Close()
	if ep.secret != "" {
		if err := client.Authenticate(ctx, ep.secret); err != nil {
			return nil, daemonError(err)
		}
	}
	var result json.RawMessage
	if err := client.Call(ctx, method, params, &result); err != nil {
		return nil, daemonError(err)
	}
	return result, nil
}

func daemonError(err error) error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.Data != nil {
			return fmt.Errorf("daemon error: %s (%d) %s", rpcErr.Message, rpcErr.Code, *rpcErr.Data)
		}
		return fmt.Errorf("daemon error: %s (%d)", rpcErr.Message, rpcErr.Code)
	}
	return err
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
