package network

import "fmt"

// RPCConfig holds the connection parameters for a BSV node's JSON-RPC interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

// Environment variables read by ResolveConfig.
const (
	EnvRPCURL      = "ORDTX_RPC_URL"
	EnvRPCUser     = "ORDTX_RPC_USER"
	EnvRPCPassword = "ORDTX_RPC_PASSWORD"
)

// NetworkPresets contains default RPC configurations for local nodes.
// Mainnet has no preset and must be configured explicitly.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "ordtx", Password: "ordtx"},
	"testnet": {URL: "http://localhost:18333", User: "ordtx", Password: "ordtx"},
}

// ResolveConfig layers RPC settings: flags over environment over presets.
// An empty resulting URL is an error.
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}
	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&result.URL, env[EnvRPCURL])
	overlay(&result.User, env[EnvRPCUser])
	overlay(&result.Password, env[EnvRPCPassword])

	if flags != nil {
		overlay(&result.URL, flags.URL)
		overlay(&result.User, flags.User)
		overlay(&result.Password, flags.Password)
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires explicit RPC configuration (set --rpc-url, %s, or rpc_url in the config file)", network, EnvRPCURL)
	}
	return &result, nil
}
