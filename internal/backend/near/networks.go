package near

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Network describes how to reach one NEAR network.
type Network struct {
	Name      string
	RPCURL    string
	WalletURL string
	APIKey    string
}

// Networks known without any configuration.
var presets = map[string]Network{
	"mainnet": {
		Name:      "mainnet",
		RPCURL:    "https://rpc.mainnet.near.org",
		WalletURL: "https://app.mynearwallet.com",
	},
	"testnet": {
		Name:      "testnet",
		RPCURL:    "https://rpc.testnet.near.org",
		WalletURL: "https://testnet.mynearwallet.com",
	},
}

// cliConfig is the subset of near-cli-rs config.toml read here.
type cliConfig struct {
	CredentialsHomeDir string                       `toml:"credentials_home_dir"`
	NetworkConnection  map[string]cliNetworkSection `toml:"network_connection"`
}

type cliNetworkSection struct {
	NetworkName string `toml:"network_name"`
	RPCURL      string `toml:"rpc_url"`
	RPCAPIKey   string `toml:"rpc_api_key"`
	WalletURL   string `toml:"wallet_url"`
}

// LoadCLINetworks reads the network_connection entries of a near-cli-rs
// config.toml, keyed by connection name.
func LoadCLINetworks(path string) (map[string]Network, error) {
	var cfg cliConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading near-cli config %s: %w", path, err)
	}

	out := make(map[string]Network, len(cfg.NetworkConnection))
	for key, sec := range cfg.NetworkConnection {
		name := sec.NetworkName
		if name == "" {
			name = key
		}
		out[key] = Network{
			Name:      name,
			RPCURL:    strings.TrimRight(sec.RPCURL, "/"),
			WalletURL: strings.TrimRight(sec.WalletURL, "/"),
			APIKey:    sec.RPCAPIKey,
		}
	}
	return out, nil
}

// ResolveNetwork picks the endpoint for name. An explicit rpcURL wins, then
// a matching near-cli connection from cliConfigPath (if the file exists),
// then the built-in presets.
func ResolveNetwork(name, rpcURL, cliConfigPath string) (Network, error) {
	if name == "" {
		name = "testnet"
	}

	net, ok := presets[name]
	if cliConfigPath != "" {
		if _, err := os.Stat(cliConfigPath); err == nil {
			nets, err := LoadCLINetworks(cliConfigPath)
			if err != nil {
				return Network{}, err
			}
			if n, found := nets[name]; found {
				net, ok = n, true
			}
		}
	}

	if rpcURL != "" {
		if !ok {
			net = Network{Name: name}
		}
		net.RPCURL = rpcURL
		ok = true
	}
	if !ok || net.RPCURL == "" {
		return Network{}, fmt.Errorf("unknown network %q (set near.rpc_url)", name)
	}
	return net, nil
}
