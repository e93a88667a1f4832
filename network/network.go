// Package network describes the ledger networks radup can target.
//
// A network fixes three things used throughout the module: the numeric id
// embedded in signed transaction headers, the bech32m HRP suffix used by every
// address and transaction id, and the default gateway endpoint.
package network

import (
	"fmt"
	"strings"
)

// Network identifies a ledger network.
type Network struct {
	ID         uint8
	Name       string
	HRPSuffix  string
	GatewayURL string
}

var (
	Mainnet   = Network{ID: 0x01, Name: "mainnet", HRPSuffix: "rdx", GatewayURL: "https://mainnet.radixdlt.com"}
	Stokenet  = Network{ID: 0x02, Name: "stokenet", HRPSuffix: "tdx_2_", GatewayURL: "https://stokenet.radixdlt.com"}
	Localnet  = Network{ID: 0xf0, Name: "localnet", HRPSuffix: "loc", GatewayURL: "http://127.0.0.1:5308"}
	Simulator = Network{ID: 0xf2, Name: "simulator", HRPSuffix: "sim", GatewayURL: "http://127.0.0.1:5308"}
)

var known = []Network{Mainnet, Stokenet, Localnet, Simulator}

// Lookup returns the network with the given id.
func Lookup(id uint8) (Network, error) {
	for _, n := range known {
		if n.ID == id {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown network id 0x%02x", id)
}

// ByName returns the network with the given name (case-insensitive).
func ByName(name string) (Network, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range known {
		if n.Name == name {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network: unknown network %q", name)
}

// All returns the known networks in id order.
func All() []Network {
	return append([]Network(nil), known...)
}

// HRP returns the bech32m human-readable part for an entity prefix such as
// "account_" or "component_".
func (n Network) HRP(prefix string) string {
	return prefix + n.HRPSuffix
}

func (n Network) String() string {
	return fmt.Sprintf("%s (0x%02x)", n.Name, n.ID)
}
