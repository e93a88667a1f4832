package upload

import (
	"errors"
	"fmt"
	"time"

	"xdao.co/radup/address"
	"xdao.co/radup/blob"
	"xdao.co/radup/keys"
	"xdao.co/radup/manifest"
	"xdao.co/radup/network"
	"xdao.co/radup/txn"
)

// DefaultComponent is the mainnet file storage component.
const DefaultComponent = "component_rdx1crlx9t5hdz2yx494zhcqyquyhdmwvnuryqt4lty2d6tcng3elxtuee"

const (
	DefaultEpochWindow = 10
	DefaultTimeout     = 30 * time.Second
)

// Config is the validated, immutable input of one upload. Build it with
// DefaultConfig and override fields; Uploader.Run validates it.
type Config struct {
	Network network.Network
	// GatewayURL defaults to the network's gateway.
	GatewayURL string
	// Component is the storage component address text.
	Component string
	// Curve is used when the secret does not name one.
	Curve         keys.Curve
	LockFee       string
	EpochWindow   uint64
	TipPercentage uint16
	Timeout       time.Duration
	MaxFileSize   int64
	// FileName overrides the name stored on ledger; the default is the
	// base name of the uploaded path.
	FileName string
	Message  string
	// Force uploads even when the journal already holds the blob.
	Force bool
}

// DefaultConfig returns mainnet defaults.
func DefaultConfig() Config {
	return Config{
		Network:     network.Mainnet,
		Component:   DefaultComponent,
		Curve:       keys.Secp256k1,
		LockFee:     manifest.DefaultLockFee,
		EpochWindow: DefaultEpochWindow,
		Timeout:     DefaultTimeout,
		MaxFileSize: blob.DefaultMaxSize,
	}
}

// Gateway returns the effective gateway URL.
func (c Config) Gateway() string {
	if c.GatewayURL != "" {
		return c.GatewayURL
	}
	return c.Network.GatewayURL
}

// Validate checks the config and returns the parsed component address.
func (c Config) Validate() (address.Address, error) {
	if _, err := network.Lookup(c.Network.ID); err != nil {
		return address.Address{}, err
	}
	comp, err := address.ParseComponent(c.Component, c.Network)
	if err != nil {
		return address.Address{}, fmt.Errorf("storage component: %w", err)
	}
	if _, err := keys.ParseCurve(string(c.Curve)); err != nil {
		return address.Address{}, err
	}
	if c.EpochWindow == 0 || c.EpochWindow > txn.MaxEpochWindow {
		return address.Address{}, fmt.Errorf("epoch window must be between 1 and %d, got %d", txn.MaxEpochWindow, c.EpochWindow)
	}
	if c.MaxFileSize <= 0 {
		return address.Address{}, errors.New("max file size must be positive")
	}
	if c.Timeout < 0 {
		return address.Address{}, errors.New("timeout must not be negative")
	}
	if c.Gateway() == "" {
		return address.Address{}, errors.New("gateway URL is empty")
	}
	if c.FileName != "" {
		if err := manifest.CheckFileName(c.FileName); err != nil {
			return address.Address{}, err
		}
	}
	return comp, nil
}
