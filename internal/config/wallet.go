package config

import (
	"errors"
	"os"

	"github.com/gagliardetto/solana-go"
)

// WalletConfig carries the public identifier of the executing wallet.
// Signing stays with the wallet collaborator and never enters the engine.
type WalletConfig struct {
	PublicKey solana.PublicKey
}

func (c *WalletConfig) Key() string {
	return WALLET_CONFIG_KEY
}

func (c *WalletConfig) Load() error {
	raw := os.Getenv("WALLET_PUBLIC_KEY")
	if raw == "" {
		return errors.New("WALLET_PUBLIC_KEY is required")
	}
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return err
	}
	c.PublicKey = pk
	return c.Validate()
}

func (c *WalletConfig) Validate() error {
	if c.PublicKey.IsZero() {
		return errors.New("invalid wallet config")
	}
	return nil
}
