package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bizchain/core/types"
	"bizchain/crypto"
)

type Config struct {
	DataDir          string    `toml:"DataDir"`
	NetworkName      string    `toml:"NetworkName"`
	MetricsAddress   string    `toml:"MetricsAddress"`
	AuthorityAddress string    `toml:"AuthorityAddress"`
	Economics        Economics `toml:"Economics"`
}

// Economics are the tunable ledger parameters. Zero values fall back to the
// defaults applied in Load.
type Economics struct {
	UpdateCooldownSeconds   uint32 `toml:"UpdateCooldownSeconds"`
	SettlementWindowSeconds uint16 `toml:"SettlementWindowSeconds"`
	MaxClaimBps             uint16 `toml:"MaxClaimBps"`
	ClaimEpochSeconds       uint32 `toml:"ClaimEpochSeconds"`
	DepositFeeBps           uint16 `toml:"DepositFeeBps"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "biz-local"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./biz-data"
	}
	if cfg.Economics.UpdateCooldownSeconds == 0 {
		cfg.Economics.UpdateCooldownSeconds = 3_600
	}
	if cfg.Economics.MaxClaimBps == 0 {
		cfg.Economics.MaxClaimBps = 5_000
	}
	if cfg.Economics.ClaimEpochSeconds == 0 {
		cfg.Economics.ClaimEpochSeconds = 86_400
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the engine cannot honor.
func (c *Config) Validate() error {
	if c.Economics.MaxClaimBps > types.BasisPointDivisor {
		return fmt.Errorf("config: MaxClaimBps %d exceeds %d", c.Economics.MaxClaimBps, types.BasisPointDivisor)
	}
	if c.Economics.DepositFeeBps > types.BasisPointDivisor {
		return fmt.Errorf("config: DepositFeeBps %d exceeds %d", c.Economics.DepositFeeBps, types.BasisPointDivisor)
	}
	if addr := strings.TrimSpace(c.AuthorityAddress); addr != "" {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("config: AuthorityAddress: %w", err)
		}
	}
	return nil
}

// Authority returns the decoded pause authority, or false when none is
// configured.
func (c *Config) Authority() ([20]byte, bool, error) {
	addr := strings.TrimSpace(c.AuthorityAddress)
	if addr == "" {
		return [20]byte{}, false, nil
	}
	decoded, err := crypto.DecodeAddress(addr)
	if err != nil {
		return [20]byte{}, false, err
	}
	var out [20]byte
	copy(out[:], decoded.Bytes())
	return out, true, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./biz-data",
		NetworkName:    "biz-local",
		MetricsAddress: ":9400",
		Economics: Economics{
			UpdateCooldownSeconds:   3_600,
			SettlementWindowSeconds: 3_600,
			MaxClaimBps:             5_000,
			ClaimEpochSeconds:       86_400,
			DepositFeeBps:           0,
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
