package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// RateSource declares a fixed quoting source reserves can reference by name.
// Rate is a "numerator/denominator" rational, a bare integer meaning a
// whole-unit rate.
type RateSource struct {
	Name string `toml:"Name"`
	Rate string `toml:"Rate"`
}

// Reserve declares a reserve to register at genesis.
type Reserve struct {
	Asset           string `toml:"Asset"`
	MintInterestBps uint32 `toml:"MintInterestBps"`
	BurnTaxBps      uint32 `toml:"BurnTaxBps"`
	VestingPeriod   uint64 `toml:"VestingPeriod"`
	RateSource      string `toml:"RateSource"`
	Disabled        bool   `toml:"Disabled"`
	Whitelisted     bool   `toml:"Whitelisted"`
}

type Config struct {
	ListenAddress    string       `toml:"ListenAddress"`
	DataDir          string       `toml:"DataDir"`
	Environment      string       `toml:"Environment"`
	AdminBearerToken string       `toml:"AdminBearerToken"`
	Owner            string       `toml:"Owner"`
	Beneficiary      string       `toml:"Beneficiary"`
	Custody          string       `toml:"Custody"`
	GlobalTaxBps     uint32       `toml:"GlobalTaxBps"`
	EventBufferSize  int          `toml:"EventBufferSize"`
	RateSources      []RateSource `toml:"RateSources"`
	Reserves         []Reserve    `toml:"Reserves"`
}

const maxBps = 10_000

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./pegvault-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = 256
	}
	if c.RateSources == nil {
		c.RateSources = []RateSource{}
	}
	if c.Reserves == nil {
		c.Reserves = []Reserve{}
	}
}

// Validate checks the configuration for internal consistency: addresses must
// parse, rates must be positive rationals, basis points must stay within the
// denominator, and every reserve must reference a declared rate source.
func (c *Config) Validate() error {
	if _, err := ParseAddress(c.Owner); err != nil {
		return fmt.Errorf("config: Owner: %w", err)
	}
	if _, err := ParseAddress(c.Beneficiary); err != nil {
		return fmt.Errorf("config: Beneficiary: %w", err)
	}
	if _, err := ParseAddress(c.Custody); err != nil {
		return fmt.Errorf("config: Custody: %w", err)
	}
	if c.GlobalTaxBps > maxBps {
		return fmt.Errorf("config: GlobalTaxBps %d exceeds %d", c.GlobalTaxBps, maxBps)
	}

	sources := make(map[string]struct{}, len(c.RateSources))
	for i, src := range c.RateSources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return fmt.Errorf("config: RateSources[%d]: Name must not be empty", i)
		}
		if _, dup := sources[name]; dup {
			return fmt.Errorf("config: RateSources[%d]: duplicate name %q", i, name)
		}
		rate, ok := new(big.Rat).SetString(strings.TrimSpace(src.Rate))
		if !ok || rate.Sign() <= 0 {
			return fmt.Errorf("config: RateSources[%d]: invalid rate %q", i, src.Rate)
		}
		sources[name] = struct{}{}
	}

	assets := make(map[[20]byte]struct{}, len(c.Reserves))
	for i, rsv := range c.Reserves {
		asset, err := ParseAddress(rsv.Asset)
		if err != nil {
			return fmt.Errorf("config: Reserves[%d]: Asset: %w", i, err)
		}
		if _, dup := assets[asset]; dup {
			return fmt.Errorf("config: Reserves[%d]: duplicate asset %s", i, rsv.Asset)
		}
		assets[asset] = struct{}{}
		if rsv.MintInterestBps > maxBps {
			return fmt.Errorf("config: Reserves[%d]: MintInterestBps %d exceeds %d", i, rsv.MintInterestBps, maxBps)
		}
		if rsv.BurnTaxBps > maxBps {
			return fmt.Errorf("config: Reserves[%d]: BurnTaxBps %d exceeds %d", i, rsv.BurnTaxBps, maxBps)
		}
		name := strings.TrimSpace(rsv.RateSource)
		if name == "" {
			return fmt.Errorf("config: Reserves[%d]: RateSource must not be empty", i)
		}
		if _, ok := sources[name]; !ok {
			return fmt.Errorf("config: Reserves[%d]: unknown rate source %q", i, name)
		}
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed hex address.
func ParseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return [20]byte(common.HexToAddress(trimmed)), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:   ":8080",
		DataDir:         "./pegvault-data",
		Environment:     "local",
		Owner:           common.Address{}.Hex(),
		Beneficiary:     common.Address{}.Hex(),
		Custody:         common.Address{}.Hex(),
		EventBufferSize: 256,
		RateSources:     []RateSource{},
		Reserves:        []Reserve{},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
