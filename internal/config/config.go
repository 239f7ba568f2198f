package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/ez-dapp/gasless-server/internal/voucher"
)

// Registry backends.
const (
	BackendChain = "chain"
	BackendRedis = "redis"
)

type Config struct {
	Server   ServerConfig
	Gasless  GaslessConfig
	Registry RegistryConfig
	Chain    ChainConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type GaslessConfig struct {
	ProgramID          string `mapstructure:"program_id"`
	DefaultAmount      string `mapstructure:"default_amount"`
	DefaultDurationSec uint64 `mapstructure:"default_duration_sec"`
	SelectPolicy       string `mapstructure:"select_policy"`
	WatchEvents        bool   `mapstructure:"watch_events"`
}

type RegistryConfig struct {
	Backend string `mapstructure:"backend"`
}

type ChainConfig struct {
	RPCURL           string `mapstructure:"rpc_url"`
	ContractAddress  string `mapstructure:"contract_address"`
	IssuerPrivateKey string `mapstructure:"issuer_private_key"`
	ChainID          int64  `mapstructure:"chain_id"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	// Comma-separated operator addresses; empty disables operator auth.
	OperatorAddresses string `mapstructure:"operator_addresses"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("gasless.default_amount", big.NewInt(voucher.DefaultAmount).String())
	v.SetDefault("gasless.default_duration_sec", voucher.DefaultDurationSec)
	v.SetDefault("gasless.select_policy", string(voucher.SelectFirst))
	v.SetDefault("registry.backend", BackendChain)
	v.SetDefault("redis.addr", "redis:6379")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit env bindings
	bindings := map[string]string{
		"server.port":                  "PORT",
		"server.log_level":             "LOG_LEVEL",
		"gasless.program_id":           "PROGRAM_ID",
		"gasless.default_amount":       "DEFAULT_AMOUNT",
		"gasless.default_duration_sec": "DEFAULT_DURATION_SEC",
		"gasless.select_policy":        "SELECT_POLICY",
		"gasless.watch_events":         "WATCH_EVENTS",
		"registry.backend":             "REGISTRY_BACKEND",
		"chain.rpc_url":                "RPC_URL",
		"chain.contract_address":       "REGISTRY_CONTRACT",
		"chain.issuer_private_key":     "ISSUER_PRIVATE_KEY",
		"chain.chain_id":               "CHAIN_ID",
		"redis.addr":                   "REDIS_ADDR",
		"redis.password":               "REDIS_PASSWORD",
		"auth.operator_addresses":      "OPERATOR_ADDRESSES",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Gasless.ProgramID == "" {
		return fmt.Errorf("required config missing: PROGRAM_ID")
	}
	if _, err := voucher.ParseProgramID(c.Gasless.ProgramID); err != nil {
		return fmt.Errorf("PROGRAM_ID: %w", err)
	}
	if _, err := c.DefaultAmount(); err != nil {
		return err
	}
	if c.Gasless.DefaultDurationSec == 0 {
		return fmt.Errorf("DEFAULT_DURATION_SEC must be positive")
	}
	if _, err := voucher.ParseSelectPolicy(c.Gasless.SelectPolicy); err != nil {
		return err
	}
	if _, err := c.Operators(); err != nil {
		return err
	}

	switch c.Registry.Backend {
	case BackendChain:
		type req struct {
			val  string
			name string
		}
		for _, r := range []req{
			{c.Chain.RPCURL, "RPC_URL"},
			{c.Chain.ContractAddress, "REGISTRY_CONTRACT"},
			{c.Chain.IssuerPrivateKey, "ISSUER_PRIVATE_KEY"},
		} {
			if r.val == "" {
				return fmt.Errorf("required config missing: %s", r.name)
			}
		}
		if !common.IsHexAddress(c.Chain.ContractAddress) {
			return fmt.Errorf("REGISTRY_CONTRACT is not an address: %q", c.Chain.ContractAddress)
		}
		if c.Chain.ChainID == 0 {
			return fmt.Errorf("required config missing: CHAIN_ID")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("required config missing: REDIS_ADDR")
		}
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be %q or %q, got %q", BackendChain, BackendRedis, c.Registry.Backend)
	}

	if c.Auth.OperatorAddresses != "" && c.Redis.Addr == "" {
		return fmt.Errorf("OPERATOR_ADDRESSES requires REDIS_ADDR for nonce tracking")
	}
	return nil
}

// DefaultAmount parses the configured default issue amount.
func (c *Config) DefaultAmount() (*big.Int, error) {
	n, ok := new(big.Int).SetString(c.Gasless.DefaultAmount, 10)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("DEFAULT_AMOUNT must be a positive integer, got %q", c.Gasless.DefaultAmount)
	}
	return n, nil
}

// Operators returns the configured operator addresses, or nil when operator
// auth is disabled.
func (c *Config) Operators() ([]common.Address, error) {
	if strings.TrimSpace(c.Auth.OperatorAddresses) == "" {
		return nil, nil
	}
	var out []common.Address
	for _, raw := range strings.Split(c.Auth.OperatorAddresses, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("OPERATOR_ADDRESSES: invalid address %q", raw)
		}
		out = append(out, common.HexToAddress(raw))
	}
	return out, nil
}

// NeedsRedis reports whether any component needs a Redis connection.
func (c *Config) NeedsRedis() bool {
	return c.Registry.Backend == BackendRedis || c.Auth.OperatorAddresses != ""
}
