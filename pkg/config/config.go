// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel     string
	HTTPPort     string
	TxMaxSkew    time.Duration // accepted clock skew on signed tx requests
	DevEndpoints bool          // enables the faucet route for local runs

	// Market
	ContractAddr     string
	OperatorAddr     string
	TreasuryAddr     string
	BetDenom         string
	BetTokenAddr     string // when set the market takes this token instead of BetDenom
	BetTokenCodeHash string
	OracleAddr       string
	OracleCodeHash   string
	FeeRate          string
	RoundInterval    uint64 // seconds
	GraceInterval    uint64 // seconds
	PRNGSeed         string

	// Storage
	StorageMode   string // "memory", "leveldb" or "postgres"
	StorageEcho   bool   // print every commit to stdout
	LevelDBPath   string
	LevelDBSync   bool
	PostgresHost  string
	PostgresPort  string
	PostgresUser  string
	PostgresPass  string
	PostgresDB    string
	PostgresSSL   string
	RoundCacheMax int64

	// Oracle
	OracleMode       string // "feed", "http" or "stream"
	OracleURL        string
	OracleWSURL      string
	OracleTimeout    time.Duration
	OracleFeederAddr string

	// Price stream websocket
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSReconnectMaxAttempts  int
	WSMessageBufferSize     int

	// Transfers
	TransferMode       string // "bank" or "evm"
	EVMRPCURL          string
	OperatorPrivateKey string
	TokenDecimals      int
	WalletPollInterval time.Duration

	// Permits
	PermitChainID string

	// Keeper
	KeeperEnabled     bool
	KeeperInterval    time.Duration
	KeeperMaxFailures int
	KeeperCooldown    time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:     getEnvOrDefault("HTTP_PORT", "8080"),
		TxMaxSkew:    getDurationOrDefault("TX_MAX_SKEW", 2*time.Minute),
		DevEndpoints: getBoolOrDefault("DEV_ENDPOINTS", false),

		// Market defaults
		ContractAddr:     getEnvOrDefault("CONTRACT_ADDRESS", "0x00000000000000000000000000000000000c0de1"),
		OperatorAddr:     os.Getenv("OPERATOR_ADDRESS"),
		TreasuryAddr:     os.Getenv("TREASURY_ADDRESS"),
		BetDenom:         getEnvOrDefault("BET_DENOM", "uscrt"),
		BetTokenAddr:     os.Getenv("BET_TOKEN_ADDRESS"),
		BetTokenCodeHash: os.Getenv("BET_TOKEN_CODE_HASH"),
		OracleAddr:       os.Getenv("ORACLE_ADDRESS"),
		OracleCodeHash:   os.Getenv("ORACLE_CODE_HASH"),
		FeeRate:          getEnvOrDefault("FEE_RATE", "0.03"),
		RoundInterval:    getUint64OrDefault("ROUND_INTERVAL", 300),
		GraceInterval:    getUint64OrDefault("GRACE_INTERVAL", 60),
		PRNGSeed:         os.Getenv("PRNG_SEED"),

		// Storage defaults
		StorageMode:   getEnvOrDefault("STORAGE_MODE", "memory"),
		StorageEcho:   getBoolOrDefault("STORAGE_ECHO", false),
		LevelDBPath:   getEnvOrDefault("LEVELDB_PATH", "./data/updown"),
		LevelDBSync:   getBoolOrDefault("LEVELDB_SYNC", true),
		PostgresHost:  getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:  getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:  getEnvOrDefault("POSTGRES_USER", "updown"),
		PostgresPass:  getEnvOrDefault("POSTGRES_PASSWORD", "updown123"),
		PostgresDB:    getEnvOrDefault("POSTGRES_DB", "updown_rounds"),
		PostgresSSL:   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		RoundCacheMax: int64(getIntOrDefault("ROUND_CACHE_MAX", 10000)),

		// Oracle defaults
		OracleMode:       getEnvOrDefault("ORACLE_MODE", "feed"),
		OracleURL:        os.Getenv("ORACLE_URL"),
		OracleWSURL:      os.Getenv("ORACLE_WS_URL"),
		OracleTimeout:    getDurationOrDefault("ORACLE_TIMEOUT", 5*time.Second),
		OracleFeederAddr: os.Getenv("ORACLE_FEEDER_ADDRESS"),

		// WebSocket defaults
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSReconnectMaxAttempts:  getIntOrDefault("WS_RECONNECT_MAX_ATTEMPTS", 0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Transfer defaults
		TransferMode:       getEnvOrDefault("TRANSFER_MODE", "bank"),
		EVMRPCURL:          os.Getenv("EVM_RPC_URL"),
		OperatorPrivateKey: os.Getenv("OPERATOR_PRIVATE_KEY"),
		TokenDecimals:      getIntOrDefault("TOKEN_DECIMALS", 18),
		WalletPollInterval: getDurationOrDefault("WALLET_POLL_INTERVAL", 30*time.Second),

		// Permit defaults
		PermitChainID: getEnvOrDefault("PERMIT_CHAIN_ID", "updown-1"),

		// Keeper defaults
		KeeperEnabled:     getBoolOrDefault("KEEPER_ENABLED", true),
		KeeperInterval:    getDurationOrDefault("KEEPER_INTERVAL", 5*time.Second),
		KeeperMaxFailures: getIntOrDefault("KEEPER_MAX_FAILURES", 5),
		KeeperCooldown:    getDurationOrDefault("KEEPER_COOLDOWN", time.Minute),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	err := c.validateMarket()
	if err != nil {
		return err
	}

	switch c.StorageMode {
	case "memory", "postgres":
	case "leveldb":
		if c.LevelDBPath == "" {
			return fmt.Errorf("LEVELDB_PATH cannot be empty when STORAGE_MODE is leveldb")
		}
	default:
		return fmt.Errorf("STORAGE_MODE must be 'memory', 'leveldb' or 'postgres', got %q", c.StorageMode)
	}

	switch c.OracleMode {
	case "feed":
	case "http":
		if c.OracleURL == "" {
			return fmt.Errorf("ORACLE_URL cannot be empty when ORACLE_MODE is http")
		}
	case "stream":
		if c.OracleWSURL == "" {
			return fmt.Errorf("ORACLE_WS_URL cannot be empty when ORACLE_MODE is stream")
		}
	default:
		return fmt.Errorf("ORACLE_MODE must be 'feed', 'http' or 'stream', got %q", c.OracleMode)
	}

	switch c.TransferMode {
	case "bank":
	case "evm":
		if c.EVMRPCURL == "" {
			return fmt.Errorf("EVM_RPC_URL cannot be empty when TRANSFER_MODE is evm")
		}
		if c.OperatorPrivateKey == "" {
			return fmt.Errorf("OPERATOR_PRIVATE_KEY cannot be empty when TRANSFER_MODE is evm")
		}
	default:
		return fmt.Errorf("TRANSFER_MODE must be 'bank' or 'evm', got %q", c.TransferMode)
	}

	if c.KeeperEnabled {
		if c.KeeperInterval <= 0 {
			return fmt.Errorf("KEEPER_INTERVAL must be positive, got %s", c.KeeperInterval)
		}
		if c.KeeperMaxFailures <= 0 {
			return fmt.Errorf("KEEPER_MAX_FAILURES must be positive, got %d", c.KeeperMaxFailures)
		}
	}

	if c.RoundCacheMax < 0 {
		return fmt.Errorf("ROUND_CACHE_MAX cannot be negative, got %d", c.RoundCacheMax)
	}

	return nil
}

func (c *Config) validateMarket() error {
	addrs := map[string]string{
		"CONTRACT_ADDRESS":      c.ContractAddr,
		"OPERATOR_ADDRESS":      c.OperatorAddr,
		"TREASURY_ADDRESS":      c.TreasuryAddr,
		"BET_TOKEN_ADDRESS":     c.BetTokenAddr,
		"ORACLE_ADDRESS":        c.OracleAddr,
		"ORACLE_FEEDER_ADDRESS": c.OracleFeederAddr,
	}
	for name, value := range addrs {
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("%s must be a hex address, got %q", name, value)
		}
	}
	if c.ContractAddr == "" {
		return fmt.Errorf("CONTRACT_ADDRESS cannot be empty")
	}

	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return fmt.Errorf("FEE_RATE must be a decimal, got %q", c.FeeRate)
	}
	err = types.ValidateFeeRate(rate)
	if err != nil {
		return fmt.Errorf("FEE_RATE: %w", err)
	}

	err = types.ValidateIntervals(c.RoundInterval, c.GraceInterval)
	if err != nil {
		return fmt.Errorf("ROUND_INTERVAL/GRACE_INTERVAL: %w", err)
	}

	return c.BetAsset().Validate()
}

// BetAsset returns the configured bet asset.
func (c *Config) BetAsset() types.AssetInfo {
	if c.BetTokenAddr != "" {
		return types.TokenAsset(common.HexToAddress(c.BetTokenAddr), c.BetTokenCodeHash)
	}
	return types.NativeAsset(c.BetDenom)
}

// FeeRateDecimal returns FeeRate parsed. Validate guarantees it parses.
func (c *Config) FeeRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// Address parses an optional hex address; empty yields the zero address.
func Address(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	uintVal, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return uintVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
