package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names
const (
	EnvPrivateKey     = "SOLANA_PRIVATE_KEY"
	EnvMintAddress    = "TOKEN_MINT_ADDRESS"
	EnvRPCURL         = "SOLANA_RPC_URL"
	EnvWSURL          = "SOLANA_WS_URL"
	EnvNetwork        = "SOLANA_NETWORK"
	EnvTokenAmount    = "TOKEN_AMOUNT"
	EnvTokenDecimals  = "TOKEN_DECIMALS"
	EnvRPCMaxRetries  = "RPC_MAX_RETRIES"
	EnvConfirmTimeout = "CONFIRM_TIMEOUT"

	EnvPort           = "PORT"
	EnvStage          = "STAGE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvClaimStore     = "CLAIM_STORE"
	EnvClaimMode      = "CLAIM_MODE"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvSignerSecretID = "SIGNER_SECRET_ID"
)

// Defaults
const (
	DefaultTokenAmount    uint64 = 25000
	DefaultTokenDecimals  uint8  = 6
	DefaultRPCMaxRetries         = 2
	DefaultConfirmTimeout        = 60 * time.Second
	DefaultPort                  = "8080"
)

// Claim store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Claim modes
const (
	ModeReserve    = "reserve"
	ModeBestEffort = "best-effort"
)

// Lookup resolves an environment variable. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// Env reads from the process environment.
func Env() Lookup {
	return os.LookupEnv
}

// Overlay returns a Lookup that consults overrides before base.
func Overlay(base Lookup, overrides map[string]string) Lookup {
	return func(key string) (string, bool) {
		if v, ok := overrides[key]; ok {
			return v, true
		}
		return base(key)
	}
}

// MissingError reports a required variable that is unset or blank.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return e.Name + " is not configured"
}

// InvalidError reports a variable whose value could not be parsed.
type InvalidError struct {
	Name  string
	Value string
	Err   error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Name, e.Value, e.Err)
}

func (e *InvalidError) Unwrap() error { return e.Err }

// Airdrop holds the per-request airdrop settings. It is re-read on every
// claim so that a misconfigured deployment answers with a 500 naming the
// missing setting rather than failing at startup.
type Airdrop struct {
	SignerKey      string
	MintAddress    string
	RPCURL         string
	WSURL          string
	Network        string
	Amount         uint64
	Decimals       uint8
	MaxRetries     int
	ConfirmTimeout time.Duration
}

// LoadAirdrop reads the airdrop settings through lookup.
func LoadAirdrop(lookup Lookup) (Airdrop, error) {
	cfg := Airdrop{
		Amount:         DefaultTokenAmount,
		Decimals:       DefaultTokenDecimals,
		MaxRetries:     DefaultRPCMaxRetries,
		ConfirmTimeout: DefaultConfirmTimeout,
	}

	var err error
	if cfg.SignerKey, err = required(lookup, EnvPrivateKey); err != nil {
		return Airdrop{}, err
	}
	if cfg.MintAddress, err = required(lookup, EnvMintAddress); err != nil {
		return Airdrop{}, err
	}
	if cfg.RPCURL, err = required(lookup, EnvRPCURL); err != nil {
		return Airdrop{}, err
	}
	cfg.WSURL = optional(lookup, EnvWSURL, "")
	cfg.Network = strings.ToLower(optional(lookup, EnvNetwork, ""))

	if v := optional(lookup, EnvTokenAmount, ""); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Airdrop{}, &InvalidError{Name: EnvTokenAmount, Value: v, Err: err}
		}
		if n == 0 {
			return Airdrop{}, &InvalidError{Name: EnvTokenAmount, Value: v, Err: fmt.Errorf("must be positive")}
		}
		cfg.Amount = n
	}
	if v := optional(lookup, EnvTokenDecimals, ""); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || n > 19 {
			if err == nil {
				err = fmt.Errorf("must be at most 19")
			}
			return Airdrop{}, &InvalidError{Name: EnvTokenDecimals, Value: v, Err: err}
		}
		cfg.Decimals = uint8(n)
	}
	if v := optional(lookup, EnvRPCMaxRetries, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			if err == nil {
				err = fmt.Errorf("must not be negative")
			}
			return Airdrop{}, &InvalidError{Name: EnvRPCMaxRetries, Value: v, Err: err}
		}
		cfg.MaxRetries = n
	}
	if v := optional(lookup, EnvConfirmTimeout, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			if err == nil {
				err = fmt.Errorf("must be positive")
			}
			return Airdrop{}, &InvalidError{Name: EnvConfirmTimeout, Value: v, Err: err}
		}
		cfg.ConfirmTimeout = d
	}

	if _, err := cfg.RawAmount(); err != nil {
		return Airdrop{}, err
	}
	return cfg, nil
}

// RawAmount converts the whole-token amount to base units.
func (a Airdrop) RawAmount() (uint64, error) {
	scale := uint64(1)
	for i := uint8(0); i < a.Decimals; i++ {
		scale *= 10
	}
	if a.Amount > math.MaxUint64/scale {
		return 0, &InvalidError{
			Name:  EnvTokenAmount,
			Value: strconv.FormatUint(a.Amount, 10),
			Err:   fmt.Errorf("overflows u64 at %d decimals", a.Decimals),
		}
	}
	return a.Amount * scale, nil
}

// Server holds process-level settings read once at startup.
type Server struct {
	Port           string
	Stage          string
	LogLevel       string
	ClaimStore     string
	ClaimMode      string
	DatabaseURL    string
	RedisAddr      string
	SignerSecretID string
}

// LoadServer reads the process settings through lookup.
func LoadServer(lookup Lookup) (Server, error) {
	cfg := Server{
		Port:           optional(lookup, EnvPort, DefaultPort),
		Stage:          optional(lookup, EnvStage, "dev"),
		LogLevel:       optional(lookup, EnvLogLevel, "info"),
		ClaimStore:     strings.ToLower(optional(lookup, EnvClaimStore, StoreMemory)),
		ClaimMode:      strings.ToLower(optional(lookup, EnvClaimMode, ModeReserve)),
		DatabaseURL:    optional(lookup, EnvDatabaseURL, ""),
		RedisAddr:      optional(lookup, EnvRedisAddr, ""),
		SignerSecretID: optional(lookup, EnvSignerSecretID, ""),
	}

	switch cfg.ClaimStore {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Server{}, &MissingError{Name: EnvDatabaseURL}
		}
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return Server{}, &MissingError{Name: EnvRedisAddr}
		}
	default:
		return Server{}, &InvalidError{Name: EnvClaimStore, Value: cfg.ClaimStore, Err: fmt.Errorf("want memory, postgres or redis")}
	}

	if cfg.ClaimMode != ModeReserve && cfg.ClaimMode != ModeBestEffort {
		return Server{}, &InvalidError{Name: EnvClaimMode, Value: cfg.ClaimMode, Err: fmt.Errorf("want reserve or best-effort")}
	}
	return cfg, nil
}

func required(lookup Lookup, key string) (string, error) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", &MissingError{Name: key}
	}
	return v, nil
}

func optional(lookup Lookup, key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
