package chainsol

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"solairdrop/solprogram"
)

// RPC is the subset of the Solana JSON-RPC client the airdrop needs.
// *rpc.Client satisfies it.
type RPC interface {
	GetHealth(ctx context.Context) (string, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// Observer receives the outcome of every RPC call.
type Observer interface {
	ObserveRPC(method string, elapsed time.Duration, err error)
}

type SolChain struct {
	rpc            RPC
	ws             *ws.Client
	rpcURL         string
	network        string
	commitment     rpc.CommitmentType
	maxRetries     int
	retryInterval  time.Duration
	confirmTimeout time.Duration
	pollInterval   time.Duration
	observer       Observer
	log            *zap.Logger
}

type Config struct {
	RPCURL               string
	WSURL                string
	Network              string
	MaxRetries           int
	RetryInitialInterval time.Duration
	ConfirmTimeout       time.Duration
	PollInterval         time.Duration
}

// Option customizes a SolChain.
type Option func(*SolChain)

// WithRPC replaces the HTTP client built from Config.RPCURL.
func WithRPC(client RPC) Option {
	return func(c *SolChain) { c.rpc = client }
}

func WithObserver(o Observer) Option {
	return func(c *SolChain) { c.observer = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *SolChain) { c.log = l }
}

// NewSolChain connects to the cluster described by config. The websocket
// connection is optional; without it confirmations are polled.
func NewSolChain(ctx context.Context, config Config, opts ...Option) (*SolChain, error) {
	network, err := ResolveNetwork(config.Network, config.RPCURL)
	if err != nil {
		return nil, err
	}
	if config.RetryInitialInterval <= 0 {
		config.RetryInitialInterval = 250 * time.Millisecond
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = 60 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	c := &SolChain{
		rpcURL:         config.RPCURL,
		network:        network,
		commitment:     rpc.CommitmentConfirmed,
		maxRetries:     config.MaxRetries,
		retryInterval:  config.RetryInitialInterval,
		confirmTimeout: config.ConfirmTimeout,
		pollInterval:   config.PollInterval,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rpc == nil {
		if config.RPCURL == "" {
			return nil, fmt.Errorf("rpc url is required")
		}
		c.rpc = rpc.New(config.RPCURL)
	}
	if config.WSURL != "" {
		wss, err := ws.Connect(ctx, config.WSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect websocket %s: %w", config.WSURL, err)
		}
		c.ws = wss
	}
	return c, nil
}

// Network returns the resolved cluster name.
func (c *SolChain) Network() string {
	return c.network
}

// GetExplorerURL - Generate explorer URL
func (c *SolChain) GetExplorerURL(signature string) string {
	baseURL := solprogram.ExplorerTxURL
	switch c.network {
	case NetworkDevnet:
		return baseURL + signature + "?cluster=devnet"
	case NetworkTestnet:
		return baseURL + signature + "?cluster=testnet"
	case NetworkLocalnet:
		return baseURL + signature + "?cluster=custom&customUrl=" + url.QueryEscape(c.rpcURL)
	default:
		return baseURL + signature
	}
}

// HealthCheck asks the node whether it is caught up.
func (c *SolChain) HealthCheck(ctx context.Context) error {
	return c.call(ctx, "getHealth", func(ctx context.Context) error {
		_, err := c.rpc.GetHealth(ctx)
		return err
	})
}

// Close releases the websocket connection, if any.
func (c *SolChain) Close() {
	if c.ws != nil {
		c.ws.Close()
	}
}

// Cluster names
const (
	NetworkMainnet  = "mainnet-beta"
	NetworkDevnet   = "devnet"
	NetworkTestnet  = "testnet"
	NetworkLocalnet = "localnet"
)

// ResolveNetwork returns the cluster for explicit when set, otherwise infers
// it from the RPC endpoint.
func ResolveNetwork(explicit, rpcURL string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "":
		return InferNetwork(rpcURL), nil
	case "mainnet", "mainnet-beta":
		return NetworkMainnet, nil
	case "devnet":
		return NetworkDevnet, nil
	case "testnet":
		return NetworkTestnet, nil
	case "localnet", "localhost", "custom":
		return NetworkLocalnet, nil
	default:
		return "", fmt.Errorf("unknown solana network %q", explicit)
	}
}

// InferNetwork guesses the cluster from well-known substrings of the URL.
func InferNetwork(rpcURL string) string {
	u := strings.ToLower(rpcURL)
	switch {
	case strings.Contains(u, "devnet"):
		return NetworkDevnet
	case strings.Contains(u, "testnet"):
		return NetworkTestnet
	case strings.Contains(u, "localhost"), strings.Contains(u, "127.0.0.1"):
		return NetworkLocalnet
	default:
		return NetworkMainnet
	}
}
