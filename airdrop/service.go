package airdrop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solairdrop/chainsol"
	"solairdrop/config"
	"solairdrop/observability"
	"solairdrop/solprogram"
	"solairdrop/storage"
)

// Connector hands out a ledger client for a cluster configuration.
// *chainsol.Pool satisfies it.
type Connector interface {
	Connect(ctx context.Context, cfg chainsol.Config) (*chainsol.SolChain, error)
}

// Options configures a Service.
type Options struct {
	Store     storage.ClaimStore
	Connector Connector
	Lookup    config.Lookup
	Mode      string
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Service performs one-time token airdrops.
type Service struct {
	store     storage.ClaimStore
	connector Connector
	lookup    config.Lookup
	mode      string
	log       *zap.Logger
	metrics   *observability.Metrics
}

// NewService builds a Service. Mode defaults to reserve.
func NewService(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		connector: opts.Connector,
		lookup:    opts.Lookup,
		mode:      opts.Mode,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
	if s.mode == "" {
		s.mode = config.ModeReserve
	}
	if s.lookup == nil {
		s.lookup = config.Env()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Claim transfers the configured airdrop amount to wallet. Failures are
// returned as *Error. Claims are keyed by the canonical base58 form of the
// address.
func (s *Service) Claim(ctx context.Context, wallet string) (resp *ClaimResponse, err error) {
	start := time.Now()
	wallet = strings.TrimSpace(wallet)
	log := s.log.With(zap.String("wallet", wallet))
	if id := CorrelationIDFromContext(ctx); id != "" {
		log = log.With(zap.String("correlation_id", id))
	}
	defer func() {
		s.finish(log, start, err)
	}()

	if wallet == "" {
		return nil, badRequest(MsgWalletRequired, observability.OutcomeInvalidRequest)
	}

	claimed, err := s.store.IsClaimed(ctx, wallet)
	s.recordStore("is_claimed", err)
	if err != nil {
		return nil, internalError(fmt.Sprintf("Failed to check claim status: %v", err), err, "")
	}
	if claimed {
		return nil, badRequest(CodeAlreadyClaimed, observability.OutcomeAlreadyClaimed)
	}

	recipient, err := solprogram.ParseWalletAddress(wallet)
	if err != nil {
		return nil, badRequest(MsgInvalidWallet, observability.OutcomeInvalidRequest)
	}
	wallet = recipient.String()

	cfg, err := config.LoadAirdrop(s.lookup)
	if err != nil {
		return nil, internalError(err.Error(), err, observability.OutcomeConfigError)
	}
	signer, err := solprogram.DecodePrivateKey(cfg.SignerKey)
	if err != nil {
		return nil, internalError("Invalid signer key: "+err.Error(), err, observability.OutcomeConfigError)
	}
	mint, err := solana.PublicKeyFromBase58(cfg.MintAddress)
	if err != nil {
		return nil, internalError(fmt.Sprintf("Invalid %s: %v", config.EnvMintAddress, err), err, observability.OutcomeConfigError)
	}
	rawAmount, err := cfg.RawAmount()
	if err != nil {
		return nil, internalError(err.Error(), err, observability.OutcomeConfigError)
	}

	chain, err := s.connector.Connect(ctx, chainsol.Config{
		RPCURL:         cfg.RPCURL,
		WSURL:          cfg.WSURL,
		Network:        cfg.Network,
		MaxRetries:     cfg.MaxRetries,
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	if err != nil {
		return nil, internalError(fmt.Sprintf("Failed to connect to Solana RPC: %v", err), err, observability.OutcomeConfigError)
	}

	sender := signer.PublicKey()
	senderATA, err := solprogram.AssociatedTokenAddress(sender, mint)
	if err != nil {
		return nil, internalError(err.Error(), err, "")
	}
	recipientATA, err := solprogram.AssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, internalError(err.Error(), err, "")
	}

	// Advisory only: a read failure here must not block the claim.
	if bal, err := chain.TokenBalance(ctx, recipientATA); err == nil {
		if bal.Amount > 0 {
			return nil, badRequest(CodeAlreadyHasTokens, observability.OutcomeHasTokens)
		}
	} else if !errors.Is(err, chainsol.ErrAccountNotFound) {
		log.Warn("Recipient balance check failed, continuing", zap.Error(err))
	}

	senderBal, err := chain.TokenBalance(ctx, senderATA)
	if err != nil {
		return nil, internalError(fmt.Sprintf("Failed to check token balance: %v", err), err, "")
	}
	if senderBal.Decimals != cfg.Decimals {
		err := fmt.Errorf("mint reports %d decimals, %s is %d", senderBal.Decimals, config.EnvTokenDecimals, cfg.Decimals)
		return nil, internalError("Token decimals mismatch: "+err.Error(), err, observability.OutcomeConfigError)
	}
	if senderBal.Amount < rawAmount {
		log.Warn("Sender balance too low",
			zap.Uint64("balance", senderBal.Amount),
			zap.Uint64("required", rawAmount),
		)
		return nil, badRequest(CodeInsufficientBalance, observability.OutcomeInsufficient)
	}

	createRecipientTA := false
	acct, err := chain.TokenAccount(ctx, recipientATA)
	switch {
	case err == nil:
		if acct.Frozen() {
			return nil, badRequest(CodeRecipientFrozen, observability.OutcomeInvalidRequest)
		}
	case errors.Is(err, chainsol.ErrAccountNotFound):
		createRecipientTA = true
	default:
		log.Warn("Recipient account lookup failed, adding create instruction", zap.Error(err))
		createRecipientTA = true
	}

	instructions := solprogram.BuildAirdropInstructions(solprogram.TransferPlan{
		Payer:             sender,
		Mint:              mint,
		Recipient:         recipient,
		SourceAccount:     senderATA,
		RecipientAccount:  recipientATA,
		Amount:            rawAmount,
		Decimals:          cfg.Decimals,
		CreateRecipientTA: createRecipientTA,
	})

	blockhash, err := chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, internalError(err.Error(), err, "")
	}
	tx, err := solprogram.BuildSignedTransaction(instructions, blockhash, signer)
	if err != nil {
		return nil, internalError(err.Error(), err, "")
	}

	if s.mode == config.ModeReserve {
		err := s.store.Reserve(ctx, wallet)
		s.recordStore("reserve", ignoreConflict(err))
		if errors.Is(err, storage.ErrAlreadyClaimed) {
			return nil, badRequest(CodeAlreadyClaimed, observability.OutcomeAlreadyClaimed)
		}
		if err != nil {
			return nil, internalError(fmt.Sprintf("Failed to reserve claim: %v", err), err, "")
		}
	}

	sig, err := chain.SendAndConfirm(ctx, tx)
	if err != nil {
		switch {
		case errors.Is(err, chainsol.ErrConfirmTimeout):
			log.Error("Transfer outcome unknown, keeping reservation",
				zap.String("signature", sig.String()),
				zap.Error(err),
			)
			return nil, internalError(err.Error(), err, observability.OutcomeConfirmTimeout)
		case solprogram.IsAccountInUse(err):
			s.release(ctx, log, wallet)
			return nil, badRequest(CodeClaimedOrHasBalance, observability.OutcomeSubmitConflict)
		default:
			s.release(ctx, log, wallet)
			log.Error("Transfer failed", zap.String("reason", solprogram.ParseSolanaError(err)))
			return nil, internalError(err.Error(), err, observability.OutcomeSubmitFailed)
		}
	}

	s.record(ctx, log, wallet, sig.String())

	return &ClaimResponse{
		Success:     true,
		Signature:   sig.String(),
		Amount:      cfg.Amount,
		Message:     fmt.Sprintf("Successfully airdropped %d tokens", cfg.Amount),
		ExplorerURL: chain.GetExplorerURL(sig.String()),
	}, nil
}

// Lookup returns the stored claim for wallet. Malformed addresses yield
// storage.ErrInvalidInput.
func (s *Service) Lookup(ctx context.Context, wallet string) (*storage.Claim, error) {
	recipient, err := solprogram.ParseWalletAddress(wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	c, err := s.store.Get(ctx, recipient.String())
	s.recordStore("get", ignoreNotFound(err))
	return c, err
}

// Ready checks that the airdrop is configured and its RPC node is healthy.
func (s *Service) Ready(ctx context.Context) (string, error) {
	cfg, err := config.LoadAirdrop(s.lookup)
	if err != nil {
		return "", err
	}
	chain, err := s.connector.Connect(ctx, chainsol.Config{
		RPCURL:         cfg.RPCURL,
		WSURL:          cfg.WSURL,
		Network:        cfg.Network,
		MaxRetries:     cfg.MaxRetries,
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	if err != nil {
		return "", err
	}
	return chain.Network(), chain.HealthCheck(ctx)
}

// record persists a confirmed claim. Failures are logged only: the tokens
// have already moved.
func (s *Service) record(ctx context.Context, log *zap.Logger, wallet, signature string) {
	ctx = context.WithoutCancel(ctx)
	if s.mode == config.ModeBestEffort {
		err := s.store.Reserve(ctx, wallet)
		s.recordStore("reserve", ignoreConflict(err))
		if err != nil && !errors.Is(err, storage.ErrAlreadyClaimed) {
			log.Error("Failed to record claim", zap.String("signature", signature), zap.Error(err))
			return
		}
	}
	err := s.store.Complete(ctx, wallet, signature)
	s.recordStore("complete", err)
	if err != nil {
		log.Error("Failed to record claim", zap.String("signature", signature), zap.Error(err))
	}
}

func (s *Service) release(ctx context.Context, log *zap.Logger, wallet string) {
	if s.mode != config.ModeReserve {
		return
	}
	err := s.store.Release(context.WithoutCancel(ctx), wallet)
	s.recordStore("release", err)
	if err != nil {
		log.Error("Failed to release claim", zap.Error(err))
	}
}

func (s *Service) finish(log *zap.Logger, start time.Time, err error) {
	outcome := observability.OutcomeSuccess
	elapsed := time.Since(start)
	if err != nil {
		var claimErr *Error
		if errors.As(err, &claimErr) {
			outcome = claimErr.Outcome
		} else {
			outcome = observability.OutcomeInternalFailure
		}
		if claimErr != nil && claimErr.Status >= 500 {
			log.Error("Airdrop failed", zap.String("outcome", outcome), zap.Duration("elapsed", elapsed), zap.Error(err))
		} else {
			log.Info("Airdrop rejected", zap.String("outcome", outcome), zap.Duration("elapsed", elapsed), zap.String("reason", err.Error()))
		}
	} else {
		log.Info("Airdrop completed", zap.Duration("elapsed", elapsed))
	}
	if s.metrics != nil {
		s.metrics.RecordClaim(outcome, elapsed)
	}
}

func (s *Service) recordStore(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordStore(op, err)
	}
}

func ignoreConflict(err error) error {
	if errors.Is(err, storage.ErrAlreadyClaimed) {
		return nil
	}
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
