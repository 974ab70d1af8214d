// Package server assembles the airdrop service from process settings.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solairdrop/airdrop"
	"solairdrop/chainsol"
	"solairdrop/config"
	"solairdrop/logger"
	"solairdrop/observability"
	"solairdrop/storage"
	"solairdrop/storage/memory"
	"solairdrop/storage/postgres"
	"solairdrop/storage/redis"
)

// Server owns the router and every resource behind it.
type Server struct {
	Router  *gin.Engine
	Metrics *observability.Metrics

	pool    *chainsol.Pool
	closers []func() error
	log     *zap.Logger
}

// New builds the claim store, ledger pool and HTTP router. lookup supplies
// the per-request airdrop settings.
func New(ctx context.Context, cfg config.Server, lookup config.Lookup, log *zap.Logger) (*Server, error) {
	s := &Server{
		Metrics: observability.NewMetrics("airdrop"),
		log:     log,
	}

	store, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s.pool = chainsol.NewPool(
		chainsol.WithObserver(s.Metrics),
		chainsol.WithLogger(log.Named("chainsol")),
	)

	service := airdrop.NewService(airdrop.Options{
		Store:     store,
		Connector: s.pool,
		Lookup:    lookup,
		Mode:      cfg.ClaimMode,
		Logger:    log.Named("airdrop"),
		Metrics:   s.Metrics,
	})

	if cfg.Stage == logger.ProdStage {
		gin.SetMode(gin.ReleaseMode)
	}
	s.Router = airdrop.NewRouter(airdrop.NewHandler(service, log), s.Metrics, log.Named("http"))

	log.Info("Airdrop service initialized",
		zap.String("claim_store", cfg.ClaimStore),
		zap.String("claim_mode", cfg.ClaimMode),
	)
	return s, nil
}

func (s *Server) openStore(ctx context.Context, cfg config.Server) (storage.ClaimStore, error) {
	switch cfg.ClaimStore {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres claim store: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	case config.StoreRedis:
		store, err := redis.Open(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis claim store: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	case config.StoreMemory, "":
		s.log.Warn("Using in-memory claim store; claims are lost on restart")
		return memory.NewClaimStore(), nil
	default:
		return nil, fmt.Errorf("unknown claim store %q", cfg.ClaimStore)
	}
}

// Close releases ledger connections and the claim store.
func (s *Server) Close() {
	s.pool.Close()
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.log.Warn("Failed to close resource", zap.Error(err))
		}
	}
}
