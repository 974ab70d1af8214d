package airdrop

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solairdrop/storage"
)

// Handler exposes the Service over HTTP.
type Handler struct {
	service      *Service
	log          *zap.Logger
	readyTimeout time.Duration
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log, readyTimeout: 5 * time.Second}
}

// HandleAirdrop serves POST /api/airdrop.
func (h *Handler) HandleAirdrop(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		setPreflightHeaders(c.Writer.Header())
		c.Status(http.StatusOK)
		return
	case http.MethodPost:
	default:
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: MsgMethodNotAllowed})
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidBody})
		return
	}

	resp, err := h.service.Claim(c.Request.Context(), req.WalletAddress)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGetClaim serves GET /api/airdrop/claims/:wallet.
func (h *Handler) HandleGetClaim(c *gin.Context) {
	claim, err := h.service.Lookup(c.Request.Context(), c.Param("wallet"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, claim)
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "claim not found"})
	case errors.Is(err, storage.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidWallet})
	default:
		h.log.Error("Claim lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// HandleHealth reports liveness without touching the ledger.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleReady checks configuration and RPC node health.
func (h *Handler) HandleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readyTimeout)
	defer cancel()

	network, err := h.service.Ready(ctx)
	if err != nil {
		h.log.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Network: network, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Network: network})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var claimErr *Error
	if !errors.As(err, &claimErr) {
		claimErr = internalError(err.Error(), err, "")
	}
	_ = c.Error(err)
	c.JSON(claimErr.Status, ErrorResponse{Error: claimErr.Message})
}
