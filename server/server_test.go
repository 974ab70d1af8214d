package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solairdrop/config"
)

func emptyLookup(string) (string, bool) { return "", false }

func TestNew_MemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg, err := config.LoadServer(emptyLookup)
	require.NoError(t, err)

	s, err := New(context.Background(), cfg, emptyLookup, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Unconfigured airdrop answers 500 naming the first missing setting.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/airdrop", strings.NewReader(`{"walletAddress":"`+solana.NewWallet().PublicKey().String()+`"}`))
	s.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), config.EnvPrivateKey+" is not configured")

	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "airdrop_claims_total")
}

func TestNew_UnknownStore(t *testing.T) {
	_, err := New(context.Background(), config.Server{ClaimStore: "etcd"}, emptyLookup, zap.NewNop())
	assert.Error(t, err)
}
