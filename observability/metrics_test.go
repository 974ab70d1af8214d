package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Separate instances must not collide on registration.
	a := NewMetrics("")
	b := NewMetrics("")

	a.RecordClaim(OutcomeSuccess, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ClaimsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ClaimsTotal.WithLabelValues(OutcomeSuccess)))
}

func TestMetrics_ObserveRPC(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveRPC("getTokenAccountBalance", 10*time.Millisecond, nil)
	m.ObserveRPC("getTokenAccountBalance", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("getTokenAccountBalance")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RPCCallLatency))
}

func TestMetrics_RecordStore(t *testing.T) {
	m := NewMetrics("test")
	m.RecordStore("reserve", nil)
	m.RecordStore("reserve", errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("reserve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("reserve", "error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("airdrop")
	m.RecordClaim(OutcomeAlreadyClaimed, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `airdrop_claims_total{outcome="already_claimed"} 1`)
}
