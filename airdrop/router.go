package airdrop

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solairdrop/observability"
)

// CORSConfig allows any origin to call the airdrop endpoint.
func CORSConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodPost, http.MethodOptions, http.MethodGet}
	cfg.AllowHeaders = []string{"Content-Type", CorrelationIDHeader}
	cfg.ExposeHeaders = []string{CorrelationIDHeader}
	cfg.OptionsResponseStatusCode = http.StatusOK
	return cfg
}

// setPreflightHeaders applies the CORS policy to OPTIONS requests without an
// Origin header, which the cors middleware passes through untouched.
func setPreflightHeaders(header http.Header) {
	cfg := CORSConfig()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ","))
	header.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ","))
}

// NewRouter wires the HTTP surface. metrics may be nil.
func NewRouter(h *Handler, metrics *observability.Metrics, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CorrelationIDMiddleware())
	router.Use(AccessLogMiddleware(log))
	router.Use(cors.New(CORSConfig()))

	router.GET("/health", h.HandleHealth)
	router.GET("/health/ready", h.HandleReady)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := router.Group("/api/airdrop")
	{
		api.Any("", h.HandleAirdrop)
		api.GET("/claims/:wallet", h.HandleGetClaim)
	}

	return router
}
