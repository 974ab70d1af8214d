package airdrop

// ClaimRequest - Request body of POST /api/airdrop
type ClaimRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// ClaimResponse - Response after a confirmed airdrop
type ClaimResponse struct {
	Success     bool   `json:"success"`
	Signature   string `json:"signature"`
	Amount      uint64 `json:"amount"`
	Message     string `json:"message"`
	ExplorerURL string `json:"explorerUrl"`
}

// ErrorResponse - Standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse - Response of the health endpoints
type HealthResponse struct {
	Status  string `json:"status"`
	Network string `json:"network,omitempty"`
	Error   string `json:"error,omitempty"`
}
