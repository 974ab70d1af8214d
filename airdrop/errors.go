package airdrop

import (
	"net/http"

	"solairdrop/observability"
)

// Public error codes
const (
	CodeAlreadyClaimed      = "already_claimed"
	CodeAlreadyHasTokens    = "already_has_tokens"
	CodeInsufficientBalance = "insufficient_token_balance"
	CodeClaimedOrHasBalance = "already_claimed_or_has_balance"
	CodeRecipientFrozen     = "recipient_account_frozen"
)

// Public error messages
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgInvalidBody      = "Invalid request body"
	MsgWalletRequired   = "walletAddress is required"
	MsgInvalidWallet    = "Invalid wallet address"
)

// Error is a claim failure carrying the HTTP status and the message shown
// to the caller. Err keeps the cause for logs.
type Error struct {
	Status  int
	Message string
	Outcome string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func badRequest(message, outcome string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Outcome: outcome}
}

func internalError(message string, err error, outcome string) *Error {
	if outcome == "" {
		outcome = observability.OutcomeInternalFailure
	}
	return &Error{Status: http.StatusInternalServerError, Message: message, Outcome: outcome, Err: err}
}
