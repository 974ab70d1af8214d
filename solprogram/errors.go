package solprogram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// TokenErrors maps SPL token program custom error codes.
var TokenErrors = map[int]string{
	0:  "NotRentExempt - Lamport balance below rent-exempt threshold",
	1:  "InsufficientFunds - Insufficient token balance",
	2:  "InvalidMint - Invalid mint",
	3:  "MintMismatch - Account not associated with this mint",
	4:  "OwnerMismatch - Owner does not match",
	17: "AccountFrozen - Account is frozen",
	18: "MintDecimalsMismatch - Mint decimals mismatch",
}

var customErrorHex = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// errorText flattens err together with any JSON-RPC data payload, where
// nodes put simulation logs.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		text += " " + rpcErr.Message
		if rpcErr.Data != nil {
			text += " " + fmt.Sprint(rpcErr.Data)
		}
	}
	return text
}

// IsAccountInUse reports the ledger's rejection of an account creation for
// an address that already exists, which is how a concurrent airdrop to the
// same recipient surfaces.
func IsAccountInUse(err error) bool {
	return err != nil && strings.Contains(errorText(err), "already in use")
}

// IsAccountNotFound reports a read of an account that does not exist.
func IsAccountNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	text := strings.ToLower(errorText(err))
	return strings.Contains(text, "could not find account") ||
		strings.Contains(text, "account not found")
}

// IsBlockhashExpired reports a transaction whose blockhash is no longer valid.
func IsBlockhashExpired(err error) bool {
	text := errorText(err)
	return strings.Contains(text, "BlockhashNotFound") ||
		strings.Contains(text, "Blockhash not found")
}

// IsRetryable reports transient transport failures worth another attempt.
// JSON-RPC rejections are answers, not outages, and are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		// -32005 node is behind, -32004 block not available
		return rpcErr.Code == -32005 || rpcErr.Code == -32004
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	text := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "too many requests",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
		"connection reset", "connection refused",
		"timeout",
	} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// ExtractErrorCode returns the custom program error code carried by err.
func ExtractErrorCode(err error) *int {
	if err == nil {
		return nil
	}
	if matches := customErrorHex.FindStringSubmatch(errorText(err)); len(matches) > 1 {
		if code, err := strconv.ParseInt(matches[1], 16, 64); err == nil {
			c := int(code)
			return &c
		}
	}
	return nil
}

// ParseSolanaError turns a submission failure into a readable message.
func ParseSolanaError(err error) string {
	if err == nil {
		return ""
	}

	if IsBlockhashExpired(err) {
		return "Transaction expired. The blockhash is no longer valid."
	}
	if code := ExtractErrorCode(err); code != nil {
		if msg, ok := TokenErrors[*code]; ok {
			return msg
		}
		return fmt.Sprintf("Custom program error code: %d", *code)
	}

	errStr := err.Error()
	if strings.Contains(errStr, "insufficient funds for fee") ||
		strings.Contains(errStr, "Attempt to debit an account but found no record of a prior credit") {
		return "Insufficient SOL balance to pay for transaction"
	}
	if len(errStr) > 300 {
		return errStr[:300] + "..."
	}
	return errStr
}
