package solprogram

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidAddress    = errors.New("invalid wallet address")
)

// DecodePrivateKey accepts either a JSON byte array (solana-keygen output)
// or a base58 string and returns the 64-byte signer key.
func DecodePrivateKey(raw string) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPrivateKey)
	}

	var keyBytes []byte
	if strings.HasPrefix(raw, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(raw), &ints); err != nil {
			return nil, fmt.Errorf("%w: bad JSON array: %v", ErrInvalidPrivateKey, err)
		}
		keyBytes = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range: %d", ErrInvalidPrivateKey, i, v)
			}
			keyBytes[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad base58: %v", ErrInvalidPrivateKey, err)
		}
		keyBytes = decoded
	}

	if len(keyBytes) != PrivateKeyLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeyLength, len(keyBytes))
	}

	// The trailing half of a keypair is its public key.
	derived := ed25519.NewKeyFromSeed(keyBytes[:32])
	if !bytes.Equal(derived[32:], keyBytes[32:]) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidPrivateKey)
	}
	return solana.PrivateKey(keyBytes), nil
}

// ParseWalletAddress parses a base58 address and requires it to be an
// ed25519 point. Program-derived addresses are rejected since they cannot
// own an associated token account created by this service.
func ParseWalletAddress(address string) (solana.PublicKey, error) {
	address = strings.TrimSpace(address)
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != PublicKeyLength {
		return solana.PublicKey{}, ErrInvalidAddress
	}
	if !IsOnCurve(decoded) {
		return solana.PublicKey{}, fmt.Errorf("%w: not on curve", ErrInvalidAddress)
	}
	return solana.PublicKeyFromBytes(decoded), nil
}

// IsOnCurve reports whether b is a valid compressed edwards25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
