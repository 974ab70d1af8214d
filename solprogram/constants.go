package solprogram

import "github.com/gagliardetto/solana-go"

// Program IDs
var (
	TokenProgramID        = solana.TokenProgramID
	AssociatedTokenProgID = solana.SPLAssociatedTokenAccountProgramID
)

// Instruction discriminators of the SPL token program
const (
	TokenInstructionTransfer        byte = 3
	TokenInstructionTransferChecked byte = 12
)

// Sizes
const (
	PrivateKeyLength   = 64
	PublicKeyLength    = 32
	TokenAccountLength = 165
)

// Explorer URLs
const (
	ExplorerTxURL = "https://explorer.solana.com/tx/"
)
