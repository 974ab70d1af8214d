package solprogram

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
)

// AssociatedTokenAddress derives the canonical token account of wallet for mint.
func AssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			wallet.Bytes(),
			TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		AssociatedTokenProgID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// BuildCreateAssociatedAccountInstruction creates wallet's ATA for mint, paid by payer.
func BuildCreateAssociatedAccountInstruction(payer, wallet, mint solana.PublicKey) solana.Instruction {
	return associatedtokenaccount.NewCreateInstruction(payer, wallet, mint).Build()
}

// BuildTransferInstruction moves amount base units between token accounts,
// checking the mint and its decimals on chain.
func BuildTransferInstruction(amount uint64, decimals uint8, source, mint, destination, owner solana.PublicKey) solana.Instruction {
	return token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		owner,
		nil,
	).Build()
}

// TransferPlan describes a single airdrop transfer.
type TransferPlan struct {
	Payer             solana.PublicKey
	Mint              solana.PublicKey
	Recipient         solana.PublicKey
	SourceAccount     solana.PublicKey
	RecipientAccount  solana.PublicKey
	Amount            uint64
	Decimals          uint8
	CreateRecipientTA bool
}

// BuildAirdropInstructions returns the ordered instruction list for plan:
// an optional ATA creation followed by the checked transfer.
func BuildAirdropInstructions(plan TransferPlan) []solana.Instruction {
	instructions := make([]solana.Instruction, 0, 2)
	if plan.CreateRecipientTA {
		instructions = append(instructions,
			BuildCreateAssociatedAccountInstruction(plan.Payer, plan.Recipient, plan.Mint))
	}
	instructions = append(instructions, BuildTransferInstruction(
		plan.Amount,
		plan.Decimals,
		plan.SourceAccount,
		plan.Mint,
		plan.RecipientAccount,
		plan.Payer,
	))
	return instructions
}

// BuildSignedTransaction assembles instructions into a transaction paid and
// signed by signer.
func BuildSignedTransaction(instructions []solana.Instruction, blockhash solana.Hash, signer solana.PrivateKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if signer.PublicKey().Equals(key) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// EncodeTransaction serializes tx to base64 wire format.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransaction parses a base64 wire-format transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return tx, nil
}
