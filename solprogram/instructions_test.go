package solprogram

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociatedTokenAddress_MatchesLibrary(t *testing.T) {
	wallet := newKey(t).PublicKey()
	mint := newKey(t).PublicKey()

	got, err := AssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := AssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestBuildAirdropInstructions(t *testing.T) {
	payer := newKey(t).PublicKey()
	recipient := newKey(t).PublicKey()
	mint := newKey(t).PublicKey()
	src, err := AssociatedTokenAddress(payer, mint)
	require.NoError(t, err)
	dst, err := AssociatedTokenAddress(recipient, mint)
	require.NoError(t, err)

	plan := TransferPlan{
		Payer:            payer,
		Mint:             mint,
		Recipient:        recipient,
		SourceAccount:    src,
		RecipientAccount: dst,
		Amount:           25_000_000_000,
		Decimals:         6,
	}

	t.Run("existing account", func(t *testing.T) {
		instrs := BuildAirdropInstructions(plan)
		require.Len(t, instrs, 1)
		assertTransferChecked(t, instrs[0], plan)
	})

	t.Run("create account first", func(t *testing.T) {
		plan := plan
		plan.CreateRecipientTA = true
		instrs := BuildAirdropInstructions(plan)
		require.Len(t, instrs, 2)

		assert.Equal(t, AssociatedTokenProgID, instrs[0].ProgramID())
		accounts := instrs[0].Accounts()
		require.GreaterOrEqual(t, len(accounts), 4)
		assert.Equal(t, payer, accounts[0].PublicKey)
		assert.True(t, accounts[0].IsSigner)
		assert.Equal(t, dst, accounts[1].PublicKey)
		assert.Equal(t, recipient, accounts[2].PublicKey)
		assert.Equal(t, mint, accounts[3].PublicKey)

		assertTransferChecked(t, instrs[1], plan)
	})
}

func assertTransferChecked(t *testing.T, instr solana.Instruction, plan TransferPlan) {
	t.Helper()
	assert.Equal(t, TokenProgramID, instr.ProgramID())

	data, err := instr.Data()
	require.NoError(t, err)
	require.Len(t, data, 10)
	assert.Equal(t, TokenInstructionTransferChecked, data[0])
	assert.Equal(t, plan.Amount, binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, plan.Decimals, data[9])

	accounts := instr.Accounts()
	require.Len(t, accounts, 4)
	assert.Equal(t, plan.SourceAccount, accounts[0].PublicKey)
	assert.Equal(t, plan.Mint, accounts[1].PublicKey)
	assert.Equal(t, plan.RecipientAccount, accounts[2].PublicKey)
	assert.Equal(t, plan.Payer, accounts[3].PublicKey)
	assert.True(t, accounts[3].IsSigner)
}

func TestBuildSignedTransaction(t *testing.T) {
	signer := newKey(t)
	mint := newKey(t).PublicKey()
	src, err := AssociatedTokenAddress(signer.PublicKey(), mint)
	require.NoError(t, err)

	instrs := []solana.Instruction{
		BuildTransferInstruction(1, 0, src, mint, src, signer.PublicKey()),
	}
	tx, err := BuildSignedTransaction(instrs, solana.Hash{1}, signer)
	require.NoError(t, err)

	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, signer.PublicKey(), tx.Message.AccountKeys[0])
	assert.Equal(t, solana.Hash{1}, tx.Message.RecentBlockhash)
	require.NoError(t, tx.VerifySignatures())
}

func TestEncodeDecodeTransaction(t *testing.T) {
	signer := newKey(t)
	mint := newKey(t).PublicKey()
	recipient := newKey(t).PublicKey()
	src, err := AssociatedTokenAddress(signer.PublicKey(), mint)
	require.NoError(t, err)
	dst, err := AssociatedTokenAddress(recipient, mint)
	require.NoError(t, err)

	instrs := BuildAirdropInstructions(TransferPlan{
		Payer:             signer.PublicKey(),
		Mint:              mint,
		Recipient:         recipient,
		SourceAccount:     src,
		RecipientAccount:  dst,
		Amount:            5,
		Decimals:          6,
		CreateRecipientTA: true,
	})
	tx, err := BuildSignedTransaction(instrs, solana.Hash{7}, signer)
	require.NoError(t, err)

	encoded, err := EncodeTransaction(tx)
	require.NoError(t, err)

	decoded, err := DecodeTransaction(encoded)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.Len(t, decoded.Message.Instructions, 2)
	require.NoError(t, decoded.VerifySignatures())

	_, err = DecodeTransaction("!!not base64!!")
	assert.Error(t, err)
}
