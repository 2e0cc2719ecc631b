package sim

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/domain"
)

// simSwapProgram stands in for a DEX router program id.
var simSwapProgram = solana.PublicKeyFromBytes([]byte("sim-swap-router-program-00000001"))

// Builder assembles placeholder swap transactions shaped like real ones:
// fee-payer wallet, router program, token accounts, fresh fake blockhash.
type Builder struct {
	container.BaseDIInstance
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) ID() string {
	return bundle.TX_BUILDER_SERVICE
}

func (b *Builder) Configure(c container.IContainer) error {
	return nil
}

func (b *Builder) Start() error {
	return nil
}

func (b *Builder) Stop() error {
	return nil
}

func (b *Builder) BuildSwap(ctx context.Context, q *domain.Quote, wallet solana.PublicKey) ([]*solana.Transaction, error) {
	if q == nil {
		return nil, errors.New("no quote to build from")
	}
	if wallet.IsZero() {
		return nil, errors.New("wallet not connected")
	}

	var blockhash solana.Hash
	rand.Read(blockhash[:])

	data := make([]byte, 16)
	if q.InAmount != nil && q.InAmount.IsUint64() {
		binary.LittleEndian.PutUint64(data[:8], q.InAmount.Uint64())
	}
	if q.OutAmount != nil && q.OutAmount.IsUint64() {
		binary.LittleEndian.PutUint64(data[8:], q.OutAmount.Uint64())
	}

	tx := &solana.Transaction{
		Signatures: []solana.Signature{{}},
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures:       1,
				NumReadonlyUnsignedAccounts: 2,
			},
			AccountKeys: []solana.PublicKey{
				wallet,
				q.InputMint,
				q.OutputMint,
				common.TokenProgramID,
				simSwapProgram,
			},
			RecentBlockhash: blockhash,
			Instructions: []solana.CompiledInstruction{{
				ProgramIDIndex: 4,
				Accounts:       []uint16{0, 1, 2, 3},
				Data:           data,
			}},
		},
	}
	return []*solana.Transaction{tx}, nil
}
