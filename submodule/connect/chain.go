// Package connect is the chain RPC collaborator: allowance queries,
// approvals, swaps, broadcast, receipt waiting, and the address history
// probe used by account discovery.
package connect

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
)

type GasTier int

const (
	GasNormal GasTier = iota
	GasFast
)

// Fallback gas units when estimation fails.
const (
	BasicTxGas       = 21000
	BasicApprovalGas = 55000
	BasicSwapGas     = 200000
)

// SwapParams carries one router trade. Path runs input asset to output
// asset; InputAsExactAmount selects which leg is fixed.
type SwapParams struct {
	InputAmount        *big.Int
	OutputAmount       *big.Int
	Path               []common.Address
	To                 common.Address
	Deadline           *big.Int
	InputAsExactAmount bool
	GasLimit           uint64
	GasPrice           *big.Int
}

// Chain is the surface the wallet core needs from a node. Implemented
// by Client over ethclient and by fakes in tests.
type Chain interface {
	ChainID(ctx context.Context) (*big.Int, error)

	Allowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error)
	EstimateApprove(ctx context.Context, from, token, spender common.Address) (uint64, error)
	Approve(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, gasLimit uint64, gasPrice *big.Int) (common.Hash, error)

	EstimateSwap(ctx context.Context, from, router common.Address, p SwapParams) (uint64, error)
	Swap(ctx context.Context, key *ecdsa.PrivateKey, router common.Address, p SwapParams) (common.Hash, error)

	SendTransaction(ctx context.Context, tx *etypes.Transaction) error

	// WaitForReceipt blocks until the hash is included; nil means mined
	// with success status.
	WaitForReceipt(ctx context.Context, hash common.Hash) error

	// HasPreviousTransactions reports whether the address ever sent a
	// transaction.
	HasPreviousTransactions(ctx context.Context, addr common.Address) (bool, error)

	GasPrice(ctx context.Context, tier GasTier) (*big.Int, error)
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
}
