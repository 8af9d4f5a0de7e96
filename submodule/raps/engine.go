// Package raps sequences multi-step on-chain operations — raps — into
// ordered action lists with persisted per-action state. An action only
// starts after the previous one is confirmed or proved unnecessary, and
// every state transition hits the rap store before control returns, so
// an app kill mid-flight is recoverable from persisted state alone.
package raps

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	logging "github.com/rainbow-me/wallet-core/lib/log"
	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/connect"
)

var logger = logging.Logger("raps")

// NativeAssetAddress marks the chain's native asset in action
// parameters. The native asset never needs an approval.
const NativeAssetAddress = "eth"

// KeyLoader resolves the active signing key. Loading may block on a
// device-presence prompt.
type KeyLoader interface {
	LoadWallet(ctx context.Context) (*ecdsa.PrivateKey, common.Address, error)
}

type Engine struct {
	chain  connect.Chain
	store  *Store
	keys   KeyLoader
	router common.Address

	// amountAware switches NeedsUnlocking from "any allowance > 0" to
	// comparing against the amount the pending action needs.
	amountAware bool
}

type EngineOption func(*Engine)

// WithAmountAwareAllowance makes the unlock check compare the current
// allowance against the required amount instead of against zero. The
// zero comparison matches historical behavior but misreports a prior
// smaller approval as sufficient.
func WithAmountAwareAllowance() EngineOption {
	return func(e *Engine) { e.amountAware = true }
}

func NewEngine(chain connect.Chain, store *Store, keys KeyLoader, router common.Address, opts ...EngineOption) *Engine {
	e := &Engine{chain: chain, store: store, keys: keys, router: router}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes the rap's actions strictly in list order. A terminal
// Confirmed(false) on any action stops the run; the engine never
// retries on its own — the failure is left in the persisted state for
// the caller to act on.
func (e *Engine) Run(ctx context.Context, rap *types.Rap) error {
	logger.Infof("running rap %s with %d actions", rap.ID, len(rap.Actions))

	key, owner, err := e.keys.LoadWallet(ctx)
	if err != nil {
		return xerrors.Errorf("load wallet for rap %s: %w", rap.ID, err)
	}

	for index := range rap.Actions {
		var err error
		switch rap.Actions[index].Type {
		case types.RapActionUnlock:
			err = e.runUnlock(ctx, key, owner, rap, index)
		case types.RapActionSwap:
			err = e.runSwap(ctx, key, rap, index)
		default:
			err = xerrors.Errorf("unknown rap action type %q", rap.Actions[index].Type)
		}
		if err != nil {
			return err
		}
		if confirmed := rap.Actions[index].Transaction.Confirmed; confirmed != nil && !*confirmed {
			return xerrors.Errorf("rap %s action %d: %w", rap.ID, index, types.ErrActionConfirmation)
		}
	}
	return nil
}

// NeedsUnlocking reports whether the asset requires an approval before
// spender may move amount of it. The native asset never does.
func (e *Engine) NeedsUnlocking(ctx context.Context, owner common.Address, assetAddress string, spender common.Address, amount *big.Int) (bool, error) {
	if strings.EqualFold(assetAddress, NativeAssetAddress) {
		return false, nil
	}
	allowance, err := e.chain.Allowance(ctx, owner, common.HexToAddress(assetAddress), spender)
	if err != nil {
		return false, err
	}
	if e.amountAware && amount != nil {
		return allowance.Cmp(amount) < 0, nil
	}
	return allowance.Sign() <= 0, nil
}

// persist writes the rap's current state. Must be called after every
// mutation, before control leaves the engine.
func (e *Engine) persist(rap *types.Rap) error {
	if err := e.store.AddOrUpdate(rap); err != nil {
		return xerrors.Errorf("persist rap %s: %w", rap.ID, err)
	}
	return nil
}

// fireCallback runs the rap callback once, then disarms it.
func fireCallback(rap *types.Rap) {
	if rap.Callback != nil {
		rap.Callback()
		rap.Callback = nil
	}
}
