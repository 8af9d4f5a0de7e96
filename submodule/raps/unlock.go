package raps

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/connect"
)

// runUnlock executes one unlock (approval) action: check whether the
// asset still needs unlocking, and if so broadcast the approval at the
// fast gas tier and wait for inclusion. State is persisted after the
// gating check, after broadcast, and after the wait resolves.
func (e *Engine) runUnlock(ctx context.Context, key *ecdsa.PrivateKey, owner common.Address, rap *types.Rap, index int) error {
	action := rap.Actions[index]
	params := action.Parameters
	logger.Infof("rap %s: begin unlock of %s for %s", rap.ID, params.AssetAddress, params.ContractAddress)

	spender := common.HexToAddress(params.ContractAddress)
	needed, err := e.NeedsUnlocking(ctx, owner, params.AssetAddress, spender, params.Amount)
	if err != nil {
		return err
	}

	action.Transaction.Confirm = true
	if err := e.persist(rap); err != nil {
		return err
	}
	if !needed {
		logger.Infof("rap %s: allowance already sufficient", rap.ID)
		return nil
	}

	token := common.HexToAddress(params.AssetAddress)
	gasLimit, err := e.chain.EstimateApprove(ctx, owner, token, spender)
	if err != nil {
		gasLimit = connect.BasicApprovalGas
	}
	// Approvals always go out at the fast tier regardless of the gas
	// choice on the dependent action: a slow approval stalls the swap.
	gasPrice, err := e.chain.GasPrice(ctx, connect.GasFast)
	if err != nil {
		return err
	}

	hash, err := e.chain.Approve(ctx, key, token, spender, gasLimit, gasPrice)
	if err != nil {
		return xerrors.Errorf("broadcast approval: %w", err)
	}

	action.Transaction.Hash = hash.Hex()
	if err := e.persist(rap); err != nil {
		return err
	}
	fireCallback(rap)
	logger.Infof("rap %s: approval submitted, hash %s", rap.ID, hash)

	confirmed := e.chain.WaitForReceipt(ctx, hash) == nil
	action.Transaction.Confirmed = &confirmed
	if err := e.persist(rap); err != nil {
		return err
	}
	if !confirmed {
		logger.Warnf("rap %s: approval %s failed to confirm", rap.ID, hash)
	}
	return nil
}
