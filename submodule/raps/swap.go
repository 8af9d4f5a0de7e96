package raps

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/connect"
)

const swapDeadline = 20 * time.Minute

var timeNow = time.Now

// runSwap executes the trade action. Run's in-order execution already
// guarantees any preceding unlock reached Confirmed(true) before this
// broadcasts.
func (e *Engine) runSwap(ctx context.Context, key *ecdsa.PrivateKey, rap *types.Rap, index int) error {
	action := rap.Actions[index]
	params := action.Parameters
	logger.Infof("rap %s: begin swap %s -> %s", rap.ID, params.InputAsset, params.OutputAsset)

	swap := swapParamsFor(params, timeNow())

	from := common.HexToAddress(params.AccountAddress)
	gasLimit, err := e.chain.EstimateSwap(ctx, from, e.router, swap)
	if err != nil {
		gasLimit = connect.BasicSwapGas
	}
	swap.GasLimit = gasLimit

	gasPrice := params.SelectedGasPrice
	if gasPrice == nil {
		gasPrice, err = e.chain.GasPrice(ctx, connect.GasNormal)
		if err != nil {
			return err
		}
	}
	swap.GasPrice = gasPrice

	action.Transaction.Confirm = true
	if err := e.persist(rap); err != nil {
		return err
	}

	hash, err := e.chain.Swap(ctx, key, e.router, swap)
	if err != nil {
		return xerrors.Errorf("broadcast swap: %w", err)
	}

	action.Transaction.Hash = hash.Hex()
	if err := e.persist(rap); err != nil {
		return err
	}
	fireCallback(rap)
	logger.Infof("rap %s: swap submitted, hash %s", rap.ID, hash)

	confirmed := e.chain.WaitForReceipt(ctx, hash) == nil
	action.Transaction.Confirmed = &confirmed
	if err := e.persist(rap); err != nil {
		return err
	}
	if !confirmed {
		logger.Warnf("rap %s: swap %s failed to confirm", rap.ID, hash)
	}
	return nil
}

func swapParamsFor(params types.RapActionParameters, now time.Time) connect.SwapParams {
	return connect.SwapParams{
		InputAmount:        params.InputAmount,
		OutputAmount:       params.OutputAmount,
		Path:               []common.Address{common.HexToAddress(params.InputAsset), common.HexToAddress(params.OutputAsset)},
		To:                 common.HexToAddress(params.AccountAddress),
		Deadline:           big.NewInt(now.Add(swapDeadline).Unix()),
		InputAsExactAmount: params.InputAsExactAmount,
	}
}
