package raps

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/connect"
)

// SwapRequest describes one desired trade from the caller's point of
// view.
type SwapRequest struct {
	AccountAddress     string
	InputAsset         string
	OutputAsset        string
	InputAmount        *big.Int
	OutputAmount       *big.Int
	InputAsExactAmount bool
	SelectedGasPrice   *big.Int
}

// NewUnlockAndSwapRap builds the action list for a swap: an unlock
// action first when the input asset still needs approval for the
// router, then the swap itself. The rap is persisted before it is
// returned.
func (e *Engine) NewUnlockAndSwapRap(ctx context.Context, req SwapRequest, callback func()) (*types.Rap, error) {
	owner := common.HexToAddress(req.AccountAddress)

	needsUnlocking, err := e.NeedsUnlocking(ctx, owner, req.InputAsset, e.router, req.InputAmount)
	if err != nil {
		return nil, err
	}

	var actions []*types.RapAction
	if needsUnlocking {
		actions = append(actions, &types.RapAction{
			Type: types.RapActionUnlock,
			Parameters: types.RapActionParameters{
				AccountAddress:  req.AccountAddress,
				AssetAddress:    req.InputAsset,
				Amount:          req.InputAmount,
				ContractAddress: e.router.Hex(),
			},
		})
	}
	actions = append(actions, &types.RapAction{
		Type: types.RapActionSwap,
		Parameters: types.RapActionParameters{
			AccountAddress:     req.AccountAddress,
			InputAsset:         req.InputAsset,
			OutputAsset:        req.OutputAsset,
			InputAmount:        req.InputAmount,
			OutputAmount:       req.OutputAmount,
			InputAsExactAmount: req.InputAsExactAmount,
			SelectedGasPrice:   req.SelectedGasPrice,
		},
	})

	rap := &types.Rap{
		ID:       uuid.NewString(),
		Actions:  actions,
		Callback: callback,
	}
	if err := e.persist(rap); err != nil {
		return nil, err
	}
	logger.Infof("created rap %s (%d actions)", rap.ID, len(actions))
	return rap, nil
}

// EstimateUnlockAndSwap sums the gas for the approval (when one would
// be needed) and the swap.
func (e *Engine) EstimateUnlockAndSwap(ctx context.Context, req SwapRequest) (uint64, error) {
	if req.InputAsset == "" || req.OutputAsset == "" {
		return connect.BasicSwapGas, nil
	}

	owner := common.HexToAddress(req.AccountAddress)
	total := uint64(0)

	needsUnlocking, err := e.NeedsUnlocking(ctx, owner, req.InputAsset, e.router, req.InputAmount)
	if err != nil {
		return 0, err
	}
	if needsUnlocking {
		gas, err := e.chain.EstimateApprove(ctx, owner, common.HexToAddress(req.InputAsset), e.router)
		if err != nil {
			gas = connect.BasicApprovalGas
		}
		total += gas
	}

	swap := swapParamsFor(types.RapActionParameters{
		AccountAddress:     req.AccountAddress,
		InputAsset:         req.InputAsset,
		OutputAsset:        req.OutputAsset,
		InputAmount:        req.InputAmount,
		OutputAmount:       req.OutputAmount,
		InputAsExactAmount: req.InputAsExactAmount,
	}, timeNow())
	gas, err := e.chain.EstimateSwap(ctx, owner, e.router, swap)
	if err != nil {
		gas = connect.BasicSwapGas
	}
	return total + gas, nil
}
