package connect

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/xerrors"

	logging "github.com/rainbow-me/wallet-core/lib/log"
)

var logger = logging.Logger("connect")

const (
	firstReceiptWait = 6 * time.Second
	nextReceiptWait  = 5 * time.Second
	receiptRetries   = 10
)

// MaxApproval is the unlimited allowance requested by approvals.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Client implements Chain over a dialed ethclient.
type Client struct {
	ec      *ethclient.Client
	chainID *big.Int
}

var _ Chain = (*Client)(nil)

func Dial(ctx context.Context, endpoint string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, xerrors.Errorf("dial %s: %w", endpoint, err)
	}
	chainID, err := ec.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, xerrors.Errorf("query chain id: %w", err)
	}
	return &Client{ec: ec, chainID: chainID}, nil
}

func (c *Client) Close() {
	c.ec.Close()
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.chainID, nil
}

func (c *Client) Allowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error) {
	var out []interface{}
	contract := boundERC20(token, c.ec)
	err := contract.Call(&bind.CallOpts{Context: ctx, From: owner}, &out, "allowance", owner, spender)
	if err != nil {
		return nil, xerrors.Errorf("query allowance: %w", err)
	}
	return out[0].(*big.Int), nil
}

func (c *Client) EstimateApprove(ctx context.Context, from, token, spender common.Address) (uint64, error) {
	data, err := erc20ABI.Pack("approve", spender, MaxApproval)
	if err != nil {
		return BasicApprovalGas, nil
	}
	gas, err := c.ec.EstimateGas(ctx, callMsg(from, &token, data))
	if err != nil {
		// Estimation failure falls back to the fixed unit, it is not
		// a reason to stall the flow.
		logger.Warnf("estimate approve failed, using fallback: %s", err)
		return BasicApprovalGas, nil
	}
	return gas, nil
}

func (c *Client) Approve(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	auth, err := c.makeAuth(ctx, key, gasLimit, gasPrice)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := boundERC20(token, c.ec).Transact(auth, "approve", spender, MaxApproval)
	if err != nil {
		return common.Hash{}, xerrors.Errorf("send approval: %w", err)
	}
	return tx.Hash(), nil
}

func (c *Client) EstimateSwap(ctx context.Context, from, router common.Address, p SwapParams) (uint64, error) {
	data, err := packSwap(p)
	if err != nil {
		return BasicSwapGas, nil
	}
	gas, err := c.ec.EstimateGas(ctx, callMsg(from, &router, data))
	if err != nil {
		logger.Warnf("estimate swap failed, using fallback: %s", err)
		return BasicSwapGas, nil
	}
	return gas, nil
}

func (c *Client) Swap(ctx context.Context, key *ecdsa.PrivateKey, router common.Address, p SwapParams) (common.Hash, error) {
	auth, err := c.makeAuth(ctx, key, p.GasLimit, p.GasPrice)
	if err != nil {
		return common.Hash{}, err
	}
	method, args := swapCall(p)
	tx, err := boundRouter(router, c.ec).Transact(auth, method, args...)
	if err != nil {
		return common.Hash{}, xerrors.Errorf("send swap: %w", err)
	}
	return tx.Hash(), nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *etypes.Transaction) error {
	return c.ec.SendTransaction(ctx, tx)
}

// WaitForReceipt polls for inclusion: one longer initial wait, then one
// poll per expected block time.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) error {
	wait := firstReceiptWait
	for i := 0; i < receiptRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = nextReceiptWait

		receipt, err := c.ec.TransactionReceipt(ctx, hash)
		if err != nil || receipt == nil {
			continue
		}
		if receipt.Status == etypes.ReceiptStatusFailed {
			return xerrors.Errorf("transaction %s mined but execution failed", hash)
		}
		return nil
	}
	return xerrors.Errorf("transaction %s not packaged", hash)
}

func (c *Client) HasPreviousTransactions(ctx context.Context, addr common.Address) (bool, error) {
	nonce, err := c.ec.NonceAt(ctx, addr, nil)
	if err != nil {
		return false, xerrors.Errorf("query nonce: %w", err)
	}
	return nonce > 0, nil
}

func (c *Client) GasPrice(ctx context.Context, tier GasTier) (*big.Int, error) {
	price, err := c.ec.SuggestGasPrice(ctx)
	if err != nil {
		return nil, xerrors.Errorf("suggest gas price: %w", err)
	}
	if tier == GasFast {
		price = new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(125)), big.NewInt(100))
	}
	return price, nil
}

func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return c.ec.PendingNonceAt(ctx, addr)
}

func (c *Client) makeAuth(ctx context.Context, key *ecdsa.PrivateKey, gasLimit uint64, gasPrice *big.Int) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return nil, xerrors.Errorf("new keyed transactor: %w", err)
	}
	auth.Context = ctx
	auth.Value = big.NewInt(0)
	auth.GasLimit = gasLimit
	auth.GasPrice = gasPrice
	return auth, nil
}

func callMsg(from common.Address, to *common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: to, Data: data}
}

func packSwap(p SwapParams) ([]byte, error) {
	method, args := swapCall(p)
	return routerABI.Pack(method, args...)
}

func swapCall(p SwapParams) (string, []interface{}) {
	if p.InputAsExactAmount {
		return "swapExactTokensForTokens", []interface{}{p.InputAmount, p.OutputAmount, p.Path, p.To, p.Deadline}
	}
	return "swapTokensForExactTokens", []interface{}{p.OutputAmount, p.InputAmount, p.Path, p.To, p.Deadline}
}
