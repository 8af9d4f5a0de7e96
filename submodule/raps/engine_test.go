package raps

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ecrypto "github.com/ethereum/go-ethereum/crypto"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/backend/kv"
	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/connect"
)

var (
	testRouter = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	testToken  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	testOut    = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

type fakeLoader struct {
	key  *ecdsa.PrivateKey
	addr common.Address
	err  error
}

func (f *fakeLoader) LoadWallet(ctx context.Context) (*ecdsa.PrivateKey, common.Address, error) {
	if f.err != nil {
		return nil, common.Address{}, f.err
	}
	return f.key, f.addr, nil
}

// fakeChain scripts allowance and receipt outcomes and records calls.
type fakeChain struct {
	allowance *big.Int

	allowanceCalls int
	approveCalls   int
	swapCalls      int

	approveFails bool
	swapFails    bool

	// invoked just before Approve returns, to observe persisted state
	onApprove func()
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeChain) Allowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error) {
	f.allowanceCalls++
	if f.allowance == nil {
		return big.NewInt(0), nil
	}
	return f.allowance, nil
}

func (f *fakeChain) EstimateApprove(ctx context.Context, from, token, spender common.Address) (uint64, error) {
	return 50000, nil
}

func (f *fakeChain) Approve(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, gasLimit uint64, gasPrice *big.Int) (common.Hash, error) {
	f.approveCalls++
	if f.onApprove != nil {
		f.onApprove()
	}
	return common.HexToHash("0x01"), nil
}

func (f *fakeChain) EstimateSwap(ctx context.Context, from, router common.Address, p connect.SwapParams) (uint64, error) {
	return 180000, nil
}

func (f *fakeChain) Swap(ctx context.Context, key *ecdsa.PrivateKey, router common.Address, p connect.SwapParams) (common.Hash, error) {
	f.swapCalls++
	return common.HexToHash("0x02"), nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *etypes.Transaction) error {
	return nil
}

func (f *fakeChain) WaitForReceipt(ctx context.Context, hash common.Hash) error {
	if hash == common.HexToHash("0x01") && f.approveFails {
		return xerrors.New("status failed")
	}
	if hash == common.HexToHash("0x02") && f.swapFails {
		return xerrors.New("status failed")
	}
	return nil
}

func (f *fakeChain) HasPreviousTransactions(ctx context.Context, addr common.Address) (bool, error) {
	return false, nil
}

func (f *fakeChain) GasPrice(ctx context.Context, tier connect.GasTier) (*big.Int, error) {
	if tier == connect.GasFast {
		return big.NewInt(125), nil
	}
	return big.NewInt(100), nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return 0, nil
}

func newTestEngine(t *testing.T, chain *fakeChain, opts ...EngineOption) (*Engine, *Store) {
	t.Helper()
	key, err := ecrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(kv.NewMemStore())
	loader := &fakeLoader{key: key, addr: ecrypto.PubkeyToAddress(key.PublicKey)}
	return NewEngine(chain, store, loader, testRouter, opts...), store
}

func swapRequest() SwapRequest {
	return SwapRequest{
		AccountAddress:     "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		InputAsset:         testToken,
		OutputAsset:        testOut,
		InputAmount:        big.NewInt(1000),
		OutputAmount:       big.NewInt(900),
		InputAsExactAmount: true,
	}
}

func TestNewRapIncludesUnlockWhenNeeded(t *testing.T) {
	e, store := newTestEngine(t, &fakeChain{allowance: big.NewInt(0)})
	ctx := context.Background()

	rap, err := e.NewUnlockAndSwapRap(ctx, swapRequest(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(rap.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(rap.Actions))
	}
	if rap.Actions[0].Type != types.RapActionUnlock || rap.Actions[1].Type != types.RapActionSwap {
		t.Fatalf("action order %s, %s", rap.Actions[0].Type, rap.Actions[1].Type)
	}
	if rap.Actions[0].Parameters.ContractAddress != testRouter.Hex() {
		t.Fatalf("unlock spender %s", rap.Actions[0].Parameters.ContractAddress)
	}

	// persisted before return
	stored, err := store.Get(rap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Actions) != 2 {
		t.Fatalf("stored rap has %d actions", len(stored.Actions))
	}
}

func TestNewRapSkipsUnlockWithAllowance(t *testing.T) {
	// historical behavior: any allowance above zero suffices, even one
	// smaller than the trade
	e, _ := newTestEngine(t, &fakeChain{allowance: big.NewInt(1)})

	rap, err := e.NewUnlockAndSwapRap(context.Background(), swapRequest(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rap.Actions) != 1 || rap.Actions[0].Type != types.RapActionSwap {
		t.Fatalf("actions %+v", rap.Actions)
	}
}

func TestNewRapAmountAwareAllowance(t *testing.T) {
	e, _ := newTestEngine(t, &fakeChain{allowance: big.NewInt(1)}, WithAmountAwareAllowance())

	rap, err := e.NewUnlockAndSwapRap(context.Background(), swapRequest(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rap.Actions) != 2 {
		t.Fatalf("allowance below amount must unlock, got %d actions", len(rap.Actions))
	}
}

func TestNativeAssetNeverUnlocks(t *testing.T) {
	// casing of the asset symbol must not matter
	for _, asset := range []string{NativeAssetAddress, "ETH", "Eth"} {
		chain := &fakeChain{}
		e, _ := newTestEngine(t, chain)

		req := swapRequest()
		req.InputAsset = asset

		rap, err := e.NewUnlockAndSwapRap(context.Background(), req, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(rap.Actions) != 1 {
			t.Fatalf("%s produced %d actions", asset, len(rap.Actions))
		}
		if chain.allowanceCalls != 0 {
			t.Fatalf("allowance queried %d times for %s", chain.allowanceCalls, asset)
		}
	}
}

func TestRunUnlockAndSwap(t *testing.T) {
	chain := &fakeChain{allowance: big.NewInt(0)}
	e, store := newTestEngine(t, chain)
	ctx := context.Background()

	fired := 0
	rap, err := e.NewUnlockAndSwapRap(ctx, swapRequest(), func() { fired++ })
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Run(ctx, rap); err != nil {
		t.Fatal(err)
	}

	if chain.approveCalls != 1 || chain.swapCalls != 1 {
		t.Fatalf("approve=%d swap=%d", chain.approveCalls, chain.swapCalls)
	}
	if fired != 1 {
		t.Fatalf("callback fired %d times", fired)
	}

	stored, err := store.Get(rap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Terminal() {
		t.Fatalf("rap not terminal: %+v", stored.Actions)
	}
	for i, action := range stored.Actions {
		if action.Transaction.Hash == "" {
			t.Fatalf("action %d has no hash", i)
		}
		if action.Transaction.Confirmed == nil || !*action.Transaction.Confirmed {
			t.Fatalf("action %d not confirmed", i)
		}
	}
}

func TestRunPersistsBeforeBroadcast(t *testing.T) {
	chain := &fakeChain{allowance: big.NewInt(0)}
	e, store := newTestEngine(t, chain)
	ctx := context.Background()

	rap, err := e.NewUnlockAndSwapRap(ctx, swapRequest(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// At broadcast time the gating-check transition must already be
	// durable.
	chain.onApprove = func() {
		stored, err := store.Get(rap.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !stored.Actions[0].Transaction.Confirm {
			t.Fatal("confirm transition not persisted before broadcast")
		}
		if stored.Actions[0].Transaction.Hash != "" {
			t.Fatal("hash persisted before broadcast returned")
		}
	}

	if err := e.Run(ctx, rap); err != nil {
		t.Fatal(err)
	}
}

func TestRunStopsOnFailedUnlock(t *testing.T) {
	chain := &fakeChain{allowance: big.NewInt(0), approveFails: true}
	e, store := newTestEngine(t, chain)
	ctx := context.Background()

	rap, err := e.NewUnlockAndSwapRap(ctx, swapRequest(), nil)
	if err != nil {
		t.Fatal(err)
	}

	err = e.Run(ctx, rap)
	if !errors.Is(err, types.ErrActionConfirmation) {
		t.Fatalf("expected ErrActionConfirmation, got %v", err)
	}

	if chain.swapCalls != 0 {
		t.Fatal("swap ran despite failed unlock")
	}

	stored, err := store.Get(rap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c := stored.Actions[0].Transaction.Confirmed; c == nil || *c {
		t.Fatalf("unlock confirmed state %v", c)
	}
	if stored.Actions[1].Transaction.Hash != "" {
		t.Fatal("swap action has a hash")
	}
}

func TestRunSkipsSatisfiedUnlock(t *testing.T) {
	// Allowance appears between rap construction and run: the unlock
	// becomes a no-op, the swap still runs.
	chain := &fakeChain{allowance: big.NewInt(0)}
	e, _ := newTestEngine(t, chain)
	ctx := context.Background()

	rap, err := e.NewUnlockAndSwapRap(ctx, swapRequest(), nil)
	if err != nil {
		t.Fatal(err)
	}

	chain.allowance = big.NewInt(1000000)
	if err := e.Run(ctx, rap); err != nil {
		t.Fatal(err)
	}

	if chain.approveCalls != 0 {
		t.Fatal("approval broadcast despite sufficient allowance")
	}
	if chain.swapCalls != 1 {
		t.Fatalf("swap ran %d times", chain.swapCalls)
	}
}

func TestEstimateUnlockAndSwap(t *testing.T) {
	e, _ := newTestEngine(t, &fakeChain{allowance: big.NewInt(0)})
	ctx := context.Background()

	gas, err := e.EstimateUnlockAndSwap(ctx, swapRequest())
	if err != nil {
		t.Fatal(err)
	}
	if gas != 50000+180000 {
		t.Fatalf("gas %d", gas)
	}

	// no approval needed
	e2, _ := newTestEngine(t, &fakeChain{allowance: big.NewInt(1)})
	gas, err = e2.EstimateUnlockAndSwap(ctx, swapRequest())
	if err != nil {
		t.Fatal(err)
	}
	if gas != 180000 {
		t.Fatalf("gas %d", gas)
	}

	// missing assets fall back to the basic unit
	gas, err = e.EstimateUnlockAndSwap(ctx, SwapRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if gas != 200000 {
		t.Fatalf("gas %d", gas)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(kv.NewMemStore())

	rap := &types.Rap{
		ID: "rap-1",
		Actions: []*types.RapAction{
			{Type: types.RapActionSwap, Parameters: types.RapActionParameters{InputAsset: testToken}},
		},
	}
	if err := store.AddOrUpdate(rap); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get("rap-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "rap-1" || len(got.Actions) != 1 || got.Actions[0].Parameters.InputAsset != testToken {
		t.Fatalf("got %+v", got)
	}

	if _, err := store.Get("missing"); err == nil {
		t.Fatal("expected error for missing rap")
	}

	raps, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(raps) != 1 {
		t.Fatalf("listed %d raps", len(raps))
	}

	if err := store.Remove("rap-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("rap-1"); err == nil {
		t.Fatal("expected error after remove")
	}
}
