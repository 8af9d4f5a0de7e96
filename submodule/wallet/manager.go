// Package wallet creates and imports wallets, derives accounts, migrates
// the legacy single-secret storage into the multi-wallet schema, and
// tracks the selected and primary wallets. Raw key material never lives
// here; it is referenced by record name and fetched from the keystore.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/crypto/hd"
	logging "github.com/rainbow-me/wallet-core/lib/log"
	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/keystore"
)

var logger = logging.Logger("wallet")

var (
	idMu   sync.Mutex
	lastID int64
)

// newWalletID keeps the wallet_<unix-millis> record shape; a same-
// millisecond collision bumps forward so ids never repeat in-process.
func newWalletID() string {
	idMu.Lock()
	defer idMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return fmt.Sprintf("wallet_%d", now)
}

const walletColors = 8

// defaultDiscoveryLimit bounds how far discovery walks the derivation
// path on import.
const defaultDiscoveryLimit = 100

// HistoryProvider answers whether an address ever transacted. Account
// discovery consults it one index at a time.
type HistoryProvider interface {
	HasPreviousTransactions(ctx context.Context, addr common.Address) (bool, error)
}

type Manager struct {
	store          keystore.Store
	history        HistoryProvider
	discoveryLimit int
}

type ManagerOption func(*Manager)

// WithDiscoveryLimit caps how many derivation indices import-time
// discovery may probe.
func WithDiscoveryLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.discoveryLimit = limit
		}
	}
}

func NewManager(store keystore.Store, history HistoryProvider, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, history: history, discoveryLimit: defaultDiscoveryLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitResult reports what Init did: imported/loaded wallets have
// IsNew=false, a brand-new wallet has IsNew=true.
type InitResult struct {
	IsNew         bool
	WalletAddress string
}

// Init runs exactly one of: import the supplied seed phrase, load the
// stored default address, or create a brand-new wallet.
func (m *Manager) Init(ctx context.Context, seedPhrase string, color int, name string) (*InitResult, error) {
	if seedPhrase != "" {
		w, err := m.CreateWallet(ctx, seedPhrase, color, name)
		if err != nil {
			return nil, err
		}
		return &InitResult{IsNew: false, WalletAddress: w.Addresses[0].Address}, nil
	}

	addr, err := m.LoadAddress()
	if err != nil {
		return nil, err
	}
	if addr != "" {
		return &InitResult{IsNew: false, WalletAddress: addr}, nil
	}

	w, err := m.CreateWallet(ctx, "", color, name)
	if err != nil {
		return nil, err
	}
	return &InitResult{IsNew: true, WalletAddress: w.Addresses[0].Address}, nil
}

// CreateWallet derives the first account of a new or imported wallet,
// persists its secrets, runs sequential account discovery for imported
// recoverable secrets, and inserts the wallet into the wallet set.
func (m *Manager) CreateWallet(ctx context.Context, seed string, color int, name string) (*types.Wallet, error) {
	isImported := seed != ""
	walletSeed := seed
	if walletSeed == "" {
		var err error
		walletSeed, err = hd.GenerateMnemonic()
		if err != nil {
			return nil, xerrors.Errorf("generate seed phrase: %w", err)
		}
	}

	walletType, err := IdentifyType(walletSeed)
	if err != nil {
		return nil, err
	}

	first, node, err := deriveFirstAccount(walletType, walletSeed)
	if err != nil {
		return nil, err
	}

	set, err := m.GetAllWallets()
	if err != nil {
		return nil, err
	}

	if isImported && walletType != types.WalletTypeReadOnly {
		for _, existing := range set.Wallets {
			if existing.Type != walletType {
				continue
			}
			if existing.HasAddress(first.address) {
				return nil, types.ErrDuplicateWallet
			}
		}
	}

	id := newWalletID()

	if err := m.SaveAddress(first.address); err != nil {
		return nil, err
	}
	if walletType != types.WalletTypeReadOnly {
		if err := m.SavePrivateKey(first.address, first.keyHex); err != nil {
			return nil, err
		}
		if err := m.SaveSeedPhrase(walletSeed, id); err != nil {
			return nil, err
		}
		// Address, private key, and seed are in the new schema now;
		// the flag keeps every later entry point off the legacy path.
		if err := m.setMigrated(); err != nil {
			return nil, err
		}
	}

	if color == 0 {
		color = randomColor()
	}
	addresses := []types.Account{{
		Address: first.address,
		Index:   0,
		Color:   color,
		Label:   name,
		Visible: true,
	}}

	if node != nil && isImported {
		discovered, err := m.discoverAccounts(ctx, node)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, discovered...)
	}

	walletName := types.DefaultWalletName
	if isImported && name != "" && len(addresses) > 1 {
		walletName = name
	}

	w := &types.Wallet{
		ID:        id,
		Name:      walletName,
		Type:      walletType,
		Color:     color,
		Imported:  isImported,
		Primary:   assignPrimary(set, walletType, isImported),
		Addresses: addresses,
	}
	set.Wallets[id] = w

	if err := m.SetSelectedWallet(w); err != nil {
		return nil, err
	}
	if err := m.SaveAllWallets(set); err != nil {
		return nil, err
	}

	logger.Infof("created wallet %s type=%s accounts=%d imported=%v", id, walletType, len(addresses), isImported)
	return w, nil
}

// assignPrimary preserves the original's two independent conditions: a
// freshly generated wallet is always primary; an imported mnemonic is
// primary when no mnemonic wallet exists yet, or when no wallet is
// currently primary.
func assignPrimary(set *types.WalletSet, walletType types.WalletType, isImported bool) bool {
	if !isImported {
		return true
	}
	if walletType != types.WalletTypeMnemonic {
		return false
	}
	hasMnemonic := false
	hasPrimary := false
	for _, w := range set.Wallets {
		if w.Type == types.WalletTypeMnemonic {
			hasMnemonic = true
		}
		if w.Primary {
			hasPrimary = true
		}
	}
	return !hasMnemonic || !hasPrimary
}

// discoverAccounts walks indices 1,2,... and keeps deriving while the
// previous index shows transaction history, stopping at the first index
// without any. Each discovered key is persisted before the next index
// is probed. This under-imports wallets with non-contiguous usage; a
// wider window needs an explicit product decision.
func (m *Manager) discoverAccounts(ctx context.Context, node *hd.Node) ([]types.Account, error) {
	var accounts []types.Account
	if m.history == nil {
		return accounts, nil
	}
	for index := 1; index <= m.discoveryLimit; index++ {
		key, addr, err := node.Derive(uint32(index))
		if err != nil {
			return nil, err
		}
		hasHistory, err := m.history.HasPreviousTransactions(ctx, addr)
		if err != nil {
			return nil, xerrors.Errorf("probe history at index %d: %w", index, err)
		}
		if !hasHistory {
			return accounts, nil
		}
		if err := m.SavePrivateKey(addr.Hex(), hd.KeyHex(key)); err != nil {
			return nil, err
		}
		accounts = append(accounts, types.Account{
			Address: addr.Hex(),
			Index:   index,
			Color:   randomColor(),
			Visible: true,
		})
	}
	return accounts, nil
}

// GenerateAccount derives and persists exactly one additional account
// for an existing wallet, migrating legacy storage first if needed.
func (m *Manager) GenerateAccount(ctx context.Context, walletID string, index int) (*types.Account, error) {
	migrated, err := m.isMigrated()
	if err != nil {
		return nil, err
	}

	var node *hd.Node
	if !migrated {
		res, err := m.MigrateSecrets(ctx)
		if err != nil {
			return nil, err
		}
		node = res.Node
	} else {
		rec, err := m.GetSeedPhrase(walletID)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.SeedPhrase == "" {
			return nil, types.ErrMissingSeed
		}
		node, err = nodeForSecret(rec.SeedPhrase)
		if err != nil {
			return nil, err
		}
	}
	if node == nil {
		return nil, types.ErrMissingSeed
	}

	key, addr, err := node.Derive(uint32(index))
	if err != nil {
		return nil, err
	}
	if err := m.SavePrivateKey(addr.Hex(), hd.KeyHex(key)); err != nil {
		return nil, err
	}
	return &types.Account{
		Address: addr.Hex(),
		Index:   index,
		Color:   randomColor(),
		Visible: true,
	}, nil
}

// LoadWallet resolves the active private key for signing, migrating
// first when the legacy schema is still in place.
func (m *Manager) LoadWallet(ctx context.Context) (*ecdsa.PrivateKey, common.Address, error) {
	migrated, err := m.isMigrated()
	if err != nil {
		return nil, common.Address{}, err
	}

	var keyHex string
	if !migrated {
		res, err := m.MigrateSecrets(ctx)
		if err != nil {
			return nil, common.Address{}, err
		}
		keyHex = res.PrivateKey
	} else {
		addr, err := m.LoadAddress()
		if err != nil {
			return nil, common.Address{}, err
		}
		rec, err := m.GetPrivateKey(addr)
		if err != nil {
			return nil, common.Address{}, err
		}
		if rec == nil {
			return nil, common.Address{}, xerrors.Errorf("no private key for %s", addr)
		}
		keyHex = rec.PrivateKey
	}

	key, err := crypto.HexToECDSA(strip0x(keyHex))
	if err != nil {
		return nil, common.Address{}, xerrors.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func randomColor() int {
	return rand.Intn(walletColors)
}
