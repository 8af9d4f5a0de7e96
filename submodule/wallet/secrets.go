package wallet

import (
	"fmt"
	"time"

	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/keystore"
)

const authPrompt = "Please authenticate to access your wallet"

func privateKeyRecordName(address string) string {
	return fmt.Sprintf("%s_%s", address, types.PrivateKeyKey)
}

func seedPhraseRecordName(walletID string) string {
	return fmt.Sprintf("%s_%s", walletID, types.SeedPhraseKey)
}

// SaveAddress persists the default address under the public policy.
func (m *Manager) SaveAddress(address string) error {
	return m.store.SaveString(types.AddressKey, address, keystore.AccessPublic)
}

// LoadAddress returns the stored default address, or "" when none was
// ever written.
func (m *Manager) LoadAddress() (string, error) {
	addr, _, err := m.store.LoadString(types.AddressKey, "")
	return addr, err
}

// SavePrivateKey persists one account's key under the private policy.
func (m *Manager) SavePrivateKey(address, keyHex string) error {
	rec := types.PrivateKeyRecord{
		Address:    address,
		PrivateKey: keyHex,
		Version:    types.PrivateKeyVersion,
	}
	return m.store.SaveObject(privateKeyRecordName(address), rec, keystore.AccessPrivate)
}

// GetPrivateKey returns the key record for an address, nil when absent.
func (m *Manager) GetPrivateKey(address string) (*types.PrivateKeyRecord, error) {
	rec := new(types.PrivateKeyRecord)
	found, err := m.store.LoadObject(privateKeyRecordName(address), rec, authPrompt)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

func (m *Manager) SaveSeedPhrase(seedPhrase, walletID string) error {
	rec := types.SeedPhraseRecord{
		ID:         walletID,
		SeedPhrase: seedPhrase,
		Version:    types.SeedPhraseVersion,
	}
	return m.store.SaveObject(seedPhraseRecordName(walletID), rec, keystore.AccessPrivate)
}

func (m *Manager) GetSeedPhrase(walletID string) (*types.SeedPhraseRecord, error) {
	rec := new(types.SeedPhraseRecord)
	found, err := m.store.LoadObject(seedPhraseRecordName(walletID), rec, authPrompt)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

// SetSelectedWallet repoints the selection record. The wallet set is
// the sole source of wallet structure; the pointer must always resolve
// into it.
func (m *Manager) SetSelectedWallet(w *types.Wallet) error {
	rec := types.SelectedWallet{Version: types.SelectedWalletVersion, Wallet: w}
	return m.store.SaveObject(types.SelectedWalletKey, rec, keystore.AccessPublic)
}

func (m *Manager) GetSelectedWallet() (*types.SelectedWallet, error) {
	rec := new(types.SelectedWallet)
	found, err := m.store.LoadObject(types.SelectedWalletKey, rec, "")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

// SaveAllWallets writes the whole wallet-set record. Last write wins;
// there is no merge on this record.
func (m *Manager) SaveAllWallets(set *types.WalletSet) error {
	set.Version = types.AllWalletsVersion
	return m.store.SaveObject(types.AllWalletsKey, set, keystore.AccessPublic)
}

// GetAllWallets returns the wallet set, empty but non-nil when the
// record was never written.
func (m *Manager) GetAllWallets() (*types.WalletSet, error) {
	set := new(types.WalletSet)
	found, err := m.store.LoadObject(types.AllWalletsKey, set, "")
	if err != nil {
		return nil, err
	}
	if !found || set.Wallets == nil {
		set.Wallets = make(map[string]*types.Wallet)
	}
	return set, nil
}

// SetWalletBackedUp records a completed backup on the wallet: the
// method, the file it landed in, and when. The selection record is
// refreshed when it points at the same wallet.
func (m *Manager) SetWalletBackedUp(walletID string, backupType types.BackupType, filename string) error {
	set, err := m.GetAllWallets()
	if err != nil {
		return err
	}
	w, ok := set.Wallets[walletID]
	if !ok {
		return xerrors.Errorf("wallet %s not found", walletID)
	}

	w.BackedUp = true
	w.BackupType = backupType
	w.BackupFile = filename
	w.BackupDate = time.Now().UnixMilli()

	if err := m.SaveAllWallets(set); err != nil {
		return err
	}

	sel, err := m.GetSelectedWallet()
	if err != nil {
		return err
	}
	if sel != nil && sel.Wallet != nil && sel.Wallet.ID == walletID {
		return m.SetSelectedWallet(w)
	}
	return nil
}

func (m *Manager) isMigrated() (bool, error) {
	v, found, err := m.store.LoadString(types.SeedMigratedKey, "")
	if err != nil {
		return false, err
	}
	return found && v == "true", nil
}

func (m *Manager) setMigrated() error {
	return m.store.SaveString(types.SeedMigratedKey, "true", keystore.AccessPublic)
}
