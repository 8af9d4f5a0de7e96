package wallet

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/crypto/hd"
	"github.com/rainbow-me/wallet-core/lib/types"
)

// MigrationResult carries what the one-time upgrade recovered from the
// legacy singular seed-phrase record.
type MigrationResult struct {
	Node       *hd.Node
	PrivateKey string
	SeedPhrase string
	Type       types.WalletType
}

// MigrateSecrets upgrades the legacy single-wallet storage into the
// per-wallet keying scheme. Idempotent: once the migration flag is set
// this is a no-op returning the already-migrated secrets.
func (m *Manager) MigrateSecrets(ctx context.Context) (*MigrationResult, error) {
	migrated, err := m.isMigrated()
	if err != nil {
		return nil, err
	}
	if migrated {
		return m.migratedSecrets()
	}

	seedPhrase, err := m.loadLegacySeedPhrase()
	if err != nil {
		return nil, err
	}
	if seedPhrase == "" {
		return nil, types.ErrMissingSeed
	}

	walletType, err := IdentifyType(seedPhrase)
	if err != nil {
		return nil, err
	}
	first, node, err := deriveFirstAccount(walletType, seedPhrase)
	if err != nil {
		return nil, err
	}
	if first.keyHex == "" {
		return nil, xerrors.Errorf("legacy secret of type %s has no key material", walletType)
	}

	// Re-persist under the new keying scheme, then flip the flag last.
	if err := m.SavePrivateKey(first.address, first.keyHex); err != nil {
		return nil, err
	}
	selected, err := m.GetSelectedWallet()
	if err != nil {
		return nil, err
	}
	if selected == nil || selected.Wallet == nil {
		return nil, xerrors.New("no selected wallet to attach migrated seed to")
	}
	if err := m.SaveSeedPhrase(seedPhrase, selected.Wallet.ID); err != nil {
		return nil, err
	}
	if err := m.setMigrated(); err != nil {
		return nil, err
	}

	logger.Infof("migrated legacy secret storage for wallet %s", selected.Wallet.ID)
	return &MigrationResult{
		Node:       node,
		PrivateKey: first.keyHex,
		SeedPhrase: seedPhrase,
		Type:       walletType,
	}, nil
}

// migratedSecrets re-reads the already-migrated records so a second
// MigrateSecrets call produces identical output without writing.
func (m *Manager) migratedSecrets() (*MigrationResult, error) {
	selected, err := m.GetSelectedWallet()
	if err != nil {
		return nil, err
	}
	if selected == nil || selected.Wallet == nil {
		return nil, types.ErrMissingSeed
	}
	rec, err := m.GetSeedPhrase(selected.Wallet.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.SeedPhrase == "" {
		return nil, types.ErrMissingSeed
	}

	walletType, err := IdentifyType(rec.SeedPhrase)
	if err != nil {
		return nil, err
	}
	first, node, err := deriveFirstAccount(walletType, rec.SeedPhrase)
	if err != nil {
		return nil, err
	}
	return &MigrationResult{
		Node:       node,
		PrivateKey: first.keyHex,
		SeedPhrase: rec.SeedPhrase,
		Type:       walletType,
	}, nil
}

// loadLegacySeedPhrase reads the pre-migration singular record.
func (m *Manager) loadLegacySeedPhrase() (string, error) {
	v, _, err := m.store.LoadString(types.SeedPhraseKey, "Please authenticate to access your seed phrase")
	return v, err
}

// LoadSeedPhrase returns the wallet's seed phrase, migrating legacy
// storage first when needed.
func (m *Manager) LoadSeedPhrase(ctx context.Context, walletID string) (string, error) {
	migrated, err := m.isMigrated()
	if err != nil {
		return "", err
	}
	if !migrated {
		res, err := m.MigrateSecrets(ctx)
		if err != nil {
			return "", err
		}
		return res.SeedPhrase, nil
	}
	rec, err := m.GetSeedPhrase(walletID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", types.ErrMissingSeed
	}
	return rec.SeedPhrase, nil
}

// CheckKeychainIntegrity reports whether the store is in a recognized
// state: either migrated, or still holding the legacy record.
func (m *Manager) CheckKeychainIntegrity() (bool, error) {
	hasFlag, err := m.store.HasKey(types.SeedMigratedKey)
	if err != nil {
		return false, err
	}
	if hasFlag {
		return true, nil
	}
	return m.store.HasKey(types.SeedPhraseKey)
}
