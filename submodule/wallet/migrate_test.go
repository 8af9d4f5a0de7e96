package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/keystore"
)

// seedLegacyStore fills a store the way the pre-migration schema did:
// one singular seed record, a selected wallet, and no migration flag.
func seedLegacyStore(t *testing.T) (*Manager, *keystore.MemStore) {
	t.Helper()
	store := keystore.NewMemStore(nil)
	m := NewManager(store, nil)

	if err := store.SaveString(types.SeedPhraseKey, testMnemonic, keystore.AccessPrivate); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSelectedWallet(&types.Wallet{
		ID:   "wallet_legacy",
		Name: types.DefaultWalletName,
		Type: types.WalletTypeMnemonic,
	}); err != nil {
		t.Fatal(err)
	}
	return m, store
}

func TestMigrateSecrets(t *testing.T) {
	m, store := seedLegacyStore(t)
	ctx := context.Background()

	res, err := m.MigrateSecrets(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Type != types.WalletTypeMnemonic {
		t.Fatalf("type %s", res.Type)
	}
	if res.SeedPhrase != testMnemonic {
		t.Fatalf("seed %q", res.SeedPhrase)
	}
	if res.Node == nil || res.PrivateKey == "" {
		t.Fatalf("result %+v", res)
	}

	// the seed now lives under the wallet-scoped record
	rec, err := m.GetSeedPhrase("wallet_legacy")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.SeedPhrase != testMnemonic {
		t.Fatalf("seed record %+v", rec)
	}

	// the per-address key record exists
	addr := derivedAddr(t, testMnemonic, 0).Hex()
	keyRec, err := m.GetPrivateKey(addr)
	if err != nil {
		t.Fatal(err)
	}
	if keyRec == nil || keyRec.PrivateKey != res.PrivateKey {
		t.Fatalf("key record %+v", keyRec)
	}

	// flag flipped last
	ok, err := store.HasKey(types.SeedMigratedKey)
	if err != nil || !ok {
		t.Fatalf("migration flag missing, err=%v", err)
	}
}

func TestMigrateSecretsIdempotent(t *testing.T) {
	m, _ := seedLegacyStore(t)
	ctx := context.Background()

	first, err := m.MigrateSecrets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.MigrateSecrets(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if first.SeedPhrase != second.SeedPhrase || first.PrivateKey != second.PrivateKey || first.Type != second.Type {
		t.Fatalf("second migration diverged: %+v vs %+v", first, second)
	}
}

func TestMigrateSecretsNoLegacyRecord(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.MigrateSecrets(context.Background())
	if !errors.Is(err, types.ErrMissingSeed) {
		t.Fatalf("expected ErrMissingSeed, got %v", err)
	}
}

func TestLoadSeedPhraseMigratesFirst(t *testing.T) {
	m, _ := seedLegacyStore(t)

	seed, err := m.LoadSeedPhrase(context.Background(), "wallet_legacy")
	if err != nil {
		t.Fatal(err)
	}
	if seed != testMnemonic {
		t.Fatalf("seed %q", seed)
	}
}

func TestCheckKeychainIntegrity(t *testing.T) {
	m := newTestManager(t, nil)
	ok, err := m.CheckKeychainIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("empty store should not be healthy")
	}

	legacy, _ := seedLegacyStore(t)
	ok, err = legacy.CheckKeychainIntegrity()
	if err != nil || !ok {
		t.Fatalf("legacy store should be healthy, ok=%v err=%v", ok, err)
	}

	if _, err := legacy.MigrateSecrets(context.Background()); err != nil {
		t.Fatal(err)
	}
	ok, err = legacy.CheckKeychainIntegrity()
	if err != nil || !ok {
		t.Fatalf("migrated store should be healthy, ok=%v err=%v", ok, err)
	}
}
