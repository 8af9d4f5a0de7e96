package backup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/keystore"
)

func testWallet(id string, addrs ...string) *types.Wallet {
	w := &types.Wallet{
		ID:       id,
		Name:     types.DefaultWalletName,
		Type:     types.WalletTypeMnemonic,
		BackedUp: false,
	}
	for i, addr := range addrs {
		w.Addresses = append(w.Addresses, types.Account{Address: addr, Index: i, Visible: true})
	}
	return w
}

func seedRecord(id string) string {
	return fmt.Sprintf("%s_%s", id, types.SeedPhraseKey)
}

func keyRecord(addr string) string {
	return fmt.Sprintf("%s_%s", addr, types.PrivateKeyKey)
}

// newTestCodec seeds a keystore with two wallets' secrets plus the
// public bookkeeping records.
func newTestCodec(t *testing.T) (*Codec, *keystore.MemStore, *MemStore) {
	t.Helper()
	ks := keystore.NewMemStore(nil)
	cloud := NewMemStore()

	records := map[string]string{
		types.AllWalletsKey:       `{"version":1,"wallets":{}}`,
		types.SelectedWalletKey:   `{"version":1}`,
		types.AddressKey:          "0xaaa",
		types.BackupPasswordKey:   "user-backup-pw",
		seedRecord("wallet_1"):    "seed one",
		seedRecord("wallet_2"):    "seed two",
		keyRecord("0xaaa"):        `{"address":"0xaaa"}`,
		keyRecord("0xbbb"):        `{"address":"0xbbb"}`,
	}
	for name, value := range records {
		if err := ks.SaveString(name, value, keystore.AccessPublic); err != nil {
			t.Fatal(err)
		}
	}

	return NewCodec(ks, cloud, WithLightScrypt()), ks, cloud
}

func TestExtractSecretsAllowList(t *testing.T) {
	c, _, _ := newTestCodec(t)

	secrets, err := c.extractSecretsForWallet(testWallet("wallet_1", "0xaaa"))
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{seedRecord("wallet_1"), keyRecord("0xaaa"), types.AddressKey} {
		if _, ok := secrets[want]; !ok {
			t.Fatalf("missing %s", want)
		}
	}
	for _, banned := range []string{
		seedRecord("wallet_2"),
		keyRecord("0xbbb"),
		types.AllWalletsKey,
		types.SelectedWalletKey,
		types.BackupPasswordKey,
	} {
		if _, ok := secrets[banned]; ok {
			t.Fatalf("leaked %s", banned)
		}
	}
}

func TestBackupRoundTrip(t *testing.T) {
	c, _, _ := newTestCodec(t)
	ctx := context.Background()

	filename, err := c.Backup(ctx, "backup-pw", testWallet("wallet_1", "0xaaa"))
	if err != nil {
		t.Fatal(err)
	}

	bundle, err := c.downloadAndDecrypt(ctx, "backup-pw", filename)
	if err != nil {
		t.Fatal(err)
	}
	if bundle.CreatedAt == 0 {
		t.Fatal("createdAt not set")
	}
	if bundle.Secrets[seedRecord("wallet_1")] != "seed one" {
		t.Fatalf("bundle %+v", bundle.Secrets)
	}
}

func TestBackupWrongPassword(t *testing.T) {
	c, _, _ := newTestCodec(t)
	ctx := context.Background()

	filename, err := c.Backup(ctx, "right", testWallet("wallet_1", "0xaaa"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.downloadAndDecrypt(ctx, "wrong", filename)
	if !errors.Is(err, types.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestAddWalletToExistingBackup(t *testing.T) {
	c, _, _ := newTestCodec(t)
	ctx := context.Background()

	filename, err := c.Backup(ctx, "pw", testWallet("wallet_1", "0xaaa"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.AddWalletToExistingBackup(ctx, "pw", testWallet("wallet_2", "0xbbb"), filename); err != nil {
		t.Fatal(err)
	}

	bundle, err := c.downloadAndDecrypt(ctx, "pw", filename)
	if err != nil {
		t.Fatal(err)
	}
	// union of both wallets
	if bundle.Secrets[seedRecord("wallet_1")] != "seed one" || bundle.Secrets[seedRecord("wallet_2")] != "seed two" {
		t.Fatalf("bundle %+v", bundle.Secrets)
	}
	if bundle.UpdatedAt == 0 {
		t.Fatal("updatedAt not set")
	}
}

func TestAddWalletFailsClosedOnWrongPassword(t *testing.T) {
	c, _, cloud := newTestCodec(t)
	ctx := context.Background()

	filename, err := c.Backup(ctx, "right", testWallet("wallet_1", "0xaaa"))
	if err != nil {
		t.Fatal(err)
	}
	before, err := cloud.Download(ctx, filename)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.AddWalletToExistingBackup(ctx, "wrong", testWallet("wallet_2", "0xbbb"), filename)
	if !errors.Is(err, types.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	after, err := cloud.Download(ctx, filename)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("failed merge must not touch the stored file")
	}
}

func TestRestore(t *testing.T) {
	c, _, cloud := newTestCodec(t)
	ctx := context.Background()

	w := testWallet("wallet_1", "0xaaa")
	filename, err := c.Backup(ctx, "pw", w)
	if err != nil {
		t.Fatal(err)
	}

	// Fresh device: empty keystore, same cloud contents.
	freshKs := keystore.NewMemStore(nil)
	fresh := NewCodec(freshKs, cloud, WithLightScrypt())

	w.BackedUp = true
	w.BackupType = types.BackupTypeCloud
	w.BackupFile = filename
	w.BackupDate = 42
	snapshot := &types.WalletSet{
		Version: types.AllWalletsVersion,
		Wallets: map[string]*types.Wallet{w.ID: w},
	}

	ok, err := fresh.Restore(ctx, "pw", snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("restore reported failure")
	}

	v, found, err := freshKs.LoadString(seedRecord("wallet_1"), "")
	if err != nil || !found || v != "seed one" {
		t.Fatalf("seed after restore: %q found=%v err=%v", v, found, err)
	}

	set := new(types.WalletSet)
	found, err = freshKs.LoadObject(types.AllWalletsKey, set, "")
	if err != nil || !found {
		t.Fatalf("wallet set after restore: found=%v err=%v", found, err)
	}
	if _, ok := set.Wallets["wallet_1"]; !ok {
		t.Fatalf("set %+v", set)
	}
}

func TestRestoreWrongPassword(t *testing.T) {
	c, _, cloud := newTestCodec(t)
	ctx := context.Background()

	w := testWallet("wallet_1", "0xaaa")
	filename, err := c.Backup(ctx, "pw", w)
	if err != nil {
		t.Fatal(err)
	}

	w.BackedUp = true
	w.BackupType = types.BackupTypeCloud
	w.BackupFile = filename
	w.BackupDate = 1
	snapshot := &types.WalletSet{Wallets: map[string]*types.Wallet{w.ID: w}}

	fresh := NewCodec(keystore.NewMemStore(nil), cloud, WithLightScrypt())
	_, err = fresh.Restore(ctx, "nope", snapshot)
	if !errors.Is(err, types.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestLatestBackupFile(t *testing.T) {
	snapshot := &types.WalletSet{Wallets: map[string]*types.Wallet{
		"a": {ID: "a", BackedUp: true, BackupType: types.BackupTypeCloud, BackupFile: "backup_1.json", BackupDate: 1},
		"b": {ID: "b", BackedUp: true, BackupType: types.BackupTypeCloud, BackupFile: "backup_9.json", BackupDate: 9},
		"c": {ID: "c", BackedUp: true, BackupType: types.BackupTypeManual, BackupFile: "manual.json", BackupDate: 99},
		"d": {ID: "d"},
	}}
	if got := latestBackupFile(snapshot); got != "backup_9.json" {
		t.Fatalf("got %s", got)
	}

	empty := &types.WalletSet{Wallets: map[string]*types.Wallet{}}
	if got := latestBackupFile(empty); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Upload(ctx, "backup_1.json", []byte("blob")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Download(ctx, "backup_1.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "blob" {
		t.Fatalf("got %q", got)
	}

	_, err = s.Download(ctx, "nope.json")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}
