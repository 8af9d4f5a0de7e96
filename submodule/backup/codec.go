// Package backup round-trips encrypted secret bundles through untrusted
// cloud storage. A bundle holds exactly the secrets belonging to the
// wallets backed into it; merging later wallets into an existing file is
// a union, never a wholesale overwrite.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/crypto/passphrase"
	logging "github.com/rainbow-me/wallet-core/lib/log"
	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/keystore"
)

var logger = logging.Logger("backup")

const backupPrompt = "Please authenticate to back up your wallet"

type Codec struct {
	store keystore.Store
	cloud CloudStore

	scryptN int
	scryptP int
}

type Option func(*Codec)

// WithLightScrypt switches to cheap KDF parameters. Tests only.
func WithLightScrypt() Option {
	return func(c *Codec) {
		c.scryptN = passphrase.LightScryptN
		c.scryptP = passphrase.LightScryptP
	}
}

func NewCodec(store keystore.Store, cloud CloudStore, opts ...Option) *Codec {
	c := &Codec{
		store:   store,
		cloud:   cloud,
		scryptN: passphrase.StandardScryptN,
		scryptP: passphrase.StandardScryptP,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Backup extracts the wallet's secrets into a fresh bundle, encrypts it
// with password, and uploads it under a timestamped filename.
func (c *Codec) Backup(ctx context.Context, password string, w *types.Wallet) (string, error) {
	now := time.Now().UnixMilli()

	secrets, err := c.extractSecretsForWallet(w)
	if err != nil {
		return "", err
	}
	bundle := &types.BackupBundle{
		CreatedAt: now,
		Secrets:   secrets,
	}

	filename := fmt.Sprintf("backup_%d.json", now)
	if err := c.encryptAndUpload(ctx, bundle, password, filename); err != nil {
		return "", err
	}
	logger.Infof("backed up wallet %s to %s (%d secrets)", w.ID, filename, len(secrets))
	return filename, nil
}

// AddWalletToExistingBackup merges this wallet's secrets into the
// bundle at filename. Fails closed before any write when the existing
// bundle does not decrypt.
func (c *Codec) AddWalletToExistingBackup(ctx context.Context, password string, w *types.Wallet, filename string) (string, error) {
	bundle, err := c.downloadAndDecrypt(ctx, password, filename)
	if err != nil {
		return "", err
	}

	secrets, err := c.extractSecretsForWallet(w)
	if err != nil {
		return "", err
	}
	// Union; this wallet's secrets win on conflict.
	for name, value := range secrets {
		bundle.Secrets[name] = value
	}
	bundle.UpdatedAt = time.Now().UnixMilli()

	if err := c.encryptAndUpload(ctx, bundle, password, filename); err != nil {
		return "", err
	}
	logger.Infof("added wallet %s to backup %s", w.ID, filename)
	return filename, nil
}

// Restore finds the most recently dated cloud-backed wallet in the
// incoming snapshot, decrypts its file, and atomically writes the
// decrypted secrets plus the full snapshot back into the secret store.
func (c *Codec) Restore(ctx context.Context, password string, snapshot *types.WalletSet) (bool, error) {
	filename := latestBackupFile(snapshot)
	if filename == "" {
		return false, xerrors.New("no cloud-backed wallet in snapshot")
	}

	bundle, err := c.downloadAndDecrypt(ctx, password, filename)
	if err != nil {
		return false, err
	}

	setRecord, err := json.Marshal(&types.WalletSet{
		Version: types.AllWalletsVersion,
		Wallets: snapshot.Wallets,
	})
	if err != nil {
		return false, err
	}

	toRestore := make(map[string]string, len(bundle.Secrets)+1)
	toRestore[types.AllWalletsKey] = string(setRecord)
	for name, value := range bundle.Secrets {
		toRestore[name] = value
	}

	if err := c.store.RestoreBundle(toRestore); err != nil {
		return false, xerrors.Errorf("restore into keychain: %w", err)
	}
	logger.Infof("restored %d secrets from %s", len(bundle.Secrets), filename)
	return true, nil
}

func latestBackupFile(snapshot *types.WalletSet) string {
	var latest int64
	var filename string
	for _, w := range snapshot.Wallets {
		if !w.BackedUp || w.BackupType != types.BackupTypeCloud {
			continue
		}
		if filename == "" || w.BackupDate > latest {
			filename = w.BackupFile
			latest = w.BackupDate
		}
	}
	return filename
}

func (c *Codec) encryptAndUpload(ctx context.Context, bundle *types.BackupBundle, password, filename string) error {
	plain, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	blob, err := passphrase.EncryptWithParams(plain, password, c.scryptN, c.scryptP)
	if err != nil {
		return xerrors.Errorf("encrypt bundle: %w", err)
	}
	if err := c.cloud.Upload(ctx, filename, blob); err != nil {
		return xerrors.Errorf("upload %s: %w", filename, err)
	}
	return nil
}

func (c *Codec) downloadAndDecrypt(ctx context.Context, password, filename string) (*types.BackupBundle, error) {
	blob, err := c.cloud.Download(ctx, filename)
	if err != nil {
		return nil, xerrors.Errorf("download %s: %w", filename, err)
	}
	plain, err := passphrase.Decrypt(blob, password)
	if err != nil {
		return nil, types.ErrInvalidPassword
	}
	bundle := new(types.BackupBundle)
	if err := json.Unmarshal(plain, bundle); err != nil {
		return nil, types.ErrInvalidPassword
	}
	if bundle.Secrets == nil {
		bundle.Secrets = make(map[string]string)
	}
	return bundle, nil
}

// extractSecretsForWallet walks every stored record and keeps only the
// ones this wallet may carry into a bundle. The excludes are security
// critical: the wallet-set record, the selected pointer, the backup
// password sentinel, other wallets' seeds, and private keys that do not
// belong to one of this wallet's own addresses.
func (c *Codec) extractSecretsForWallet(w *types.Wallet) (map[string]string, error) {
	entries, err := c.store.LoadAllKeys(backupPrompt)
	if err != nil {
		return nil, xerrors.Errorf("read secrets from keychain: %w", err)
	}

	allowedKeys := make(map[string]bool, len(w.Addresses))
	for _, acc := range w.Addresses {
		allowedKeys[fmt.Sprintf("%s_%s", acc.Address, types.PrivateKeyKey)] = true
	}
	ownSeed := fmt.Sprintf("%s_%s", w.ID, types.SeedPhraseKey)

	secrets := make(map[string]string)
	for _, item := range entries {
		switch {
		case item.Username == types.AllWalletsKey:
		case item.Username == types.SelectedWalletKey:
		case item.Username == types.BackupPasswordKey:
		case strings.Contains(item.Username, "_"+types.SeedPhraseKey) && item.Username != ownSeed:
		case strings.Contains(item.Username, types.PrivateKeyKey) && !allowedKeys[item.Username]:
		default:
			secrets[item.Username] = item.Password
		}
	}
	return secrets, nil
}
