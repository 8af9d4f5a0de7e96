package types

import (
	"encoding/json"

	"golang.org/x/xerrors"
)

type WalletType string

const (
	WalletTypeMnemonic   WalletType = "mnemonic"
	WalletTypePrivateKey WalletType = "privateKey"
	WalletTypeSeed       WalletType = "seed"
	WalletTypeReadOnly   WalletType = "readOnly"
)

type BackupType string

const (
	BackupTypeCloud  BackupType = "cloud"
	BackupTypeManual BackupType = "manual"
	BackupTypeNone   BackupType = ""
)

// Keychain record names. The per-wallet records are stored under
// "<address>_<PrivateKeyKey>" and "<walletID>_<SeedPhraseKey>".
const (
	SeedPhraseKey     = "rainbowSeedPhrase"
	PrivateKeyKey     = "rainbowPrivateKey"
	AddressKey        = "rainbowAddressKey"
	SelectedWalletKey = "rainbowSelectedWalletKey"
	AllWalletsKey     = "rainbowAllWalletsKey"
	SeedMigratedKey   = "rainbowSeedPhraseMigratedKey"
	BackupPasswordKey = "rainbowBackup"
)

// Record envelope versions.
const (
	PrivateKeyVersion     = 1
	SeedPhraseVersion     = 1
	SelectedWalletVersion = 1
	AllWalletsVersion     = 1
	BackupVersion         = 1
)

const (
	DefaultHDPath     = "m/44'/60'/0'/0"
	DefaultWalletName = "My Wallet"
)

// Account is one derived address inside a wallet. Index is the HD path
// leaf; Visible toggles UI inclusion without deleting the account.
type Account struct {
	Address string `json:"address"`
	Index   int    `json:"index"`
	Color   int    `json:"color"`
	Label   string `json:"label"`
	Avatar  string `json:"avatar,omitempty"`
	Visible bool   `json:"visible"`
}

type Wallet struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       WalletType `json:"type"`
	Color      int        `json:"color"`
	Imported   bool       `json:"imported"`
	Primary    bool       `json:"primary"`
	BackedUp   bool       `json:"backedUp"`
	BackupType BackupType `json:"backupType,omitempty"`
	BackupDate int64      `json:"backupDate,omitempty"`
	BackupFile string     `json:"backupFile,omitempty"`
	Addresses  []Account  `json:"addresses"`
}

// WalletSet is the versioned allWallets record, keyed by wallet id.
type WalletSet struct {
	Version int                `json:"version"`
	Wallets map[string]*Wallet `json:"wallets"`
}

// SelectedWallet is the versioned pointer record. The full wallet is
// embedded so the selection survives without a second lookup.
type SelectedWallet struct {
	Version int     `json:"version"`
	Wallet  *Wallet `json:"wallet"`
}

// PrivateKeyRecord is the versioned payload under <address>_rainbowPrivateKey.
type PrivateKeyRecord struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
	Version    int    `json:"version"`
}

// SeedPhraseRecord is the versioned payload under <walletID>_rainbowSeedPhrase.
type SeedPhraseRecord struct {
	ID         string `json:"id"`
	SeedPhrase string `json:"seedphrase"`
	Version    int    `json:"version"`
}

// BackupBundle is the plaintext form of a cloud backup file. Secrets
// accumulate across backup operations via merge, never wholesale overwrite.
type BackupBundle struct {
	CreatedAt int64             `json:"createdAt"`
	UpdatedAt int64             `json:"updatedAt,omitempty"`
	Secrets   map[string]string `json:"secrets"`
}

// Recoverable reports whether the wallet holds a secret a backup can
// extract and a restore can reconstruct.
func (w *Wallet) Recoverable() bool {
	return w.Type == WalletTypeMnemonic || w.Type == WalletTypeSeed
}

// HasAddress reports whether addr is one of the wallet's own accounts.
func (w *Wallet) HasAddress(addr string) bool {
	for _, acc := range w.Addresses {
		if acc.Address == addr {
			return true
		}
	}
	return false
}

func (ws *WalletSet) Marshal() ([]byte, error) {
	return json.Marshal(ws)
}

func UnmarshalWalletSet(data []byte) (*WalletSet, error) {
	ws := new(WalletSet)
	if err := json.Unmarshal(data, ws); err != nil {
		return nil, xerrors.Errorf("decode wallet set: %w", err)
	}
	if ws.Wallets == nil {
		ws.Wallets = make(map[string]*Wallet)
	}
	return ws, nil
}
