package repo

import (
	"github.com/rainbow-me/wallet-core/config"
	"github.com/rainbow-me/wallet-core/lib/types/store"
)

// Repo is a representation of all persistent data in a wallet node.
type Repo interface {
	Config() *config.Config

	// ReplaceConfig replaces the current config, with the newly passed in one.
	ReplaceConfig(cfg *config.Config) error

	// RapStore holds persisted rap state.
	RapStore() store.KVStore

	// KeystoreDir is where encrypted secret records live.
	KeystoreDir() string

	// BackupDir is where the file-backed cloud store writes backups.
	BackupDir() string

	// Version returns the current repo version.
	Version() uint

	// Path returns the repo path.
	Path() (string, error)

	// Close shuts down the repo.
	Close() error
}
