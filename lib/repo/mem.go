package repo

import (
	"os"
	"sync"

	"github.com/rainbow-me/wallet-core/config"
	"github.com/rainbow-me/wallet-core/lib/backend/kv"
	"github.com/rainbow-me/wallet-core/lib/types/store"
)

// MemRepo is an in-memory implementation of the repo interface.
type MemRepo struct {
	// lk guards the config
	lk    sync.RWMutex
	C     *config.Config
	rapDs store.KVStore

	keystoreDir string
	backupDir   string
}

var _ Repo = (*MemRepo)(nil)

// NewInMemoryRepo makes a new instance of MemRepo
func NewInMemoryRepo() *MemRepo {
	ksDir, _ := os.MkdirTemp("", "wallet-keystore")
	bkDir, _ := os.MkdirTemp("", "wallet-backups")
	return &MemRepo{
		C:           config.NewDefaultConfig(),
		rapDs:       kv.NewMemStore(),
		keystoreDir: ksDir,
		backupDir:   bkDir,
	}
}

// Config returns the configuration object.
func (mr *MemRepo) Config() *config.Config {
	mr.lk.RLock()
	defer mr.lk.RUnlock()

	return mr.C
}

// ReplaceConfig replaces the current config with the newly passed in one.
func (mr *MemRepo) ReplaceConfig(cfg *config.Config) error {
	mr.lk.Lock()
	defer mr.lk.Unlock()

	mr.C = cfg
	return nil
}

func (mr *MemRepo) RapStore() store.KVStore {
	return mr.rapDs
}

func (mr *MemRepo) KeystoreDir() string {
	return mr.keystoreDir
}

func (mr *MemRepo) BackupDir() string {
	return mr.backupDir
}

func (mr *MemRepo) Version() uint {
	return LatestVersion
}

func (mr *MemRepo) Path() (string, error) {
	return "", nil
}

// Close removes the temporary directories backing the repo.
func (mr *MemRepo) Close() error {
	os.RemoveAll(mr.keystoreDir)
	os.RemoveAll(mr.backupDir)
	return mr.rapDs.Close()
}
