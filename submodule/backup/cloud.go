package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/xerrors"
)

// ErrFileNotFound is returned when a named blob does not exist in the
// cloud store.
var ErrFileNotFound = xerrors.New("backup file not found")

// CloudStore is the cloud file collaborator: named blobs scoped to the
// signed-in account.
type CloudStore interface {
	Upload(ctx context.Context, name string, blob []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
}

// DirStore keeps blobs in a local directory, standing in for the
// platform cloud drive.
type DirStore struct {
	dir string
}

var _ CloudStore = (*DirStore)(nil)

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, xerrors.Errorf("create backup dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Upload(ctx context.Context, name string, blob []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	tmp.Close()
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func (s *DirStore) Download(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}
	return data, err
}

// MemStore is an in-memory CloudStore for tests.
type MemStore struct {
	lk    sync.RWMutex
	blobs map[string][]byte
}

var _ CloudStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Upload(ctx context.Context, name string, blob []byte) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[name] = cp
	return nil
}

func (s *MemStore) Download(ctx context.Context, name string) ([]byte, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	blob, ok := s.blobs[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return blob, nil
}
