package raps

import (
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/lib/types/store"
)

var rapPrefix = []byte("raps/")

// Store persists rap state keyed by rap id. Every engine transition is
// written through here before control returns, so a relaunch can read
// back the last known state of every in-flight rap.
type Store struct {
	ds store.KVStore
}

func NewStore(ds store.KVStore) *Store {
	return &Store{ds: ds}
}

func rapKey(id string) []byte {
	return append(rapPrefix, []byte(id)...)
}

func (s *Store) AddOrUpdate(rap *types.Rap) error {
	data, err := rap.Marshal()
	if err != nil {
		return err
	}
	return s.ds.Put(rapKey(rap.ID), data)
}

func (s *Store) Get(id string) (*types.Rap, error) {
	data, err := s.ds.Get(rapKey(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, xerrors.Errorf("rap %s not found", id)
	}
	return types.UnmarshalRap(data)
}

func (s *Store) Remove(id string) error {
	return s.ds.Delete(rapKey(id))
}

// List returns every persisted rap, terminal or not. Boot-time
// reconciliation consumes this.
func (s *Store) List() ([]*types.Rap, error) {
	var raps []*types.Rap
	var decodeErr error
	s.ds.Iter(rapPrefix, func(k, v []byte) error {
		rap, err := types.UnmarshalRap(v)
		if err != nil {
			decodeErr = err
			return err
		}
		raps = append(raps, rap)
		return nil
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return raps, nil
}
