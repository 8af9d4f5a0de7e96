package keystore

import (
	"encoding/json"
	"sort"
	"sync"

	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/types"
)

type memRecord struct {
	value  string
	policy AccessPolicy
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	lk      sync.RWMutex
	records map[string]memRecord
	auth    Authenticator
}

var _ Store = (*MemStore)(nil)

func NewMemStore(auth Authenticator) *MemStore {
	if auth == nil {
		auth = DeviceAuthenticator{}
	}
	return &MemStore{
		records: make(map[string]memRecord),
		auth:    auth,
	}
}

func (s *MemStore) SaveString(key, value string, policy AccessPolicy) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if policy == AccessPrivate && !s.auth.CanAuthenticate() {
		policy = AccessPublic
	}
	s.records[key] = memRecord{value: value, policy: policy}
	return nil
}

func (s *MemStore) LoadString(key, prompt string) (string, bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return "", false, nil
	}
	if rec.policy == AccessPrivate && s.auth.CanAuthenticate() && !s.auth.RequestPresence(prompt) {
		return "", false, types.ErrAuthentication
	}
	return rec.value, true, nil
}

func (s *MemStore) SaveObject(key string, obj interface{}, policy AccessPolicy) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return xerrors.Errorf("encode record %s: %w", key, err)
	}
	return s.SaveString(key, string(data), policy)
}

func (s *MemStore) LoadObject(key string, out interface{}, prompt string) (bool, error) {
	value, found, err := s.LoadString(key, prompt)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, xerrors.Errorf("decode record %s: %w", key, err)
	}
	return true, nil
}

func (s *MemStore) HasKey(key string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	_, ok := s.records[key]
	return ok, nil
}

func (s *MemStore) LoadAllKeys(prompt string) ([]Entry, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()

	names := make([]string, 0, len(s.records))
	hasPrivate := false
	for name, rec := range s.records {
		names = append(names, name)
		if rec.policy == AccessPrivate {
			hasPrivate = true
		}
	}
	if hasPrivate && s.auth.CanAuthenticate() && !s.auth.RequestPresence(prompt) {
		return nil, types.ErrAuthentication
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Username: name, Password: s.records[name].value})
	}
	return entries, nil
}

func (s *MemStore) RestoreBundle(secrets map[string]string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	for name, value := range secrets {
		policy := AccessPublic
		if secretRecord(name) {
			policy = AccessPrivate
		}
		if policy == AccessPrivate && !s.auth.CanAuthenticate() {
			policy = AccessPublic
		}
		s.records[name] = memRecord{value: value, policy: policy}
	}
	return nil
}

func (s *MemStore) Remove(key string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemStore) Close() error { return nil }
