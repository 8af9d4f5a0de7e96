package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/crypto/passphrase"
	logging "github.com/rainbow-me/wallet-core/lib/log"
	"github.com/rainbow-me/wallet-core/lib/types"
)

var logger = logging.Logger("keystore")

// recordJSON is the on-disk form of one record: the policy it was saved
// under plus the value sealed under the device secret.
type recordJSON struct {
	Policy   AccessPolicy    `json:"policy"`
	Envelope json.RawMessage `json:"envelope"`
	Version  int             `json:"version"`
}

const recordVersion = 1

// LocalStore keeps one encrypted file per record under dir. It stands in
// for the platform keychain: the device secret plays the enclave key,
// the Authenticator plays the presence gate.
type LocalStore struct {
	lk sync.RWMutex

	dir      string
	devicePw string
	auth     Authenticator

	scryptN int
	scryptP int
}

var _ Store = (*LocalStore)(nil)

type Option func(*LocalStore)

// WithLightScrypt switches to cheap KDF parameters. Tests only.
func WithLightScrypt() Option {
	return func(s *LocalStore) {
		s.scryptN = passphrase.LightScryptN
		s.scryptP = passphrase.LightScryptP
	}
}

func NewLocalStore(dir, devicePw string, auth Authenticator, opts ...Option) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, xerrors.Errorf("create keystore dir: %w", err)
	}
	s := &LocalStore{
		dir:      dir,
		devicePw: devicePw,
		auth:     auth,
		scryptN:  passphrase.StandardScryptN,
		scryptP:  passphrase.StandardScryptP,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *LocalStore) SaveString(key, value string, policy AccessPolicy) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.write(key, value, policy)
}

func (s *LocalStore) LoadString(key, prompt string) (string, bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.read(key, prompt)
}

func (s *LocalStore) SaveObject(key string, obj interface{}, policy AccessPolicy) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return xerrors.Errorf("encode record %s: %w", key, err)
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.write(key, string(data), policy)
}

func (s *LocalStore) LoadObject(key string, out interface{}, prompt string) (bool, error) {
	s.lk.RLock()
	value, found, err := s.read(key, prompt)
	s.lk.RUnlock()
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, xerrors.Errorf("decode record %s: %w", key, err)
	}
	return true, nil
}

func (s *LocalStore) HasKey(key string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	_, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *LocalStore) LoadAllKeys(prompt string) ([]Entry, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, xerrors.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, fi := range files {
		if fi.IsDir() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		names = append(names, fi.Name())
	}
	sort.Strings(names)

	// One presence grant covers the whole enumeration.
	granted := false
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		rec, err := s.load(name)
		if err != nil {
			return nil, err
		}
		if rec.Policy == AccessPrivate && !granted {
			if s.auth.CanAuthenticate() && !s.auth.RequestPresence(prompt) {
				return nil, types.ErrAuthentication
			}
			granted = true
		}
		value, err := s.open(name, rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Username: name, Password: value})
	}
	return entries, nil
}

func (s *LocalStore) RestoreBundle(secrets map[string]string) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	// Stage everything first so a failure leaves the store untouched.
	staged := make(map[string]string, len(secrets))
	for name, value := range secrets {
		policy := AccessPublic
		if secretRecord(name) {
			policy = AccessPrivate
		}
		blob, err := s.seal(value, policy)
		if err != nil {
			return err
		}
		tmp, err := writeTemporary(s.path(name), blob)
		if err != nil {
			return err
		}
		staged[name] = tmp
	}
	for name, tmp := range staged {
		if err := os.Rename(tmp, s.path(name)); err != nil {
			return xerrors.Errorf("restore record %s: %w", name, err)
		}
	}
	logger.Infof("restored %d records", len(secrets))
	return nil
}

func (s *LocalStore) Remove(key string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStore) Close() error { return nil }

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *LocalStore) write(key, value string, policy AccessPolicy) error {
	blob, err := s.seal(value, policy)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(key), blob)
}

func (s *LocalStore) seal(value string, policy AccessPolicy) ([]byte, error) {
	if policy == AccessPrivate && !s.auth.CanAuthenticate() {
		// No presence hardware: keep the record, drop the gate.
		policy = AccessPublic
	}
	env, err := passphrase.EncryptWithParams([]byte(value), s.devicePw, s.scryptN, s.scryptP)
	if err != nil {
		return nil, xerrors.Errorf("seal record: %w", err)
	}
	rec := recordJSON{Policy: policy, Envelope: env, Version: recordVersion}
	return json.Marshal(rec)
}

func (s *LocalStore) read(key, prompt string) (string, bool, error) {
	rec, err := s.load(key)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if rec.Policy == AccessPrivate {
		if s.auth.CanAuthenticate() && !s.auth.RequestPresence(prompt) {
			return "", false, types.ErrAuthentication
		}
	}
	value, err := s.open(key, rec)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *LocalStore) load(key string) (*recordJSON, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}
	rec := new(recordJSON)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, xerrors.Errorf("decode record file %s: %w", key, err)
	}
	return rec, nil
}

func (s *LocalStore) open(key string, rec *recordJSON) (string, error) {
	plain, err := passphrase.Decrypt(rec.Envelope, s.devicePw)
	if err != nil {
		return "", xerrors.Errorf("open record %s: %w", key, err)
	}
	return string(plain), nil
}

// Atomic write: temporary hidden file first, then rename into place.
func writeTemporary(file string, content []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

func writeFileAtomic(file string, content []byte) error {
	name, err := writeTemporary(file, content)
	if err != nil {
		return err
	}
	return os.Rename(name, file)
}
