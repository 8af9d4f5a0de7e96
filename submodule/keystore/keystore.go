// Package keystore is the durable, access-controlled store for wallet
// secrets: seed phrases, private keys, and the wallet-set records. It is
// the only owner of raw key material; everything above it references
// secrets by record name.
package keystore

import (
	"github.com/rainbow-me/wallet-core/lib/types"
)

// AccessPolicy controls when a record may be read back.
type AccessPolicy int

const (
	// AccessPublic records are always accessible on this device.
	AccessPublic AccessPolicy = iota
	// AccessPrivate records are gated behind device passcode/biometric
	// presence. The policy is only granted when the device reports an
	// authenticatable, non-simulator environment; otherwise the record
	// degrades to public.
	AccessPrivate
)

// Authenticator is the device-presence collaborator.
type Authenticator interface {
	// CanAuthenticate reports whether the device can gate secrets
	// behind passcode or biometrics. Simulators report false.
	CanAuthenticate() bool
	// RequestPresence blocks on the user prompt and reports whether
	// presence was granted. Dismissal reports false.
	RequestPresence(prompt string) bool
}

// Entry is one stored record as surfaced by LoadAllKeys.
type Entry struct {
	Username string
	Password string
}

// Store is the secret-store contract. A read of a key that was never
// written returns found=false and no error; a denied read returns
// types.ErrAuthentication. Callers must distinguish the two.
type Store interface {
	SaveString(key, value string, policy AccessPolicy) error
	LoadString(key, prompt string) (value string, found bool, err error)

	SaveObject(key string, obj interface{}, policy AccessPolicy) error
	LoadObject(key string, out interface{}, prompt string) (found bool, err error)

	HasKey(key string) (bool, error)

	// LoadAllKeys enumerates every record with its plaintext value.
	// Requires presence when any private record exists.
	LoadAllKeys(prompt string) ([]Entry, error)

	// RestoreBundle writes a decrypted backup (record name -> value)
	// as a single restore operation. Restored records are saved under
	// their original policies: secret records private, the rest public.
	RestoreBundle(secrets map[string]string) error

	Remove(key string) error

	Close() error
}

// secretRecord reports whether a record name holds raw key material and
// therefore restores under the private policy.
func secretRecord(name string) bool {
	if name == types.AllWalletsKey || name == types.SelectedWalletKey {
		return false
	}
	if name == types.AddressKey || name == types.SeedMigratedKey {
		return false
	}
	return true
}
