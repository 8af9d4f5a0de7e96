package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Validators hold the list of validation functions for each configuration
// property. Validators must take a key and json string respectively as
// arguments, and must return either an error or nil depending on whether or not
// the given key and value are valid. Validators will only be run if a property
// being set matches the name given in this map.
var Validators = map[string]func(string, string) error{
	"wallet.defaultName": validateLettersAndSpaces,
}

// Config is an in memory representation of the wallet configuration file
type Config struct {
	Wallet   WalletConfig   `json:"wallet"`
	Chain    ChainConfig    `json:"chain"`
	Keystore KeystoreConfig `json:"keystore"`
	Backup   BackupConfig   `json:"backup"`
}

// WalletConfig holds options for account management.
type WalletConfig struct {
	DefaultName string `json:"defaultName"`
	// DiscoveryLimit caps how far account discovery walks the
	// derivation path on import.
	DiscoveryLimit int `json:"discoveryLimit"`
}

func newDefaultWalletConfig() WalletConfig {
	return WalletConfig{
		DefaultName:    "My Wallet",
		DiscoveryLimit: 100,
	}
}

// ChainConfig holds all configuration options related to the chain
// endpoint.
type ChainConfig struct {
	Endpoint string `json:"endpoint"`
	ChainID  int64  `json:"chainId"`
	// RouterAddress is the swap router transactions are sent to.
	RouterAddress string `json:"routerAddress"`
}

func newDefaultChainConfig() ChainConfig {
	return ChainConfig{
		Endpoint:      "http://127.0.0.1:8545",
		ChainID:       1,
		RouterAddress: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
	}
}

// KeystoreConfig holds options for the encrypted secret store.
type KeystoreConfig struct {
	// Light switches scrypt to the reduced-cost parameters. Only
	// meant for tests and throwaway repos.
	Light bool `json:"light"`
}

func newDefaultKeystoreConfig() KeystoreConfig {
	return KeystoreConfig{}
}

// BackupConfig holds options for cloud backup storage.
type BackupConfig struct {
	// Dir is where backup documents are written when the file-backed
	// store is used. Empty means <repo>/backups.
	Dir string `json:"dir"`
}

func newDefaultBackupConfig() BackupConfig {
	return BackupConfig{}
}

// NewDefaultConfig returns a config object with all the fields filled out to
// their default values
func NewDefaultConfig() *Config {
	return &Config{
		Wallet:   newDefaultWalletConfig(),
		Chain:    newDefaultChainConfig(),
		Keystore: newDefaultKeystoreConfig(),
		Backup:   newDefaultBackupConfig(),
	}
}

// WriteFile writes the config to the given filepath.
func (cfg *Config) WriteFile(file string) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close() // nolint: errcheck

	configString, err := json.MarshalIndent(*cfg, "", "\t")
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(f, string(configString))
	return err
}

// ReadFile reads a config file from disk.
func ReadFile(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	cfg := NewDefaultConfig()
	rawConfig, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(rawConfig) == 0 {
		return cfg, nil
	}

	err = json.Unmarshal(rawConfig, &cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Set sets the config sub-struct referenced by `key`, e.g. 'chain.endpoint'
// or 'backup' to the json key value pair encoded in jsonVal.
func (cfg *Config) Set(dottedKey string, jsonString string) error {
	if !json.Valid([]byte(jsonString)) {
		jsonBytes, _ := json.Marshal(jsonString)
		jsonString = string(jsonBytes)
	}

	if err := validate(dottedKey, jsonString); err != nil {
		return err
	}

	keys := strings.Split(dottedKey, ".")
	for i := len(keys) - 1; i >= 0; i-- {
		jsonString = fmt.Sprintf(`{ "%s": %s }`, keys[i], jsonString)
	}

	decoder := json.NewDecoder(strings.NewReader(jsonString))
	decoder.DisallowUnknownFields()

	return decoder.Decode(&cfg)
}

// Get gets the config sub-struct referenced by `key`, e.g. 'chain.endpoint'
func (cfg *Config) Get(key string) (interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(cfg))
	keyTags := strings.Split(key, ".")
OUTER:
	for j, keyTag := range keyTags {
		if v.Type().Kind() == reflect.Struct {
			for i := 0; i < v.NumField(); i++ {
				jsonTag := strings.Split(
					v.Type().Field(i).Tag.Get("json"),
					",")[0]
				if jsonTag == keyTag {
					v = v.Field(i)
					if j == len(keyTags)-1 {
						return v.Interface(), nil
					}
					v = reflect.Indirect(v) // only attempt one dereference
					continue OUTER
				}
			}
		}

		return nil, fmt.Errorf("key: %s invalid for config", key)
	}
	// Cannot get here as len(strings.Split(s, sep)) >= 1 with non-empty sep
	return nil, fmt.Errorf("empty key is invalid")
}

// validate runs validations on a given key and json string. validate uses the
// validators map defined at the top of this file to determine which validations
// to use for each key.
func validate(dottedKey string, jsonString string) error {
	var obj interface{}
	if err := json.Unmarshal([]byte(jsonString), &obj); err != nil {
		return err
	}
	// recursively validate sub-keys by partially unmarshalling
	if reflect.ValueOf(obj).Kind() == reflect.Map {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(jsonString), &obj); err != nil {
			return err
		}
		for key := range obj {
			if err := validate(dottedKey+"."+key, string(obj[key])); err != nil {
				return err
			}
		}
		return nil
	}

	if validationFunc, present := Validators[dottedKey]; present {
		return validationFunc(dottedKey, jsonString)
	}

	return nil
}

// validateLettersAndSpaces validates that a given value contains only letters
// and spaces. If it does not, an error is returned using the given key for
// the message.
func validateLettersAndSpaces(key string, value string) error {
	if match, _ := regexp.MatchString(`^"[a-zA-Z ]+"$`, value); !match {
		return errors.Errorf(`"%s" must only contain letters and spaces`, key)
	}
	return nil
}
