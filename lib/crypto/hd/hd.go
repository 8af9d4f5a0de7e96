// Package hd derives Ethereum accounts from a recoverable secret along
// the fixed path m/44'/60'/0'/0/index.
package hd

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/xerrors"
)

// Path components of m/44'/60'/0'/0.
const (
	purpose  = 44
	coinType = 60
	account  = 0
	change   = 0
)

// GenerateMnemonic returns a fresh 12-word phrase from 16 bytes of
// entropy.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ValidMnemonic reports whether input is a well-formed BIP39 phrase.
func ValidMnemonic(input string) bool {
	return bip39.IsMnemonicValid(input)
}

// Node is a derivation root fixed at m/44'/60'/0'/0; only the leaf
// index varies per account.
type Node struct {
	change *hdkeychain.ExtendedKey
}

func NewFromMnemonic(mnemonic string) (*Node, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, xerrors.New("invalid mnemonic")
	}
	return NewFromSeed(bip39.NewSeed(mnemonic, ""))
}

func NewFromSeed(seed []byte) (*Node, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, xerrors.Errorf("derive master key: %w", err)
	}
	node := master
	for _, child := range []uint32{
		purpose + hdkeychain.HardenedKeyStart,
		coinType + hdkeychain.HardenedKeyStart,
		account + hdkeychain.HardenedKeyStart,
		change,
	} {
		node, err = node.Derive(child)
		if err != nil {
			return nil, xerrors.Errorf("derive path: %w", err)
		}
	}
	return &Node{change: node}, nil
}

// Derive returns the key pair at the given leaf index.
func (n *Node) Derive(index uint32) (*ecdsa.PrivateKey, common.Address, error) {
	child, err := n.change.Derive(index)
	if err != nil {
		return nil, common.Address{}, xerrors.Errorf("derive index %d: %w", index, err)
	}
	btcKey, err := child.ECPrivKey()
	if err != nil {
		return nil, common.Address{}, err
	}
	key, err := crypto.ToECDSA(btcKey.Serialize())
	if err != nil {
		return nil, common.Address{}, err
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// KeyHex renders a private key the way records store it: 0x-prefixed
// 32-byte hex.
func KeyHex(key *ecdsa.PrivateKey) string {
	return hexutil.Encode(crypto.FromECDSA(key))
}
