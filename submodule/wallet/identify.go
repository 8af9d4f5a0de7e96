package wallet

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rainbow-me/wallet-core/lib/crypto/hd"
	"github.com/rainbow-me/wallet-core/lib/types"
)

// IdentifyType classifies a secret input by structural inspection:
// 32-byte hex (with or without 0x) is a private key, a valid BIP39
// phrase is a mnemonic, a checksum-valid address is read-only, anything
// else that decodes as hex is treated as a raw seed.
func IdentifyType(input string) (types.WalletType, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", types.ErrUnknownWalletType
	}

	if isHex(strip0x(trimmed)) && len(add0x(trimmed)) == 66 {
		return types.WalletTypePrivateKey, nil
	}
	if hd.ValidMnemonic(trimmed) {
		return types.WalletTypeMnemonic, nil
	}
	if common.IsHexAddress(trimmed) {
		return types.WalletTypeReadOnly, nil
	}
	if isHex(strip0x(trimmed)) {
		return types.WalletTypeSeed, nil
	}
	return "", types.ErrUnknownWalletType
}

// firstAccount is the account at HD index 0, or the account the raw
// private key resolves to.
type firstAccount struct {
	address string
	keyHex  string
}

func deriveFirstAccount(walletType types.WalletType, secret string) (*firstAccount, *hd.Node, error) {
	switch walletType {
	case types.WalletTypePrivateKey:
		key, err := crypto.HexToECDSA(strip0x(secret))
		if err != nil {
			return nil, nil, types.ErrUnknownWalletType
		}
		return &firstAccount{
			address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
			keyHex:  hd.KeyHex(key),
		}, nil, nil

	case types.WalletTypeMnemonic, types.WalletTypeSeed:
		node, err := nodeForSecret(secret)
		if err != nil {
			return nil, nil, err
		}
		key, addr, err := node.Derive(0)
		if err != nil {
			return nil, nil, err
		}
		return &firstAccount{
			address: addr.Hex(),
			keyHex:  hd.KeyHex(key),
		}, node, nil

	case types.WalletTypeReadOnly:
		return &firstAccount{
			address: common.HexToAddress(secret).Hex(),
		}, nil, nil

	default:
		return nil, nil, types.ErrUnknownWalletType
	}
}

// nodeForSecret builds a derivation root from a mnemonic or a raw hex
// seed.
func nodeForSecret(secret string) (*hd.Node, error) {
	if hd.ValidMnemonic(secret) {
		return hd.NewFromMnemonic(secret)
	}
	seed, err := hex.DecodeString(strip0x(secret))
	if err != nil {
		return nil, types.ErrUnknownWalletType
	}
	return hd.NewFromSeed(seed)
}

func isHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func strip0x(s string) string {
	return strings.TrimPrefix(s, "0x")
}

func add0x(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return "0x" + s
}
