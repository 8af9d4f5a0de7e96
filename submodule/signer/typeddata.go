package signer

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/xerrors"

	ctypes "github.com/rainbow-me/wallet-core/lib/types"
)

// typedDataProbe detects which protocol generation a payload belongs
// to. Presence of any of these fields means EIP-712 (v4 semantics,
// backward compatible with v3 — no separate v3 path). Absence means the
// legacy v1 field-list form.
type typedDataProbe struct {
	Types       json.RawMessage `json:"types"`
	PrimaryType string          `json:"primaryType"`
	Domain      json.RawMessage `json:"domain"`
}

// legacyField is one entry of a v1 payload.
type legacyField struct {
	Type  string      `json:"type"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// SignTypedData signs a typed-data payload, selecting the protocol
// version by structural inspection of the parsed message.
func (s *Signer) SignTypedData(ctx context.Context, message string) (string, error) {
	key, _, err := s.keys.LoadWallet(ctx)
	if err != nil {
		s.alerter.AuthenticationFailed()
		return "", xerrors.Errorf("load wallet: %w", ctypes.ErrAuthentication)
	}

	raw := []byte(message)

	var probe typedDataProbe
	isObject := json.Unmarshal(raw, &probe) == nil
	if isObject && (probe.Types != nil || probe.PrimaryType != "" || probe.Domain != nil) {
		hash, err := hashTypedDataV4(raw)
		if err != nil {
			s.alerter.TransactionFailed()
			return "", xerrors.Errorf("hash typed data: %w", ctypes.ErrTransactionFailed)
		}
		sig, err := crypto.Sign(hash, key)
		if err != nil {
			s.alerter.TransactionFailed()
			return "", xerrors.Errorf("sign typed data: %w", ctypes.ErrTransactionFailed)
		}
		return hexutil.Encode(withRecoveryOffset(sig)), nil
	}

	var fields []legacyField
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("parse typed data: %w", ctypes.ErrTransactionFailed)
	}
	hash, err := hashTypedDataV1(fields)
	if err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("hash typed data: %w", ctypes.ErrTransactionFailed)
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("sign typed data: %w", ctypes.ErrTransactionFailed)
	}
	return hexutil.Encode(withRecoveryOffset(sig)), nil
}

func hashTypedDataV4(raw []byte) ([]byte, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal(raw, &td); err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// hashTypedDataV1 implements the legacy scheme:
// keccak256(keccak256(schema) || keccak256(values)) where schema is the
// packed "type name" strings and values are solidity-packed.
func hashTypedDataV1(fields []legacyField) ([]byte, error) {
	if len(fields) == 0 {
		return nil, xerrors.New("empty typed data")
	}

	var schema []byte
	var values []byte
	for _, f := range fields {
		if f.Type == "" || f.Name == "" {
			return nil, xerrors.New("typed data field missing type or name")
		}
		schema = append(schema, []byte(f.Type+" "+f.Name)...)
		packed, err := packLegacyValue(f.Type, f.Value)
		if err != nil {
			return nil, err
		}
		values = append(values, packed...)
	}

	return crypto.Keccak256(crypto.Keccak256(schema), crypto.Keccak256(values)), nil
}

func packLegacyValue(fieldType string, value interface{}) ([]byte, error) {
	switch {
	case fieldType == "string":
		s, ok := value.(string)
		if !ok {
			return nil, xerrors.Errorf("string field holds %T", value)
		}
		return []byte(s), nil

	case fieldType == "address":
		s, ok := value.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, xerrors.Errorf("invalid address value %v", value)
		}
		return common.HexToAddress(s).Bytes(), nil

	case fieldType == "bool":
		b, ok := value.(bool)
		if !ok {
			return nil, xerrors.Errorf("bool field holds %T", value)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case fieldType == "bytes":
		s, ok := value.(string)
		if !ok {
			return nil, xerrors.Errorf("bytes field holds %T", value)
		}
		return hexutil.Decode(s)

	case strings.HasPrefix(fieldType, "uint") || strings.HasPrefix(fieldType, "int"):
		bits, err := intBits(fieldType)
		if err != nil {
			return nil, err
		}
		n, err := toBig(value)
		if err != nil {
			return nil, err
		}
		return packInteger(fieldType, n, bits)

	default:
		return nil, xerrors.Errorf("unsupported typed data field type %q", fieldType)
	}
}

// packInteger range-checks the value against the declared width and
// encodes it big-endian; negative signed values use two's complement.
func packInteger(fieldType string, n *big.Int, bits int) ([]byte, error) {
	if strings.HasPrefix(fieldType, "uint") {
		if n.Sign() < 0 || n.BitLen() > bits {
			return nil, xerrors.Errorf("value %s out of range for %s", n, fieldType)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, xerrors.Errorf("value %s out of range for %s", n, fieldType)
		}
		if n.Sign() < 0 {
			n = new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
		}
	}
	buf := make([]byte, bits/8)
	return n.FillBytes(buf), nil
}

func intBits(fieldType string) (int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(fieldType, "uint"), "int")
	if digits == "" {
		return 256, nil
	}
	bits, err := strconv.Atoi(digits)
	if err != nil || bits <= 0 || bits > 256 || bits%8 != 0 {
		return 0, xerrors.Errorf("invalid integer field type %q", fieldType)
	}
	return bits, nil
}

func toBig(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case float64:
		return big.NewInt(int64(v)), nil
	case string:
		if strings.HasPrefix(v, "0x") {
			return hexutil.DecodeBig(v)
		}
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, xerrors.Errorf("invalid integer value %q", v)
		}
		return n, nil
	default:
		return nil, xerrors.Errorf("integer field holds %T", value)
	}
}
