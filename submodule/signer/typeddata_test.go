package signer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	ctypes "github.com/rainbow-me/wallet-core/lib/types"
)

const typedDataV4 = `{
	"types": {
		"EIP712Domain": [
			{"name": "name", "type": "string"},
			{"name": "version", "type": "string"},
			{"name": "chainId", "type": "uint256"}
		],
		"Message": [
			{"name": "contents", "type": "string"}
		]
	},
	"primaryType": "Message",
	"domain": {"name": "Rainbow", "version": "1", "chainId": 1},
	"message": {"contents": "hello"}
}`

const typedDataV1 = `[
	{"type": "string", "name": "message", "value": "hi"},
	{"type": "uint32", "name": "value", "value": 42}
]`

func TestSignTypedDataV4(t *testing.T) {
	s, loader, _, _ := newTestSigner(t)

	out, err := s.SignTypedData(context.Background(), typedDataV4)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := hexutil.Decode(out)
	if err != nil {
		t.Fatal(err)
	}

	hash, err := hashTypedDataV4([]byte(typedDataV4))
	if err != nil {
		t.Fatal(err)
	}
	sig[64] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatal(err)
	}
	if crypto.PubkeyToAddress(*pub) != loader.addr {
		t.Fatal("signature does not recover to the wallet address")
	}
}

func TestSignTypedDataV1(t *testing.T) {
	s, loader, _, _ := newTestSigner(t)

	out, err := s.SignTypedData(context.Background(), typedDataV1)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := hexutil.Decode(out)
	if err != nil {
		t.Fatal(err)
	}

	var fields []legacyField
	fields = append(fields,
		legacyField{Type: "string", Name: "message", Value: "hi"},
		legacyField{Type: "uint32", Name: "value", Value: float64(42)},
	)
	hash, err := hashTypedDataV1(fields)
	if err != nil {
		t.Fatal(err)
	}
	sig[64] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatal(err)
	}
	if crypto.PubkeyToAddress(*pub) != loader.addr {
		t.Fatal("signature does not recover to the wallet address")
	}
}

func TestSignTypedDataInvalidPayload(t *testing.T) {
	s, _, _, alerter := newTestSigner(t)

	if _, err := s.SignTypedData(context.Background(), "not json"); !errors.Is(err, ctypes.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
	if _, err := s.SignTypedData(context.Background(), "[]"); !errors.Is(err, ctypes.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
	if alerter.tx != 2 {
		t.Fatalf("transaction alert fired %d times", alerter.tx)
	}
}

func TestSignTypedDataIntegerOverflow(t *testing.T) {
	s, _, _, alerter := newTestSigner(t)

	// a value wider than its declared type must come back as an error,
	// never crash the signer
	payload := `[{"type":"uint8","name":"x","value":300}]`
	if _, err := s.SignTypedData(context.Background(), payload); !errors.Is(err, ctypes.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
	if alerter.tx != 1 {
		t.Fatalf("transaction alert fired %d times", alerter.tx)
	}
}

func TestPackIntegerEncoding(t *testing.T) {
	got, err := packInteger("int8", big.NewInt(-1), 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0xff {
		t.Fatalf("int8 -1 packed as %x", got)
	}

	got, err = packInteger("int16", big.NewInt(-2), 16)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0xff || got[1] != 0xfe {
		t.Fatalf("int16 -2 packed as %x", got)
	}

	got, err = packInteger("uint8", big.NewInt(255), 8)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0xff {
		t.Fatalf("uint8 255 packed as %x", got)
	}

	if _, err := packInteger("uint8", big.NewInt(256), 8); err == nil {
		t.Fatal("uint8 256 must overflow")
	}
	if _, err := packInteger("uint8", big.NewInt(-1), 8); err == nil {
		t.Fatal("negative uint must error")
	}
	if _, err := packInteger("int8", big.NewInt(128), 8); err == nil {
		t.Fatal("int8 128 must overflow")
	}
	if _, err := packInteger("int8", big.NewInt(-129), 8); err == nil {
		t.Fatal("int8 -129 must overflow")
	}
	if _, err := packInteger("int8", big.NewInt(-128), 8); err != nil {
		t.Fatalf("int8 -128 is in range: %v", err)
	}
}

func TestHashTypedDataV1Values(t *testing.T) {
	// field packing: string, address, bool, bytes, ints
	fields := []legacyField{
		{Type: "string", Name: "m", Value: "x"},
		{Type: "address", Name: "a", Value: "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"},
		{Type: "bool", Name: "b", Value: true},
		{Type: "bytes", Name: "d", Value: "0x01"},
		{Type: "uint256", Name: "n", Value: "1000000000000000000"},
	}
	hash, err := hashTypedDataV1(fields)
	if err != nil {
		t.Fatal(err)
	}
	if len(hash) != 32 {
		t.Fatalf("hash length %d", len(hash))
	}

	if _, err := hashTypedDataV1([]legacyField{{Type: "tuple", Name: "x", Value: "y"}}); err == nil {
		t.Fatal("unsupported type must error")
	}
	if _, err := hashTypedDataV1([]legacyField{{Type: "uint7", Name: "x", Value: float64(1)}}); err == nil {
		t.Fatal("invalid bit width must error")
	}
}
