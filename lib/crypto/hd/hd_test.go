package hd

import (
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveKnownVector(t *testing.T) {
	node, err := NewFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}

	// Addresses for m/44'/60'/0'/0/{0,1} of the all-abandon phrase.
	want := []string{
		"0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		"0x6Fac4D18c912343BF86fa7049364Dd4E424Ab9C0",
	}
	for i, expected := range want {
		_, addr, err := node.Derive(uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		if addr.Hex() != expected {
			t.Fatalf("index %d: got %s, want %s", i, addr.Hex(), expected)
		}
	}
}

func TestDeriveDeterministic(t *testing.T) {
	a, err := NewFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}

	ka, _, err := a.Derive(7)
	if err != nil {
		t.Fatal(err)
	}
	kb, _, err := b.Derive(7)
	if err != nil {
		t.Fatal(err)
	}
	if KeyHex(ka) != KeyHex(kb) {
		t.Fatal("same mnemonic and index derived different keys")
	}
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.Fields(m)) != 12 {
		t.Fatalf("expected 12 words, got %q", m)
	}
	if !ValidMnemonic(m) {
		t.Fatalf("generated phrase fails validation: %q", m)
	}
}

func TestValidMnemonic(t *testing.T) {
	if ValidMnemonic("definitely not a phrase") {
		t.Fatal("accepted garbage")
	}
	if !ValidMnemonic(testMnemonic) {
		t.Fatal("rejected a valid phrase")
	}
}

func TestKeyHex(t *testing.T) {
	node, err := NewFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatal(err)
	}
	key, _, err := node.Derive(0)
	if err != nil {
		t.Fatal(err)
	}
	hex := KeyHex(key)
	if !strings.HasPrefix(hex, "0x") || len(hex) != 66 {
		t.Fatalf("unexpected key encoding %q", hex)
	}
}
