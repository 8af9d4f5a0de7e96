package passphrase

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	data := []byte("witch collapse practice feed shame open despair creek road again ice least")

	blob, err := EncryptWithParams(data, "pass123", LightScryptN, LightScryptP)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decrypt(blob, "pass123")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptWithParams([]byte("secret"), "right", LightScryptN, LightScryptP)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(blob, "wrong")
	if err != ErrDecrypt {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptTampered(t *testing.T) {
	blob, err := EncryptWithParams([]byte("secret"), "pass", LightScryptN, LightScryptP)
	if err != nil {
		t.Fatal(err)
	}

	env := make(map[string]interface{})
	if err := json.Unmarshal(blob, &env); err != nil {
		t.Fatal(err)
	}
	cr := env["crypto"].(map[string]interface{})
	ct := cr["ciphertext"].(string)
	// flip one hex digit
	if ct[0] == '0' {
		cr["ciphertext"] = "1" + ct[1:]
	} else {
		cr["ciphertext"] = "0" + ct[1:]
	}
	tampered, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(tampered, "pass")
	if err != ErrDecrypt {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestEnvelopeShape(t *testing.T) {
	blob, err := EncryptWithParams([]byte("x"), "p", LightScryptN, LightScryptP)
	if err != nil {
		t.Fatal(err)
	}

	env := new(envelopeJSON)
	if err := json.Unmarshal(blob, env); err != nil {
		t.Fatal(err)
	}
	if env.Version != envelopeVersion {
		t.Fatalf("version %d", env.Version)
	}
	if env.Crypto.Cipher != "aes-128-ctr" || env.Crypto.KDF != "scrypt" {
		t.Fatalf("unexpected envelope %+v", env.Crypto)
	}
}
