// Package passphrase implements password-based encryption of secret
// payloads: scrypt key derivation, AES-128-CTR, and a Keccak256 MAC over
// the derived key tail and the ciphertext. The on-disk form is a
// versioned JSON envelope.
package passphrase

import (
	"crypto/aes"
	"crypto/cipher"
	cr "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/xerrors"
)

const (
	StandardScryptN = 1 << 18
	StandardScryptP = 1

	// LightScryptN/P are cheap parameters for tests.
	LightScryptN = 1 << 12
	LightScryptP = 6

	scryptR     = 8
	scryptDKLen = 32

	keyHeaderKDF    = "scrypt"
	cipherName      = "aes-128-ctr"
	envelopeVersion = 1
)

// ErrDecrypt is returned when the MAC check fails, i.e. the password is
// wrong or the envelope was tampered with.
var ErrDecrypt = errors.New("could not decrypt data with given passphrase")

type cipherParamsJSON struct {
	IV string `json:"iv"`
}

type cryptoJSON struct {
	Cipher       string                 `json:"cipher"`
	CipherText   string                 `json:"ciphertext"`
	CipherParams cipherParamsJSON       `json:"cipherparams"`
	KDF          string                 `json:"kdf"`
	KDFParams    map[string]interface{} `json:"kdfparams"`
	MAC          string                 `json:"mac"`
}

type envelopeJSON struct {
	Crypto  cryptoJSON `json:"crypto"`
	Version int        `json:"version"`
}

// Encrypt seals data under password using the default scrypt parameters.
func Encrypt(data []byte, password string) ([]byte, error) {
	return EncryptWithParams(data, password, StandardScryptN, StandardScryptP)
}

// EncryptWithParams seals data under password into a JSON envelope.
func EncryptWithParams(data []byte, password string, scryptN, scryptP int) ([]byte, error) {
	salt := getEntropy(32)
	derivedKey, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return nil, err
	}
	encryptKey := derivedKey[:16]

	iv := getEntropy(aes.BlockSize)
	cipherText, err := aesCTRXOR(encryptKey, data, iv)
	if err != nil {
		return nil, err
	}
	mac := crypto.Keccak256(derivedKey[16:32], cipherText)

	kdfParams := map[string]interface{}{
		"n":     scryptN,
		"r":     scryptR,
		"p":     scryptP,
		"dklen": scryptDKLen,
		"salt":  hex.EncodeToString(salt),
	}

	env := envelopeJSON{
		Crypto: cryptoJSON{
			Cipher:       cipherName,
			CipherText:   hex.EncodeToString(cipherText),
			CipherParams: cipherParamsJSON{IV: hex.EncodeToString(iv)},
			KDF:          keyHeaderKDF,
			KDFParams:    kdfParams,
			MAC:          hex.EncodeToString(mac),
		},
		Version: envelopeVersion,
	}
	return json.Marshal(env)
}

// Decrypt opens a JSON envelope produced by Encrypt. A wrong password
// yields ErrDecrypt, never garbage plaintext.
func Decrypt(blob []byte, password string) ([]byte, error) {
	env := new(envelopeJSON)
	if err := json.Unmarshal(blob, env); err != nil {
		return nil, xerrors.Errorf("decode envelope: %w", err)
	}
	if env.Crypto.Cipher != cipherName {
		return nil, xerrors.Errorf("cipher not supported: %s", env.Crypto.Cipher)
	}
	if env.Crypto.KDF != keyHeaderKDF {
		return nil, xerrors.Errorf("kdf not supported: %s", env.Crypto.KDF)
	}

	mac, err := hex.DecodeString(env.Crypto.MAC)
	if err != nil {
		return nil, err
	}
	iv, err := hex.DecodeString(env.Crypto.CipherParams.IV)
	if err != nil {
		return nil, err
	}
	cipherText, err := hex.DecodeString(env.Crypto.CipherText)
	if err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(env.Crypto.KDFParams["salt"].(string))
	if err != nil {
		return nil, err
	}

	n := intParam(env.Crypto.KDFParams, "n", StandardScryptN)
	r := intParam(env.Crypto.KDFParams, "r", scryptR)
	p := intParam(env.Crypto.KDFParams, "p", StandardScryptP)
	dkLen := intParam(env.Crypto.KDFParams, "dklen", scryptDKLen)

	derivedKey, err := scrypt.Key([]byte(password), salt, n, r, p, dkLen)
	if err != nil {
		return nil, err
	}

	calculatedMAC := crypto.Keccak256(derivedKey[16:32], cipherText)
	if !bytesEqual(calculatedMAC, mac) {
		return nil, ErrDecrypt
	}

	return aesCTRXOR(derivedKey[:16], cipherText, iv)
}

func aesCTRXOR(key, inText, iv []byte) ([]byte, error) {
	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(aesBlock, iv)
	outText := make([]byte, len(inText))
	stream.XORKeyStream(outText, inText)
	return outText, nil
}

func getEntropy(n int) []byte {
	buf := make([]byte, n)
	if _, err := io.ReadFull(cr.Reader, buf); err != nil {
		panic("reading from crypto/rand failed: " + err.Error())
	}
	return buf
}

func intParam(params map[string]interface{}, name string, def int) int {
	v, ok := params[name]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
