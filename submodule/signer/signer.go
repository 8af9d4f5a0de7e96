// Package signer loads the active wallet's key material and produces
// signed transactions and messages. Failures split into two user-facing
// classes: key loading failed (re-authenticate) versus the cryptographic
// operation failed (generic transaction alert). Either way the caller
// gets an error and no partial result.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"

	logging "github.com/rainbow-me/wallet-core/lib/log"
	ctypes "github.com/rainbow-me/wallet-core/lib/types"
	"github.com/rainbow-me/wallet-core/submodule/connect"
	"github.com/rainbow-me/wallet-core/submodule/raps"
)

var logger = logging.Logger("signer")

// Alerter surfaces user-facing failure alerts. The two paths are
// deliberately distinct: authentication failures prompt re-auth,
// transaction failures show a generic alert.
type Alerter interface {
	AuthenticationFailed()
	TransactionFailed()
}

// LogAlerter logs alerts instead of displaying them.
type LogAlerter struct{}

func (LogAlerter) AuthenticationFailed() { logger.Warn("alert: authentication failed") }
func (LogAlerter) TransactionFailed()    { logger.Warn("alert: transaction failed") }

// TxRequest describes one transaction to sign or send. Nonce nil means
// "fetch the pending nonce".
type TxRequest struct {
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
}

type Signer struct {
	keys    raps.KeyLoader
	chain   connect.Chain
	alerter Alerter
}

func New(keys raps.KeyLoader, chain connect.Chain, alerter Alerter) *Signer {
	if alerter == nil {
		alerter = LogAlerter{}
	}
	return &Signer{keys: keys, chain: chain, alerter: alerter}
}

// SendTransaction signs and broadcasts, returning the transaction hash.
func (s *Signer) SendTransaction(ctx context.Context, req TxRequest) (string, error) {
	key, from, err := s.keys.LoadWallet(ctx)
	if err != nil {
		s.alerter.AuthenticationFailed()
		return "", xerrors.Errorf("load wallet: %w", ctypes.ErrAuthentication)
	}

	tx, err := s.buildAndSign(ctx, key, from, req)
	if err != nil {
		s.alerter.TransactionFailed()
		return "", err
	}
	if err := s.chain.SendTransaction(ctx, tx); err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("broadcast: %w", ctypes.ErrTransactionFailed)
	}
	return tx.Hash().Hex(), nil
}

// SignTransaction signs without broadcasting and returns the raw RLP
// encoding.
func (s *Signer) SignTransaction(ctx context.Context, req TxRequest) (string, error) {
	key, from, err := s.keys.LoadWallet(ctx)
	if err != nil {
		s.alerter.AuthenticationFailed()
		return "", xerrors.Errorf("load wallet: %w", ctypes.ErrAuthentication)
	}

	tx, err := s.buildAndSign(ctx, key, from, req)
	if err != nil {
		s.alerter.TransactionFailed()
		return "", err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("encode transaction: %w", ctypes.ErrTransactionFailed)
	}
	return hexutil.Encode(raw), nil
}

// SignMessage signs a 32-byte digest directly, no prefixing.
func (s *Signer) SignMessage(ctx context.Context, digest []byte) (string, error) {
	key, _, err := s.keys.LoadWallet(ctx)
	if err != nil {
		s.alerter.AuthenticationFailed()
		return "", xerrors.Errorf("load wallet: %w", ctypes.ErrAuthentication)
	}
	if len(digest) != 32 {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("message must be a 32-byte digest: %w", ctypes.ErrTransactionFailed)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("sign digest: %w", ctypes.ErrTransactionFailed)
	}
	return hexutil.Encode(withRecoveryOffset(sig)), nil
}

// SignPersonalMessage signs with the EIP-191 personal prefix. Hex input
// is decoded to bytes first; anything else signs as UTF-8.
func (s *Signer) SignPersonalMessage(ctx context.Context, message string) (string, error) {
	key, _, err := s.keys.LoadWallet(ctx)
	if err != nil {
		s.alerter.AuthenticationFailed()
		return "", xerrors.Errorf("load wallet: %w", ctypes.ErrAuthentication)
	}

	data := []byte(message)
	if decoded, err := hexutil.Decode(message); err == nil {
		data = decoded
	}
	sig, err := crypto.Sign(personalHash(data), key)
	if err != nil {
		s.alerter.TransactionFailed()
		return "", xerrors.Errorf("sign message: %w", ctypes.ErrTransactionFailed)
	}
	return hexutil.Encode(withRecoveryOffset(sig)), nil
}

func (s *Signer) buildAndSign(ctx context.Context, key *ecdsa.PrivateKey, from common.Address, req TxRequest) (*types.Transaction, error) {
	nonce := uint64(0)
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		n, err := s.chain.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, xerrors.Errorf("fetch nonce: %w", ctypes.ErrTransactionFailed)
		}
		nonce = n
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		p, err := s.chain.GasPrice(ctx, connect.GasNormal)
		if err != nil {
			return nil, xerrors.Errorf("fetch gas price: %w", ctypes.ErrTransactionFailed)
		}
		gasPrice = p
	}
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = connect.BasicTxGas
	}
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       req.To,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     req.Data,
	})

	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		return nil, xerrors.Errorf("fetch chain id: %w", ctypes.ErrTransactionFailed)
	}
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, xerrors.Errorf("sign transaction: %w", ctypes.ErrTransactionFailed)
	}
	return signed, nil
}

// personalHash is the EIP-191 prefixed Keccak256.
func personalHash(data []byte) []byte {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256([]byte(msg))
}

// withRecoveryOffset converts the recovery id to the legacy 27/28 form
// wallets expect.
func withRecoveryOffset(sig []byte) []byte {
	out := make([]byte, len(sig))
	copy(out, sig)
	if len(out) == 65 && out[64] < 27 {
		out[64] += 27
	}
	return out
}
