// Package node assembles the wallet submodules over a repo: keystore,
// wallet manager, cloud backup codec, rap engine and transaction
// signer. Chain-backed services are only present when a chain endpoint
// could be dialed.
package node

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	logging "github.com/rainbow-me/wallet-core/lib/log"
	"github.com/rainbow-me/wallet-core/lib/repo"
	"github.com/rainbow-me/wallet-core/submodule/backup"
	"github.com/rainbow-me/wallet-core/submodule/connect"
	"github.com/rainbow-me/wallet-core/submodule/keystore"
	"github.com/rainbow-me/wallet-core/submodule/raps"
	"github.com/rainbow-me/wallet-core/submodule/signer"
	"github.com/rainbow-me/wallet-core/submodule/wallet"
)

var logger = logging.Logger("node")

type WalletNode struct {
	repo repo.Repo

	Keystore keystore.Store
	Wallets  *wallet.Manager
	Backups  *backup.Codec
	RapStore *raps.Store

	// nil when the node is offline
	Chain  *connect.Client
	Raps   *raps.Engine
	Signer *signer.Signer
}

type BuilderOpt func(*builder)

type builder struct {
	offline bool
	auth    keystore.Authenticator
}

// Offline skips dialing the chain endpoint; chain-backed services stay
// nil.
func Offline() BuilderOpt {
	return func(b *builder) {
		b.offline = true
	}
}

// WithAuthenticator overrides the device authenticator guarding
// private keystore records.
func WithAuthenticator(auth keystore.Authenticator) BuilderOpt {
	return func(b *builder) {
		b.auth = auth
	}
}

func New(ctx context.Context, rep repo.Repo, password string, opts ...BuilderOpt) (*WalletNode, error) {
	b := &builder{auth: &keystore.DeviceAuthenticator{}}
	for _, opt := range opts {
		opt(b)
	}

	cfg := rep.Config()

	var ksOpts []keystore.Option
	if cfg.Keystore.Light {
		ksOpts = append(ksOpts, keystore.WithLightScrypt())
	}
	ks, err := keystore.NewLocalStore(rep.KeystoreDir(), password, b.auth, ksOpts...)
	if err != nil {
		return nil, xerrors.Errorf("open keystore: %w", err)
	}

	cloud, err := backup.NewDirStore(rep.BackupDir())
	if err != nil {
		return nil, xerrors.Errorf("open backup store: %w", err)
	}

	var codecOpts []backup.Option
	if cfg.Keystore.Light {
		codecOpts = append(codecOpts, backup.WithLightScrypt())
	}

	n := &WalletNode{
		repo:     rep,
		Keystore: ks,
		Backups:  backup.NewCodec(ks, cloud, codecOpts...),
		RapStore: raps.NewStore(rep.RapStore()),
	}

	if b.offline {
		n.Wallets = wallet.NewManager(ks, nil,
			wallet.WithDiscoveryLimit(cfg.Wallet.DiscoveryLimit))
		return n, nil
	}

	chain, err := connect.Dial(ctx, cfg.Chain.Endpoint)
	if err != nil {
		return nil, xerrors.Errorf("dial chain endpoint %s: %w", cfg.Chain.Endpoint, err)
	}
	n.Chain = chain

	n.Wallets = wallet.NewManager(ks, chain,
		wallet.WithDiscoveryLimit(cfg.Wallet.DiscoveryLimit))

	router := common.HexToAddress(cfg.Chain.RouterAddress)
	n.Raps = raps.NewEngine(chain, n.RapStore, n.Wallets, router)
	n.Signer = signer.New(n.Wallets, chain, signer.LogAlerter{})

	if id, err := chain.ChainID(ctx); err == nil {
		logger.Infof("wallet node up, chain id %s", id)
	}

	return n, nil
}

// Stop closes the keystore and the repo.
func (n *WalletNode) Stop(ctx context.Context) {
	if err := n.Keystore.Close(); err != nil {
		fmt.Printf("error closing keystore: %s\n", err)
	}

	if err := n.repo.Close(); err != nil {
		fmt.Printf("error closing repo: %s\n", err)
	}
}
