package cmd

import (
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	logging "github.com/rainbow-me/wallet-core/lib/log"
	"github.com/rainbow-me/wallet-core/lib/repo"
	"github.com/rainbow-me/wallet-core/submodule/node"
)

var logger = logging.Logger("cmd")

const (
	FlagNodeRepo = "repo"
	FlagPassword = "password"
)

var CommonCmd []*cli.Command

func init() {
	CommonCmd = []*cli.Command{
		InitCmd,
		WalletCmd,
		AccountCmd,
		BackupCmd,
		SwapCmd,
		SendCmd,
		ConfigCmd,
	}
}

func openRepo(cctx *cli.Context) (repo.Repo, error) {
	repoDir := cctx.String(FlagNodeRepo)

	exist, err := repo.Exists(repoDir)
	if err != nil {
		return nil, err
	}
	if !exist {
		return nil, xerrors.Errorf("no repo at '%s'; run init first", repoDir)
	}

	return repo.NewFSRepo(repoDir, nil)
}

// openNode builds a wallet node over the repo. Chain-backed services
// are skipped when offline is set.
func openNode(cctx *cli.Context, offline bool) (*node.WalletNode, repo.Repo, error) {
	rep, err := openRepo(cctx)
	if err != nil {
		return nil, nil, err
	}

	var opts []node.BuilderOpt
	if offline {
		opts = append(opts, node.Offline())
	}

	n, err := node.New(cctx.Context, rep, cctx.String(FlagPassword), opts...)
	if err != nil {
		_ = rep.Close()
		return nil, nil, err
	}

	return n, rep, nil
}
