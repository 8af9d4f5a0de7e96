package cmd

import (
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/config"
	"github.com/rainbow-me/wallet-core/lib/repo"
)

var InitCmd = &cli.Command{
	Name:  "init",
	Usage: "Initialize a wallet repo",
	Action: func(cctx *cli.Context) error {
		logger.Info("Checking if repo exists")

		repoDir := cctx.String(FlagNodeRepo)

		exist, err := repo.Exists(repoDir)
		if err != nil {
			return err
		}
		if exist {
			return xerrors.Errorf("repo at '%s' is already initialized", repoDir)
		}

		logger.Infof("Initializing repo at '%s'", repoDir)

		rep, err := repo.NewFSRepo(repoDir, config.NewDefaultConfig())
		if err != nil {
			return err
		}

		return rep.Close()
	},
}
