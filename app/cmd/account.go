package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var AccountCmd = &cli.Command{
	Name:  "account",
	Usage: "Manage accounts within a wallet",
	Subcommands: []*cli.Command{
		accountAddCmd,
	},
}

var accountAddCmd = &cli.Command{
	Name:      "add",
	Usage:     "derive one more account for a wallet",
	ArgsUsage: "<wallet-id>",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "index",
			Usage: "derivation index",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("expected one argument: the wallet id")
		}

		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		acct, err := n.Wallets.GenerateAccount(cctx.Context, cctx.Args().First(), cctx.Int("index"))
		if err != nil {
			return err
		}

		fmt.Println(acct.Index, acct.Address)
		return nil
	},
}
