package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var WalletCmd = &cli.Command{
	Name:  "wallet",
	Usage: "Interact with wallets",
	Subcommands: []*cli.Command{
		walletNewCmd,
		walletImportCmd,
		walletListCmd,
		walletStatusCmd,
		walletMigrateCmd,
	},
}

var walletNewCmd = &cli.Command{
	Name:  "new",
	Usage: "create a wallet with a fresh seed phrase",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "wallet display name",
		},
	},
	Action: func(cctx *cli.Context) error {
		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		res, err := n.Wallets.Init(cctx.Context, "", 0, cctx.String("name"))
		if err != nil {
			return err
		}

		fmt.Println(res.WalletAddress)
		return nil
	},
}

var walletImportCmd = &cli.Command{
	Name:      "import",
	Usage:     "import a seed phrase, private key or address",
	ArgsUsage: "<secret>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "wallet display name",
		},
		&cli.BoolFlag{
			Name:  "offline",
			Usage: "skip on-chain account discovery",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("expected one argument: the secret to import")
		}

		n, rep, err := openNode(cctx, cctx.Bool("offline"))
		if err != nil {
			return err
		}
		defer rep.Close()

		w, err := n.Wallets.CreateWallet(cctx.Context, cctx.Args().First(), 0, cctx.String("name"))
		if err != nil {
			return err
		}

		for _, acct := range w.Addresses {
			fmt.Println(acct.Index, acct.Address)
		}
		return nil
	},
}

var walletListCmd = &cli.Command{
	Name:  "list",
	Usage: "list all wallets and their accounts",
	Action: func(cctx *cli.Context) error {
		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		set, err := n.Wallets.GetAllWallets()
		if err != nil {
			return err
		}

		for id, w := range set.Wallets {
			fmt.Printf("%s %q type=%s primary=%v backedUp=%v\n", id, w.Name, w.Type, w.Primary, w.BackedUp)
			for _, acct := range w.Addresses {
				fmt.Printf("  %d %s\n", acct.Index, acct.Address)
			}
		}
		return nil
	},
}

var walletStatusCmd = &cli.Command{
	Name:  "status",
	Usage: "show keychain integrity and the selected wallet",
	Action: func(cctx *cli.Context) error {
		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		healthy, err := n.Wallets.CheckKeychainIntegrity()
		if err != nil {
			return err
		}
		fmt.Println("keychain healthy:", healthy)

		sel, err := n.Wallets.GetSelectedWallet()
		if err != nil {
			return err
		}
		if sel == nil || sel.Wallet == nil {
			fmt.Println("no wallet selected")
			return nil
		}
		fmt.Printf("selected: %s %q\n", sel.Wallet.ID, sel.Wallet.Name)
		return nil
	},
}

var walletMigrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "migrate legacy single-secret storage to the multi-wallet schema",
	Action: func(cctx *cli.Context) error {
		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		res, err := n.Wallets.MigrateSecrets(cctx.Context)
		if err != nil {
			return err
		}

		fmt.Println("migrated secret of type", res.Type)
		return nil
	},
}
