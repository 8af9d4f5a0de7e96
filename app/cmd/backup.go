package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/lib/types"
)

var BackupCmd = &cli.Command{
	Name:  "backup",
	Usage: "Back up wallets to encrypted cloud files",
	Subcommands: []*cli.Command{
		backupCreateCmd,
		backupAddCmd,
		backupRestoreCmd,
	},
}

var flagBackupPassword = &cli.StringFlag{
	Name:     "backup-password",
	Usage:    "password protecting the backup file",
	Required: true,
}

var backupCreateCmd = &cli.Command{
	Name:      "create",
	Usage:     "back up one wallet into a new file",
	ArgsUsage: "<wallet-id>",
	Flags:     []cli.Flag{flagBackupPassword},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("expected one argument: the wallet id")
		}

		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		set, err := n.Wallets.GetAllWallets()
		if err != nil {
			return err
		}
		w, ok := set.Wallets[cctx.Args().First()]
		if !ok {
			return xerrors.Errorf("wallet %s not found", cctx.Args().First())
		}

		filename, err := n.Backups.Backup(cctx.Context, cctx.String("backup-password"), w)
		if err != nil {
			return err
		}

		if err := n.Wallets.SetWalletBackedUp(w.ID, types.BackupTypeCloud, filename); err != nil {
			return err
		}

		fmt.Println(filename)
		return nil
	},
}

var backupAddCmd = &cli.Command{
	Name:      "add",
	Usage:     "merge one wallet into an existing backup file",
	ArgsUsage: "<wallet-id> <filename>",
	Flags:     []cli.Flag{flagBackupPassword},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return fmt.Errorf("expected two arguments: wallet id and backup filename")
		}

		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		set, err := n.Wallets.GetAllWallets()
		if err != nil {
			return err
		}
		w, ok := set.Wallets[cctx.Args().First()]
		if !ok {
			return xerrors.Errorf("wallet %s not found", cctx.Args().First())
		}

		filename, err := n.Backups.AddWalletToExistingBackup(cctx.Context,
			cctx.String("backup-password"), w, cctx.Args().Get(1))
		if err != nil {
			return err
		}

		if err := n.Wallets.SetWalletBackedUp(w.ID, types.BackupTypeCloud, filename); err != nil {
			return err
		}

		fmt.Println(filename)
		return nil
	},
}

var backupRestoreCmd = &cli.Command{
	Name:  "restore",
	Usage: "restore wallets and secrets from a backup",
	Flags: []cli.Flag{
		flagBackupPassword,
		&cli.StringFlag{
			Name:  "snapshot",
			Usage: "path to a wallet-set snapshot json; defaults to the stored set",
		},
	},
	Action: func(cctx *cli.Context) error {
		n, rep, err := openNode(cctx, true)
		if err != nil {
			return err
		}
		defer rep.Close()

		var snapshot *types.WalletSet
		if file := cctx.String("snapshot"); file != "" {
			data, err := ioutil.ReadFile(file)
			if err != nil {
				return err
			}
			snapshot = new(types.WalletSet)
			if err := json.Unmarshal(data, snapshot); err != nil {
				return xerrors.Errorf("parse snapshot: %w", err)
			}
		} else {
			snapshot, err = n.Wallets.GetAllWallets()
			if err != nil {
				return err
			}
		}

		ok, err := n.Backups.Restore(cctx.Context, cctx.String("backup-password"), snapshot)
		if err != nil {
			return err
		}

		fmt.Println("restored:", ok)
		return nil
	},
}
