package cmd

import (
	"fmt"
	"math/big"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/submodule/raps"
)

var SwapCmd = &cli.Command{
	Name:      "swap",
	Usage:     "Swap one asset for another, approving the router first when needed",
	ArgsUsage: "<input-asset> <output-asset>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "input amount in wei",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "min-output",
			Usage: "minimum acceptable output amount in wei",
		},
		&cli.StringFlag{
			Name:  "gas-price",
			Usage: "gas price in wei for the swap leg; normal tier when unset",
		},
		&cli.BoolFlag{
			Name:  "estimate",
			Usage: "print the combined gas estimate and exit",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return fmt.Errorf("expected two arguments: input and output asset")
		}

		n, rep, err := openNode(cctx, false)
		if err != nil {
			return err
		}
		defer rep.Close()

		sel, err := n.Wallets.GetSelectedWallet()
		if err != nil {
			return err
		}
		if sel == nil || sel.Wallet == nil || len(sel.Wallet.Addresses) == 0 {
			return xerrors.New("no wallet selected")
		}

		amount, ok := new(big.Int).SetString(cctx.String("amount"), 10)
		if !ok {
			return xerrors.Errorf("bad amount %q", cctx.String("amount"))
		}

		req := raps.SwapRequest{
			AccountAddress:     sel.Wallet.Addresses[0].Address,
			InputAsset:         cctx.Args().Get(0),
			OutputAsset:        cctx.Args().Get(1),
			InputAmount:        amount,
			InputAsExactAmount: true,
		}
		if s := cctx.String("min-output"); s != "" {
			req.OutputAmount, ok = new(big.Int).SetString(s, 10)
			if !ok {
				return xerrors.Errorf("bad min-output %q", s)
			}
		}
		if s := cctx.String("gas-price"); s != "" {
			req.SelectedGasPrice, ok = new(big.Int).SetString(s, 10)
			if !ok {
				return xerrors.Errorf("bad gas-price %q", s)
			}
		}

		if cctx.Bool("estimate") {
			gas, err := n.Raps.EstimateUnlockAndSwap(cctx.Context, req)
			if err != nil {
				return err
			}
			fmt.Println(gas)
			return nil
		}

		rap, err := n.Raps.NewUnlockAndSwapRap(cctx.Context, req, func() {
			fmt.Println("swap submitted")
		})
		if err != nil {
			return err
		}

		if err := n.Raps.Run(cctx.Context, rap); err != nil {
			return err
		}

		for _, action := range rap.Actions {
			fmt.Printf("%s %s\n", action.Type, action.Transaction.Hash)
		}
		return nil
	},
}
