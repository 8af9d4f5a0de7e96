package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rainbow-me/wallet-core/submodule/signer"
)

var SendCmd = &cli.Command{
	Name:      "send",
	Usage:     "Sign and broadcast a transaction from the selected wallet",
	ArgsUsage: "<to> <value-wei>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "data",
			Usage: "0x-prefixed calldata",
		},
		&cli.BoolFlag{
			Name:  "sign-only",
			Usage: "print the signed raw transaction instead of broadcasting",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return fmt.Errorf("expected two arguments: recipient and value")
		}

		n, rep, err := openNode(cctx, false)
		if err != nil {
			return err
		}
		defer rep.Close()

		to := common.HexToAddress(cctx.Args().Get(0))
		value, ok := new(big.Int).SetString(cctx.Args().Get(1), 10)
		if !ok {
			return xerrors.Errorf("bad value %q", cctx.Args().Get(1))
		}

		req := signer.TxRequest{To: &to, Value: value}
		if s := cctx.String("data"); s != "" {
			req.Data, err = hexutil.Decode(s)
			if err != nil {
				return xerrors.Errorf("bad calldata: %w", err)
			}
		}

		var out string
		if cctx.Bool("sign-only") {
			out, err = n.Signer.SignTransaction(cctx.Context, req)
		} else {
			out, err = n.Signer.SendTransaction(cctx.Context, req)
		}
		if err != nil {
			return err
		}

		fmt.Println(out)
		return nil
	},
}
