package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rainbow-me/wallet-core/app/cmd"
	"github.com/rainbow-me/wallet-core/build"
)

func main() {
	app := &cli.App{
		Name:                 "wallet",
		Usage:                "Rainbow wallet core node",
		Version:              build.UserVersion(),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    cmd.FlagNodeRepo,
				EnvVars: []string{"RAINBOW_PATH"},
				Value:   "~/.rainbow",
				Usage:   "Specify wallet repo path.",
			},
			&cli.StringFlag{
				Name:    cmd.FlagPassword,
				EnvVars: []string{"RAINBOW_PASSWORD"},
				Usage:   "Device password protecting the keystore.",
			},
		},

		Commands: cmd.CommonCmd,
	}

	app.Setup()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err) // nolint:errcheck
		os.Exit(1)
	}
}
