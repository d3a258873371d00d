package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/treasury-vault/cli/env"
	"github.com/nspcc-dev/treasury-vault/cli/options"
	"github.com/nspcc-dev/treasury-vault/cli/vault"
	"github.com/urfave/cli/v2"
)

// Version is the application version, set at build time.
var Version = "dev"

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "TreasuryVault\nVersion: %s\nGoVersion: %s\n",
		Version,
		runtime.Version(),
	)
}

// New creates an instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "treasury-vault"
	ctl.Version = Version
	ctl.Usage = "Deploy and operate the TreasuryVault contract"
	ctl.ErrWriter = os.Stdout
	ctl.Flags = options.Global
	ctl.Before = func(ctx *cli.Context) error {
		if err := options.LoadEnvFile(ctx.String(options.EnvFileFlag)); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}

	ctl.Commands = append(ctl.Commands, vault.NewCommands()...)
	ctl.Commands = append(ctl.Commands, env.NewCommands()...)
	return ctl
}
