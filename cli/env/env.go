// Package env contains a command for checking the environment used by other
// commands.
package env

import (
	"fmt"
	"os"

	"github.com/nspcc-dev/treasury-vault/cli/options"
	"github.com/urfave/cli/v2"
)

// NewCommands returns 'check-env' command.
func NewCommands() []*cli.Command {
	return []*cli.Command{{
		Name:      "check-env",
		Usage:     "Check that the RPC endpoint and signing key are configured",
		UsageText: "treasury-vault check-env [--strict]",
		Description: `Reports whether ` + options.EnvRPCEndpoint + ` and ` + options.EnvPrivateKey + `
   are set (either in the environment or in the dotenv file) and the length of
   the key. The key itself is never printed.`,
		Action: checkEnv,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail if some variable is missing",
			},
		},
	}}
}

func checkEnv(ctx *cli.Context) error {
	var (
		endpoint = os.Getenv(options.EnvRPCEndpoint)
		key      = os.Getenv(options.EnvPrivateKey)
	)
	fmt.Fprintln(ctx.App.Writer, "env ok:", endpoint != "", key != "")
	fmt.Fprintln(ctx.App.Writer, "pk length:", len(key))
	if ctx.Bool("strict") && (endpoint == "" || key == "") {
		return cli.Exit(fmt.Errorf("%s and %s must be set", options.EnvRPCEndpoint, options.EnvPrivateKey), 1)
	}
	return nil
}
