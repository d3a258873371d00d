/*
Package vault contains CLI commands working with the TreasuryVault contract.
*/
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/treasury-vault/cli/options"
	"github.com/nspcc-dev/treasury-vault/rpc/treasury"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	errNoNEFFile      = errors.New("no NEF file was provided, use '--nef'")
	errNoManifestFile = errors.New("no manifest file was provided, use '--manifest'")
)

// NewCommands returns vault commands.
func NewCommands() []*cli.Command {
	signedFlags := append(append([]cli.Flag{}, options.RPC...), options.Signer...)
	signedFlags = append(signedFlags, options.Await)
	contractSignedFlags := append([]cli.Flag{options.Contract}, signedFlags...)
	readFlags := append([]cli.Flag{options.Contract}, options.RPC...)

	return []*cli.Command{
		{
			Name:      "deploy",
			Usage:     "Deploy compiled TreasuryVault contract",
			UsageText: "treasury-vault deploy -r endpoint --nef file --manifest file [--owner address] [--private-key key | -w wallet [-a address] | --wallet-config path] [--await]",
			Action:    deploy,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "nef",
					Usage:    "path to the compiled contract NEF file",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "manifest",
					Aliases:  []string{"m"},
					Usage:    "path to the contract manifest file",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "owner",
					Usage: "initial vault owner (the signer by default)",
				},
			}, signedFlags...),
		},
		{
			Name:      "owner",
			Usage:     "Print the current vault owner",
			UsageText: "treasury-vault owner -r endpoint -c contract",
			Action:    printOwner,
			Flags:     readFlags,
		},
		{
			Name:      "balance",
			Usage:     "Print the amount of GAS held by the vault",
			UsageText: "treasury-vault balance -r endpoint -c contract",
			Action:    printBalance,
			Flags:     readFlags,
		},
		{
			Name:      "deposit",
			Usage:     "Transfer GAS to the vault",
			UsageText: "treasury-vault deposit -r endpoint -c contract --amount value [signer flags] [--await]",
			Action:    deposit,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "amount",
					Usage:    "amount of GAS to deposit (like 0.01)",
					Required: true,
				},
			}, contractSignedFlags...),
		},
		{
			Name:      "withdraw",
			Usage:     "Withdraw GAS from the vault (owner only)",
			UsageText: "treasury-vault withdraw -r endpoint -c contract --recipient address --amount value [signer flags] [--await]",
			Action:    withdraw,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "recipient",
					Usage:    "account to send GAS to",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "amount",
					Usage:    "amount of GAS to withdraw (like 0.01)",
					Required: true,
				},
			}, contractSignedFlags...),
		},
		{
			Name:      "transfer-ownership",
			Usage:     "Make another account the vault owner (owner only)",
			UsageText: "treasury-vault transfer-ownership -r endpoint -c contract --new-owner address [signer flags] [--await]",
			Action:    transferOwnership,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "new-owner",
					Usage:    "account to become the owner",
					Required: true,
				},
			}, contractSignedFlags...),
		},
	}
}

func deploy(ctx *cli.Context) error {
	nf, err := readNEFFile(ctx.String("nef"))
	if err != nil {
		return cli.Exit(fmt.Errorf("can't read NEF file: %w", err), 1)
	}
	m, err := readManifest(ctx.String("manifest"))
	if err != nil {
		return cli.Exit(fmt.Errorf("can't read contract manifest: %w", err), 1)
	}
	acc, err := options.GetSignerAccount(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	owner := acc.ScriptHash()
	if s := ctx.String("owner"); s != "" {
		owner, err = options.ParseAddress(s)
		if err != nil {
			return cli.Exit(fmt.Errorf("invalid owner: %w", err), 1)
		}
	}
	if owner.Equals(util.Uint160{}) {
		return cli.Exit(fmt.Errorf("invalid owner: %w", treasury.ErrInvalidAccount), 1)
	}
	log, err := options.GetLogger(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = log.Sync() }()

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, act, exitErr := options.GetRPCWithActor(gctx, ctx, acc)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	h := state.CreateContractHash(act.Sender(), nf.Checksum, m.Name)
	fmt.Fprintf(ctx.App.Writer, "Deployer: %s\n", address.Uint160ToString(act.Sender()))
	fmt.Fprintf(ctx.App.Writer, "Contract: %s\n", h.StringLE())
	log.Info("deploying contract",
		zap.String("name", m.Name),
		zap.String("owner", address.Uint160ToString(owner)),
		zap.String("hash", h.StringLE()))

	txh, vub, err := management.New(act).Deploy(nf, m, owner)
	if err = handleTx(ctx, log, act, txh, vub, err); err != nil {
		return err
	}
	// The contract only exists once the transaction HALTs.
	if ctx.Bool(options.AwaitFlag) {
		fmt.Fprintf(ctx.App.Writer, "TreasuryVault deployed to: %s\n", h.StringLE())
	}
	return nil
}

func printOwner(ctx *cli.Context) error {
	r, closer, err := newReader(ctx)
	if err != nil {
		return err
	}
	defer closer()

	owner, callErr := r.Owner()
	if callErr != nil {
		return cli.Exit(fmt.Errorf("failed to get owner: %w", callErr), 1)
	}
	fmt.Fprintf(ctx.App.Writer, "owner: %s\n", address.Uint160ToString(owner))
	return nil
}

func printBalance(ctx *cli.Context) error {
	r, closer, err := newReader(ctx)
	if err != nil {
		return err
	}
	defer closer()

	bal, callErr := r.Balance()
	if callErr != nil {
		return cli.Exit(fmt.Errorf("failed to get balance: %w", callErr), 1)
	}
	fmt.Fprintf(ctx.App.Writer, "balance: %s GAS\n", options.FormatGAS(bal))
	return nil
}

func deposit(ctx *cli.Context) error {
	amount, err := options.ParseGAS(ctx.String("amount"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	return withContract(ctx, func(log *zap.Logger, act *actor.Actor, v *treasury.Contract) error {
		log.Info("depositing",
			zap.String("from", address.Uint160ToString(act.Sender())),
			zap.String("amount", options.FormatGAS(amount)))
		txh, vub, err := v.Deposit(act.Sender(), amount)
		return handleTx(ctx, log, act, txh, vub, err)
	})
}

func withdraw(ctx *cli.Context) error {
	recipient, err := options.ParseAddress(ctx.String("recipient"))
	if err != nil {
		return cli.Exit(fmt.Errorf("invalid recipient: %w", err), 1)
	}
	amount, err := options.ParseGAS(ctx.String("amount"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	return withContract(ctx, func(log *zap.Logger, act *actor.Actor, v *treasury.Contract) error {
		log.Info("withdrawing",
			zap.String("recipient", address.Uint160ToString(recipient)),
			zap.String("amount", options.FormatGAS(amount)))
		txh, vub, err := v.Withdraw(recipient, amount)
		return handleTx(ctx, log, act, txh, vub, err)
	})
}

func transferOwnership(ctx *cli.Context) error {
	newOwner, err := options.ParseAddress(ctx.String("new-owner"))
	if err != nil {
		return cli.Exit(fmt.Errorf("invalid new owner: %w", err), 1)
	}
	if newOwner.Equals(util.Uint160{}) {
		return cli.Exit(fmt.Errorf("invalid new owner: %w", treasury.ErrInvalidAccount), 1)
	}
	return withContract(ctx, func(log *zap.Logger, act *actor.Actor, v *treasury.Contract) error {
		log.Info("transferring ownership", zap.String("newOwner", address.Uint160ToString(newOwner)))
		txh, vub, err := v.TransferOwnership(newOwner)
		return handleTx(ctx, log, act, txh, vub, err)
	})
}

func newReader(ctx *cli.Context) (*treasury.ContractReader, func(), error) {
	h, err := options.GetContractHash(ctx)
	if err != nil {
		return nil, nil, cli.Exit(err, 1)
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		cancel()
		return nil, nil, exitErr
	}
	return treasury.NewReader(invoker.New(c, nil), h), func() {
		c.Close()
		cancel()
	}, nil
}

func withContract(ctx *cli.Context, f func(*zap.Logger, *actor.Actor, *treasury.Contract) error) error {
	h, err := options.GetContractHash(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	acc, err := options.GetSignerAccount(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	log, err := options.GetLogger(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = log.Sync() }()

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, act, exitErr := options.GetRPCWithActor(gctx, ctx, acc)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	return f(log, act, treasury.New(act, h))
}

// handleTx reports the transaction sent and awaits it if requested.
func handleTx(ctx *cli.Context, log *zap.Logger, act *actor.Actor, txh util.Uint256, vub uint32, err error) error {
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to send transaction: %w", err), 1)
	}
	log.Info("transaction sent", zap.String("hash", txh.StringLE()), zap.Uint32("vub", vub))
	fmt.Fprintf(ctx.App.Writer, "Transaction: %s\n", txh.StringLE())
	if !ctx.Bool(options.AwaitFlag) {
		return nil
	}
	aer, err := act.Wait(txh, vub, nil)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to await transaction %s: %w", txh.StringLE(), err), 1)
	}
	if aer.VMState != vmstate.Halt {
		return cli.Exit(fmt.Errorf("transaction %s failed: %s", txh.StringLE(), aer.FaultException), 1)
	}
	log.Debug("transaction accepted", zap.String("hash", txh.StringLE()), zap.Int64("gasConsumed", aer.GasConsumed))
	fmt.Fprintln(ctx.App.Writer, "Status: HALT")
	return nil
}

func readNEFFile(filename string) (*nef.File, error) {
	if len(filename) == 0 {
		return nil, errNoNEFFile
	}
	f, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	nefFile, err := nef.FileFromBytes(f)
	if err != nil {
		return nil, fmt.Errorf("can't parse NEF file: %w", err)
	}
	return &nefFile, nil
}

func readManifest(filename string) (*manifest.Manifest, error) {
	if len(filename) == 0 {
		return nil, errNoManifestFile
	}
	manifestBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := new(manifest.Manifest)
	err = json.Unmarshal(manifestBytes, m)
	if err != nil {
		return nil, err
	}
	return m, nil
}
