/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeout is the default timeout used for RPC requests.
	DefaultTimeout = 10 * time.Second
	// DefaultAwaitableTimeout is the default timeout used for RPC requests that
	// require transaction awaiting. It is set to the approximate time of three
	// Neo N3 mainnet blocks accepting.
	DefaultAwaitableTimeout = 3 * 15 * time.Second

	// GASDecimals is the precision of GAS amounts.
	GASDecimals = 8
)

// Environment variables backing the flags.
const (
	EnvRPCEndpoint  = "VAULT_RPC_URL"
	EnvTimeout      = "VAULT_RPC_TIMEOUT"
	EnvPrivateKey   = "VAULT_PRIVATE_KEY"
	EnvWallet       = "VAULT_WALLET"
	EnvWalletConfig = "VAULT_WALLET_CONFIG"
	EnvAddress      = "VAULT_ADDRESS"
	EnvContract     = "VAULT_CONTRACT"
)

// Long flag names, they can be used to check for flag presence in the context.
const (
	RPCEndpointFlag  = "rpc-endpoint"
	TimeoutFlag      = "timeout"
	PrivateKeyFlag   = "private-key"
	WalletFlag       = "wallet"
	WalletConfigFlag = "wallet-config"
	AddressFlag      = "address"
	ContractFlag     = "contract"
	AwaitFlag        = "await"
	EnvFileFlag      = "env-file"
	DebugFlag        = "debug"
	LogLevelFlag     = "log-level"
)

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	&cli.StringFlag{
		Name:    RPCEndpointFlag,
		Aliases: []string{"r"},
		Usage:   "RPC node address",
		EnvVars: []string{EnvRPCEndpoint},
	},
	&cli.DurationFlag{
		Name:    TimeoutFlag,
		Aliases: []string{"s"},
		Value:   DefaultTimeout,
		Usage:   "Timeout for the operation",
		EnvVars: []string{EnvTimeout},
	},
}

// Signer is a set of flags used to get the key for transaction signing.
var Signer = []cli.Flag{
	&cli.StringFlag{
		Name:    PrivateKeyFlag,
		Usage:   "private key (WIF or hex) to sign transactions with; conflicts with --wallet and --wallet-config flags",
		EnvVars: []string{EnvPrivateKey},
	},
	&cli.StringFlag{
		Name:    WalletFlag,
		Aliases: []string{"w"},
		Usage:   "wallet to use to get the key for transaction signing; conflicts with --wallet-config flag",
		EnvVars: []string{EnvWallet},
	},
	&cli.StringFlag{
		Name:    WalletConfigFlag,
		Usage:   "path to wallet config to use to get the key for transaction signing; conflicts with --wallet flag",
		EnvVars: []string{EnvWalletConfig},
	},
	&cli.StringFlag{
		Name:    AddressFlag,
		Aliases: []string{"a"},
		Usage:   "wallet account to sign with (default account is used if not set)",
		EnvVars: []string{EnvAddress},
	},
}

// Contract is a flag for the vault contract hash or address.
var Contract = &cli.StringFlag{
	Name:     ContractFlag,
	Aliases:  []string{"c"},
	Usage:    "TreasuryVault contract hash (LE) or address",
	EnvVars:  []string{EnvContract},
	Required: true,
}

// Await is a flag for commands that can wait for the transaction to be accepted.
var Await = &cli.BoolFlag{
	Name:  AwaitFlag,
	Usage: "wait for the transaction to be included in a block and check its result",
}

// Global is a set of application-wide flags.
var Global = []cli.Flag{
	&cli.StringFlag{
		Name:  EnvFileFlag,
		Value: ".env",
		Usage: "dotenv file to load environment variables from (ignored if missing)",
	},
	&cli.BoolFlag{
		Name:    DebugFlag,
		Aliases: []string{"d"},
		Usage:   "enable debug logging (overrides --log-level)",
	},
	&cli.StringFlag{
		Name:  LogLevelFlag,
		Value: "info",
		Usage: "logging level (debug, info, warn, error)",
	},
}

var (
	errNoEndpoint             = errors.New("no RPC endpoint specified, use option '--" + RPCEndpointFlag + "' or '-r' or set " + EnvRPCEndpoint)
	errNoSigner               = errors.New("no signer specified, use '--" + PrivateKeyFlag + "' (" + EnvPrivateKey + "), '--" + WalletFlag + "' or '--" + WalletConfigFlag + "'")
	errConflictingWalletFlags = errors.New("--wallet flag conflicts with --wallet-config flag, please, provide one of them to specify wallet location")
	errConflictingSigners     = errors.New("--private-key flag conflicts with wallet flags, please, provide one of them")
)

// LoadEnvFile loads variables from the given dotenv file into the process
// environment. Variables that are already set are not overridden. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("can't load %s: %w", path, err)
	}
	return nil
}

// GetTimeoutContext returns a context.Context with the default or a user-set timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration(TimeoutFlag)
	if dur == 0 {
		dur = DefaultTimeout
	}
	if !ctx.IsSet(TimeoutFlag) && ctx.Bool(AwaitFlag) {
		dur = DefaultAwaitableTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetRPCClient returns an RPC client instance for the given Context.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, cli.ExitCoder) {
	endpoint := ctx.String(RPCEndpointFlag)
	if len(endpoint) == 0 {
		return nil, cli.Exit(errNoEndpoint, 1)
	}
	c, err := rpcclient.New(gctx, endpoint, rpcclient.Options{})
	if err != nil {
		return nil, cli.Exit(err, 1)
	}
	err = c.Init()
	if err != nil {
		c.Close()
		return nil, cli.Exit(err, 1)
	}
	return c, nil
}

// GetRPCWithActor returns an RPC client instance and Actor instance signing
// with the given account.
func GetRPCWithActor(gctx context.Context, ctx *cli.Context, acc *wallet.Account) (*rpcclient.Client, *actor.Actor, cli.ExitCoder) {
	c, err := GetRPCClient(gctx, ctx)
	if err != nil {
		return nil, nil, err
	}

	a, actorErr := actor.NewSimple(c, acc)
	if actorErr != nil {
		c.Close()
		return nil, nil, cli.Exit(fmt.Errorf("failed to create Actor: %w", actorErr), 1)
	}
	return c, a, nil
}

// GetSignerAccount returns an account able to sign transactions. It's
// taken either from the private key flag or from the wallet.
func GetSignerAccount(ctx *cli.Context) (*wallet.Account, error) {
	var (
		key   = ctx.String(PrivateKeyFlag)
		wPath = ctx.String(WalletFlag)
		wConf = ctx.String(WalletConfigFlag)
	)
	switch {
	case key != "" && (wPath != "" || wConf != ""):
		return nil, errConflictingSigners
	case key != "":
		return AccountFromKey(key)
	case wPath != "" && wConf != "":
		return nil, errConflictingWalletFlags
	case wPath == "" && wConf == "":
		return nil, errNoSigner
	}

	var pass *string
	if wConf != "" {
		cfg, err := ReadWalletConfig(wConf)
		if err != nil {
			return nil, err
		}
		wPath = cfg.Path
		pass = &cfg.Password
	}
	wall, err := wallet.NewWalletFromFile(wPath)
	if err != nil {
		return nil, err
	}

	var addr util.Uint160
	if s := ctx.String(AddressFlag); s != "" {
		addr, err = ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
	} else {
		addr = wall.GetChangeAddress()
		if addr.Equals(util.Uint160{}) {
			return nil, errors.New("can't get default address")
		}
	}
	return GetUnlockedAccount(wall, addr, pass)
}

// AccountFromKey creates an account from a WIF-encoded or hex-encoded
// private key.
func AccountFromKey(key string) (*wallet.Account, error) {
	key = strings.TrimSpace(key)
	if acc, err := wallet.NewAccountFromWIF(key); err == nil {
		return acc, nil
	}
	pk, err := keys.NewPrivateKeyFromHex(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, errors.New("private key is neither WIF nor hex")
	}
	return wallet.NewAccountFromWIF(pk.WIF())
}

// GetUnlockedAccount returns account from wallet, address and uses pass to unlock specified account if given.
// If the password is not given, then it is requested from user.
func GetUnlockedAccount(wall *wallet.Wallet, addr util.Uint160, pass *string) (*wallet.Account, error) {
	acc := wall.GetAccount(addr)
	if acc == nil {
		return nil, fmt.Errorf("wallet contains no account for '%s'", address.Uint160ToString(addr))
	}

	if acc.CanSign() || acc.EncryptedWIF == "" {
		return acc, nil
	}

	if pass == nil {
		rawPass, err := readPassword(os.Stderr,
			fmt.Sprintf("Enter account %s password > ", address.Uint160ToString(addr)))
		if err != nil {
			return nil, fmt.Errorf("error reading password: %w", err)
		}
		trimmed := strings.TrimRight(rawPass, "\n")
		pass = &trimmed
	}
	err := acc.Decrypt(*pass, wall.Scrypt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func readPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return string(pass), err
}

// WalletConfig is a wallet location along with its password.
type WalletConfig struct {
	Path     string `yaml:"Path"`
	Password string `yaml:"Password"`
}

// ReadWalletConfig reads wallet config from the given path.
func ReadWalletConfig(configPath string) (*WalletConfig, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read wallet config: %w", err)
	}

	cfg := &WalletConfig{}
	err = yaml.Unmarshal(configData, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet config YAML: %w", err)
	}
	return cfg, nil
}

// ParseAddress parses a Neo address or a LE hex-encoded script hash
// (optionally 0x-prefixed).
func ParseAddress(s string) (util.Uint160, error) {
	const uint160size = 2 * util.Uint160Size
	switch len(s) {
	case uint160size, uint160size + 2:
		return util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	default:
		return address.StringToUint160(s)
	}
}

// GetContractHash returns the vault contract hash from the context.
func GetContractHash(ctx *cli.Context) (util.Uint160, error) {
	s := ctx.String(ContractFlag)
	if s == "" {
		return util.Uint160{}, errors.New("no contract specified, use '--" + ContractFlag + "' or set " + EnvContract)
	}
	h, err := ParseAddress(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract: %w", err)
	}
	return h, nil
}

// ParseGAS parses a decimal GAS amount (like "0.01") into GAS fractions.
// Only positive amounts are accepted.
func ParseGAS(s string) (*big.Int, error) {
	// FromString loses the sign of "-0.x" values.
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		return nil, fmt.Errorf("invalid amount %q: must be positive", s)
	}
	amount, err := fixedn.FromString(s, GASDecimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q: must be positive", s)
	}
	return amount, nil
}

// FormatGAS converts GAS fractions into a decimal string.
func FormatGAS(amount *big.Int) string {
	return fixedn.ToString(amount, GASDecimals)
}

// HandleLoggingParams creates a console logger writing to stderr. If debug
// is set, debug level is used regardless of the level given.
func HandleLoggingParams(debug bool, logLevel string) (*zap.Logger, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(logLevel) > 0 {
		level, err = zapcore.ParseLevel(logLevel)
		if err != nil {
			return nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	cc.OutputPaths = []string{"stderr"}

	return cc.Build()
}

// GetLogger returns a logger configured by the application-wide flags.
func GetLogger(ctx *cli.Context) (*zap.Logger, error) {
	return HandleLoggingParams(ctx.Bool(DebugFlag), ctx.String(LogLevelFlag))
}
