package options

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(""))
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	const name = "TREASURY_VAULT_OPTIONS_TEST"
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(name+"=from-file\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv(name) })

	require.NoError(t, LoadEnvFile(p))
	require.Equal(t, "from-file", os.Getenv(name))

	t.Run("no override", func(t *testing.T) {
		t.Setenv(name, "from-env")
		require.NoError(t, LoadEnvFile(p))
		require.Equal(t, "from-env", os.Getenv(name))
	})

	t.Run("bad file", func(t *testing.T) {
		require.Error(t, LoadEnvFile(t.TempDir()))
	})
}

func TestParseAddress(t *testing.T) {
	h := util.Uint160{1, 2, 3, 4, 5}

	u, err := ParseAddress(address.Uint160ToString(h))
	require.NoError(t, err)
	require.Equal(t, h, u)

	u, err = ParseAddress(h.StringLE())
	require.NoError(t, err)
	require.Equal(t, h, u)

	u, err = ParseAddress("0x" + h.StringLE())
	require.NoError(t, err)
	require.Equal(t, h, u)

	_, err = ParseAddress("not an address")
	require.Error(t, err)
	_, err = ParseAddress("")
	require.Error(t, err)
}

func TestParseGAS(t *testing.T) {
	a, err := ParseGAS("0.01")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000), a)
	require.Equal(t, "0.01", FormatGAS(a))

	a, err = ParseGAS("3")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3_0000_0000), a)
	require.Equal(t, "3", FormatGAS(a))

	for _, s := range []string{"", "0", "-1", "-0.01", "-0.5", " -0.5", "-0", "abc", "0.000000001"} {
		_, err = ParseGAS(s)
		require.Error(t, err, s)
	}
}

func TestAccountFromKey(t *testing.T) {
	pk, err := keys.NewPrivateKey()
	require.NoError(t, err)
	expected := pk.GetScriptHash()

	acc, err := AccountFromKey(pk.WIF())
	require.NoError(t, err)
	require.Equal(t, expected, acc.ScriptHash())

	acc, err = AccountFromKey(pk.String())
	require.NoError(t, err)
	require.Equal(t, expected, acc.ScriptHash())

	acc, err = AccountFromKey(" 0x" + pk.String() + "\n")
	require.NoError(t, err)
	require.Equal(t, expected, acc.ScriptHash())

	_, err = AccountFromKey("bad key")
	require.Error(t, err)
}

func TestReadWalletConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wallet.yml")
	require.NoError(t, os.WriteFile(p, []byte("Path: /tmp/w.json\nPassword: secret\n"), 0o644))

	cfg, err := ReadWalletConfig(p)
	require.NoError(t, err)
	require.Equal(t, &WalletConfig{Path: "/tmp/w.json", Password: "secret"}, cfg)

	_, err = ReadWalletConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte("Path: [\n"), 0o644))
	_, err = ReadWalletConfig(p)
	require.Error(t, err)
}

func TestHandleLoggingParams(t *testing.T) {
	log, err := HandleLoggingParams(false, "")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.InfoLevel))
	require.False(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = HandleLoggingParams(false, "error")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = HandleLoggingParams(true, "error")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = HandleLoggingParams(false, "bogus")
	require.Error(t, err)
}

// runSigner parses the given arguments with signer flags and returns the
// account GetSignerAccount produces for them.
func runSigner(t *testing.T, args ...string) (*wallet.Account, error) {
	var (
		acc    *wallet.Account
		accErr error
	)
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: PrivateKeyFlag},
		&cli.StringFlag{Name: WalletFlag},
		&cli.StringFlag{Name: WalletConfigFlag},
		&cli.StringFlag{Name: AddressFlag},
	}
	app.Action = func(ctx *cli.Context) error {
		acc, accErr = GetSignerAccount(ctx)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return acc, accErr
}

func TestGetSignerAccount(t *testing.T) {
	pk, err := keys.NewPrivateKey()
	require.NoError(t, err)

	_, err = runSigner(t)
	require.ErrorIs(t, err, errNoSigner)

	acc, err := runSigner(t, "--"+PrivateKeyFlag, pk.WIF())
	require.NoError(t, err)
	require.Equal(t, pk.GetScriptHash(), acc.ScriptHash())

	_, err = runSigner(t, "--"+PrivateKeyFlag, pk.WIF(), "--"+WalletFlag, "w.json")
	require.ErrorIs(t, err, errConflictingSigners)
	_, err = runSigner(t, "--"+WalletFlag, "w.json", "--"+WalletConfigFlag, "w.yml")
	require.ErrorIs(t, err, errConflictingWalletFlags)

	dir := t.TempDir()
	wPath := filepath.Join(dir, "wallet.json")
	w, err := wallet.NewWallet(wPath)
	require.NoError(t, err)
	require.NoError(t, w.CreateAccount("first", "pass"))
	require.NoError(t, w.CreateAccount("second", "pass"))
	require.NoError(t, w.Save())
	first, second := w.Accounts[0].ScriptHash(), w.Accounts[1].ScriptHash()

	cfgPath := filepath.Join(dir, "wallet.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("Path: "+wPath+"\nPassword: pass\n"), 0o644))

	t.Run("wallet config, default account", func(t *testing.T) {
		acc, err := runSigner(t, "--"+WalletConfigFlag, cfgPath)
		require.NoError(t, err)
		require.Equal(t, first, acc.ScriptHash())
		require.True(t, acc.CanSign())
	})
	t.Run("wallet config, explicit account", func(t *testing.T) {
		acc, err := runSigner(t, "--"+WalletConfigFlag, cfgPath, "--"+AddressFlag, address.Uint160ToString(second))
		require.NoError(t, err)
		require.Equal(t, second, acc.ScriptHash())
	})
	t.Run("unknown account", func(t *testing.T) {
		_, err := runSigner(t, "--"+WalletConfigFlag, cfgPath, "--"+AddressFlag, util.Uint160{1}.StringLE())
		require.Error(t, err)
	})
	t.Run("bad address", func(t *testing.T) {
		_, err := runSigner(t, "--"+WalletConfigFlag, cfgPath, "--"+AddressFlag, "bad")
		require.Error(t, err)
	})
	t.Run("wrong password", func(t *testing.T) {
		require.NoError(t, os.WriteFile(cfgPath, []byte("Path: "+wPath+"\nPassword: wrong\n"), 0o644))
		_, err := runSigner(t, "--"+WalletConfigFlag, cfgPath)
		require.Error(t, err)
	})
	t.Run("missing wallet", func(t *testing.T) {
		_, err := runSigner(t, "--"+WalletFlag, filepath.Join(dir, "missing.json"))
		require.Error(t, err)
	})
}
