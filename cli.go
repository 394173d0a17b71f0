package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/decimal-ipc/dscipc/pkg/crypt"
	"github.com/decimal-ipc/dscipc/pkg/log"
	"github.com/decimal-ipc/dscipc/pkg/rpc"
)

const mnemonicEnv = "MNEMONIC"

// runner carries what the commands share.
type runner struct {
	out        io.Writer
	lg         log.Logger
	readSecret func(prompt string) (string, error)
}

func newApp(r *runner) *cli.App {
	return &cli.App{
		Name:      "dscipc",
		Usage:     "Talk to the Decimal wallet daemon over its Unix socket",
		Writer:    r.out,
		ErrWriter: os.Stderr,
		Before:    r.setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "Print a new random encryption key",
				Action: r.keygen,
			},
			{
				Name:      "encrypt",
				Usage:     "Encrypt a value with ENCRYPTION_KEY",
				ArgsUsage: "<plaintext>",
				Action:    r.encrypt,
			},
			{
				Name:      "decrypt",
				Usage:     "Decrypt a token with ENCRYPTION_KEY",
				ArgsUsage: "<token>",
				Action:    r.decrypt,
			},
			{
				Name:      "actions",
				Usage:     "List daemon actions and their arguments",
				ArgsUsage: "[filter]",
				Action:    r.actions,
			},
			{
				Name:      "call",
				Usage:     "Create the session wallet and invoke an action",
				ArgsUsage: "<action> [json-args]",
				Description: "The mnemonic is read from " + mnemonicEnv + " or, when unset, from the terminal.\n" +
					"Arguments are a JSON object, for example '{\"address\": \"0x...\"}'.",
				Action: r.call,
			},
		},
	}
}

func (r *runner) setupLogger(*cli.Context) error {
	conf, err := LoadLogConfig()
	if err != nil {
		return err
	}
	r.lg = log.NewZapLogger(conf).WithName("dscipc")
	return nil
}

func (r *runner) keygen(c *cli.Context) error {
	key, err := crypt.GenerateKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, key)
	return err
}

func (r *runner) encrypt(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one argument: the plaintext")
	}
	cipher, _, err := r.cipher()
	if err != nil {
		return err
	}
	defer cipher.Close()

	token, err := cipher.Encrypt(c.Args().First())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, token)
	return err
}

func (r *runner) decrypt(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one argument: the token")
	}
	cipher, _, err := r.cipher()
	if err != nil {
		return err
	}
	defer cipher.Close()

	plaintext, err := cipher.Decrypt(c.Args().First())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, plaintext)
	return err
}

func (r *runner) actions(c *cli.Context) error {
	filter := c.Args().First()

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"Action", "Arguments", "Checks"})
	t.AppendSeparator()

	for _, a := range rpc.DefaultSchema().Actions() {
		if filter != "" && !strings.Contains(a.Action, filter) {
			continue
		}
		args := make([]string, 0, len(a.Args))
		for _, arg := range a.Args {
			args = append(args, formatArg(arg))
		}
		checks := make([]string, 0, len(a.Checks))
		for _, check := range a.Checks {
			checks = append(checks, fmt.Sprintf("%s %s %s", check.Field, check.Rule, check.Other))
		}
		t.AppendRow(table.Row{a.Action, strings.Join(args, "\n"), strings.Join(checks, "\n")})
	}
	t.Render()
	return nil
}

// formatArg renders a slot as name[?]:type[=default] (rule).
func formatArg(arg rpc.ArgSchema) string {
	var sb strings.Builder
	sb.WriteString(arg.Name)
	if arg.Optional {
		sb.WriteString("?")
	}
	if arg.Type != rpc.ArgAny {
		sb.WriteString(":" + string(arg.Type))
	}
	if arg.Default != nil {
		fmt.Fprintf(&sb, "=%v", arg.Default)
	}
	if arg.Rule != "" {
		sb.WriteString(" (" + arg.Rule + ")")
	}
	return sb.String()
}

func (r *runner) call(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return errors.New("expected an action and optional JSON arguments")
	}
	action := c.Args().Get(0)

	var args map[string]any
	if raw := c.Args().Get(1); raw != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			return errors.Wrap(err, "failed to parse arguments")
		}
	}

	cipher, conf, err := r.cipher()
	if err != nil {
		return err
	}

	opts := []rpc.Option{
		rpc.WithLogger(r.lg),
		rpc.WithCallTimeout(conf.CallTimeout),
	}
	if conf.WalletID != "" {
		opts = append(opts, rpc.WithWalletID(conf.WalletID))
	}
	client := rpc.NewClient(rpc.NewUnixDialer(conf.DialerConfig()), cipher, opts...)
	defer client.Close()

	// Fail on bad arguments before asking for the mnemonic.
	a, ok := client.Schema().Lookup(action)
	if !ok {
		return errors.Errorf("unknown action %q", action)
	}
	if _, err := client.Schema().Validate(action, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res any
	if a.Binds {
		res, err = client.Call(ctx, action, args)
	} else {
		res, err = r.callBound(ctx, client, action, args)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	_, err = fmt.Fprintln(r.out, string(out))
	return err
}

// callBound creates the session wallet and then invokes action.
func (r *runner) callBound(ctx context.Context, client *rpc.Client, action string, args map[string]any) (any, error) {
	mnemonic := os.Getenv(mnemonicEnv)
	if mnemonic == "" {
		var err error
		if mnemonic, err = r.readSecret("Mnemonic: "); err != nil {
			return nil, err
		}
	}

	wallet, err := client.CreateWallet(ctx, strings.TrimSpace(mnemonic))
	if err != nil {
		return nil, err
	}
	r.lg.Debug("session wallet ready", "address", wallet.Address, "walletId", wallet.WalletID)

	return client.Call(ctx, action, args)
}

// cipher loads the configuration and builds the cipher from its key.
func (r *runner) cipher() (*crypt.Cipher, *Config, error) {
	conf, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	r.lg.Debug("config loaded", "socketPath", conf.SocketPath, "callTimeout", conf.CallTimeout)

	cipher, err := crypt.NewCipher(conf.EncryptionKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialise cipher")
	}
	return cipher, conf, nil
}

// readTerminalSecret reads a secret with prompt directly from /dev/tty
// without echoing it.
func readTerminalSecret(prompt string) (string, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", errors.Wrap(err, "no terminal available, set "+mnemonicEnv)
	}
	defer f.Close()

	if _, err := f.WriteString(prompt); err != nil {
		return "", err
	}
	secret, err := term.ReadPassword(int(f.Fd()))
	if err != nil {
		return "", errors.Wrap(err, "failed to read secret")
	}
	_, err = f.WriteString("\n")
	return string(secret), err
}
