package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"xdao.co/radup/keys"
	"xdao.co/radup/network"
)

var keyCommands = map[string]func(args []string, out, errOut io.Writer) int{
	"init":   cmdKeyInit,
	"list":   cmdKeyList,
	"export": cmdKeyExport,
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	if cmd, ok := keyCommands[args[0]]; ok {
		return cmd(args[1:], out, errOut)
	}
	switch args[0] {
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	}
	fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
	printKeyUsage(errOut)
	return 2
}

// keyStoreFlag registers --dir, shared by every key subcommand.
func keyStoreFlag(fs *pflag.FlagSet) *string {
	return fs.String("dir", "", "key store directory (default ~/.radup/keys)")
}

func openKeyStore(dir string, errOut io.Writer) (*keys.KeyStore, bool) {
	ks, err := keys.CreateKeyStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, false
	}
	return ks, true
}

// newSecret imports the key in fromEnv, or generates one on curve.
func newSecret(curve keys.Curve, fromEnv string) (keys.Secret, error) {
	if fromEnv != "" {
		s, err := keys.EnvProvider{Name: fromEnv}.Secret(context.Background())
		if err != nil {
			return keys.Secret{}, fmt.Errorf("import key: %w", err)
		}
		return s, nil
	}
	b, err := keys.GenerateSecret(curve, nil)
	if err != nil {
		return keys.Secret{}, fmt.Errorf("generate key: %w", err)
	}
	return keys.Secret{Curve: curve, Key: b}, nil
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  radup key init --name <name> [--curve secp256k1|ed25519] [--from-env <VAR>] [--recipient <age pubkey> ...] [--force]")
	fmt.Fprintln(w, "  radup key list")
	fmt.Fprintln(w, "  radup key export --name <name> [--network <n>] [--age-identity <path>]")
	fmt.Fprintln(w, "All subcommands accept --dir to use a key store other than ~/.radup/keys.")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key init", errOut)
	name := fs.String("name", "", "key name")
	dir := keyStoreFlag(fs)
	curveName := fs.String("curve", string(keys.Secp256k1), "curve for a generated key")
	fromEnv := fs.String("from-env", "", "import the key held in this environment variable instead of generating one")
	recipients := fs.StringArray("recipient", nil, "encrypt the key file to this age recipient (repeatable)")
	force := fs.Bool("force", false, "overwrite an existing key")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if err := keys.CheckKeyName(*name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	curve, err := keys.ParseCurve(*curveName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --curve: %v\n", err)
		return 2
	}
	ks, ok := openKeyStore(*dir, errOut)
	if !ok {
		return 1
	}
	secret, err := newSecret(curve, *fromEnv)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer secret.Wipe()

	path, err := ks.InitializeKey(*name, secret, *recipients, *force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created %s key: %s\n", secret.Curve, *name)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key list", errOut)
	dir := keyStoreFlag(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	ks, ok := openKeyStore(*dir, errOut)
	if !ok {
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		if e.Encrypted {
			fmt.Fprintf(out, "%s\t(encrypted)\n", e.Name)
		} else {
			fmt.Fprintln(out, e.Name)
		}
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("key export", errOut)
	name := fs.String("name", "", "key name")
	dir := keyStoreFlag(fs)
	netName := fs.String("network", network.Mainnet.Name, "network for the account address")
	identity := fs.String("age-identity", "", "age identity file for an encrypted key")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if *name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	net, err := network.ByName(*netName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --network: %v\n", err)
		return 2
	}
	ks, ok := openKeyStore(*dir, errOut)
	if !ok {
		return 1
	}
	pub, addr, err := ks.ExportKey(context.Background(), *name, *identity, net)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Public key: %s\n", pub)
	fmt.Fprintf(out, "Account address: %s\n", addr)
	return 0
}
