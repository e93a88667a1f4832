package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"xdao.co/radup/config"
	"xdao.co/radup/internal/logging"
	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"

	_ "xdao.co/radup/storage/grpccas"
	_ "xdao.co/radup/storage/localfs"
	_ "xdao.co/radup/storage/rediscas"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "upload":
		return cmdUpload(args[1:], out, errOut)
	case "manifest":
		return cmdManifest(args[1:], out, errOut)
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "status":
		return cmdStatus(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "journal":
		return cmdJournal(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "radup: upload files to the ledger file storage component")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  radup upload [--network <n>] [--component <addr>] [--name <file name>] [--key-env <VAR> | --key-file <path> | --key-name <name>] [--journal <backend>] [--force] <file>")
	fmt.Fprintln(w, "  radup manifest [--network <n>] [--component <addr>] [--name <file name>] [key flags] <file>")
	fmt.Fprintln(w, "  radup hash <file>")
	fmt.Fprintln(w, "  radup status [--network <n>] <txid | intent hash hex>")
	fmt.Fprintln(w, "  radup get [--network <n>] [--component <addr>] [--out <path> | --out -] [--force] <blob hash hex>")
	fmt.Fprintln(w, "  radup key init --name <name> [--curve <c>] [--from-env <VAR>] [--recipient <age pubkey> ...] [--force]")
	fmt.Fprintln(w, "  radup key list")
	fmt.Fprintln(w, "  radup key export --name <name> [--network <n>] [--age-identity <path>]")
	fmt.Fprintln(w, "  radup journal put|get|has --journal <backend> [backend flags] <file | cid>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - settings come from ~/.radup/config.yaml (or --config), then RADUP_* variables, then flags")
	fmt.Fprintln(w, "  - the private key is read from RADUP_PRIVATE_KEY unless a key flag says otherwise")
	fmt.Fprintln(w, "  - keys are stored under ~/.radup/keys/<name>.key (0600), or <name>.key.age when encrypted")
	fmt.Fprintln(w, "  - a submission that times out is not retried; check it with radup status before uploading again")
	fmt.Fprintf(w, "  - journal backends: %s\n", strings.Join(casregistry.Names(casregistry.UsageCLI), ", "))
}

// parseFlags parses args and maps the outcome to an exit code; ok is false
// when the caller should return code.
func parseFlags(fs *pflag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func newFlagSet(name string, errOut io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.SortFlags = false
	return fs
}

func newLogger(errOut io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(errOut, logging.Options{Level: level, JSON: lc.JSON}), nil
}

// journalFlags selects the upload journal. --journal wins over the config
// file's journal section.
type journalFlags struct {
	backend  string
	backends *casregistry.Flags
}

func bindJournalFlags(fs *pflag.FlagSet) *journalFlags {
	jf := &journalFlags{}
	fs.StringVar(&jf.backend, "journal", "", "journal backend ("+strings.Join(casregistry.Names(casregistry.UsageCLI), ", ")+")")
	jf.backends = casregistry.BindFlags(fs, casregistry.UsageCLI)
	return jf
}

// open returns a nil CAS when no journal is configured.
func (jf *journalFlags) open(cfg *config.Config) (storage.CAS, func() error, error) {
	if jf.backend != "" {
		return jf.backends.Open(jf.backend)
	}
	if cfg.Journal.Enabled() {
		return cfg.Journal.Open(casregistry.UsageCLI, "")
	}
	return nil, nil, nil
}
