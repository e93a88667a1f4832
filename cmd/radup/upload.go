package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"xdao.co/radup/blob"
	"xdao.co/radup/config"
	"xdao.co/radup/gateway"
	"xdao.co/radup/keys"
	"xdao.co/radup/manifest"
	"xdao.co/radup/upload"
)

func cmdUpload(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("upload", errOut)
	flags := config.BindFlags(fs)
	var name, message string
	var force bool
	fs.StringVar(&name, "name", "", "file name stored on ledger (default: base name of <file>)")
	fs.StringVar(&message, "message", "", "optional transaction message")
	fs.BoolVar(&force, "force", false, "upload even when the journal already holds the file")
	jf := bindJournalFlags(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: radup upload [flags] <file>")
		return 2
	}

	cfg, err := flags.Resolve(nil)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	logger, err := newLogger(errOut, cfg.Log)
	if err != nil {
		fmt.Fprintf(errOut, "invalid log level: %v\n", err)
		return 2
	}
	ucfg, err := cfg.Upload()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	ucfg.FileName = name
	ucfg.Message = message
	ucfg.Force = force

	provider, err := cfg.KeyProvider()
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 2
	}
	journal, closeJournal, err := jf.open(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "journal: %v\n", err)
		return 1
	}
	if closeJournal != nil {
		defer closeJournal()
	}

	client := gateway.New(ucfg.Gateway(), logger)
	client.Timeout = ucfg.Timeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	u := &upload.Uploader{
		Config:  ucfg,
		Keys:    provider,
		Gateway: client,
		Journal: journal,
		Logger:  logger,
		Out:     out,
	}
	if _, err := u.Run(ctx, fs.Arg(0)); err != nil {
		reportUploadError(errOut, err, cfg.Network)
		return 1
	}
	return 0
}

func reportUploadError(errOut io.Writer, err error, net string) {
	fmt.Fprintf(errOut, "upload failed: %v\n", err)
	var ae *upload.AmbiguousError
	if errors.As(err, &ae) {
		fmt.Fprintf(errOut, "The transaction may still commit. Check it before uploading again:\n")
		fmt.Fprintf(errOut, "  radup status --network %s %s\n", net, ae.TransactionID)
	}
}

// cmdManifest prints the validated manifest an upload would submit, without
// contacting the gateway.
func cmdManifest(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("manifest", errOut)
	flags := config.BindFlags(fs)
	var name string
	fs.StringVar(&name, "name", "", "file name stored on ledger (default: base name of <file>)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: radup manifest [flags] <file>")
		return 2
	}
	path := fs.Arg(0)

	cfg, err := flags.Resolve(nil)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	ucfg, err := cfg.Upload()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	ucfg.FileName = name
	component, err := ucfg.Validate()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	provider, err := cfg.KeyProvider()
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 2
	}

	secret, err := provider.Secret(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 1
	}
	curve := secret.Curve
	if curve == "" {
		curve = ucfg.Curve
	}
	account, err := keys.ResolveAccount(secret.Key, curve, ucfg.Network)
	secret.Wipe()
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 1
	}

	b, err := blob.Prepare(path, ucfg.MaxFileSize)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if name == "" {
		name = filepath.Base(path)
	}
	m, err := manifest.StoreFile(account.Address, component, name, b, ucfg.LockFee)
	if err != nil {
		fmt.Fprintf(errOut, "manifest: %v\n", err)
		return 1
	}
	if err := manifest.StaticValidate(m, ucfg.Network); err != nil {
		fmt.Fprintf(errOut, "manifest: %v\n", err)
		return 1
	}
	text, err := manifest.Render(m)
	if err != nil {
		fmt.Fprintf(errOut, "manifest: %v\n", err)
		return 1
	}
	_, _ = io.WriteString(out, text)
	return 0
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("hash", errOut)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: radup hash <file>")
		return 2
	}
	b, err := blob.Prepare(fs.Arg(0), 0)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "File size: %d bytes\n", b.Size())
	fmt.Fprintf(out, "Blob hash (blake2b): %s\n", b.Hash)
	fmt.Fprintf(out, "CID: %s\n", b.Hash.CID())
	return 0
}
