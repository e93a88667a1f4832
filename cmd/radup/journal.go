package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/radup/config"
	"xdao.co/radup/storage"
)

func cmdJournal(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: radup journal <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put, get, has")
		return 2
	}
	sub := args[0]
	switch sub {
	case "put", "get", "has":
	default:
		fmt.Fprintf(errOut, "unknown journal subcommand: %s\n", sub)
		return 2
	}

	fs := newFlagSet("journal "+sub, errOut)
	flags := config.BindFlags(fs)
	jf := bindJournalFlags(fs)
	if code, ok := parseFlags(fs, args[1:]); !ok {
		return code
	}
	if fs.NArg() != 1 {
		operand := "cid"
		if sub == "put" {
			operand = "file"
		}
		fmt.Fprintf(errOut, "usage: radup journal %s [flags] <%s>\n", sub, operand)
		return 2
	}
	cfg, err := flags.Resolve(nil)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	cas, closeFn, err := jf.open(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "journal: %v\n", err)
		return 1
	}
	if cas == nil {
		fmt.Fprintln(errOut, "no journal configured (use --journal or the config file's journal section)")
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx := context.Background()
	arg := fs.Arg(0)
	if sub == "put" {
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", arg, err)
			return 1
		}
		id, err := cas.Put(ctx, data)
		if err != nil {
			fmt.Fprintf(errOut, "journal put: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, id)
		return 0
	}

	id, err := cid.Decode(arg)
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}
	if sub == "has" {
		ok, err := cas.Has(ctx, id)
		if err != nil {
			fmt.Fprintf(errOut, "journal has: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, ok)
		if !ok {
			return 1
		}
		return 0
	}
	data, err := cas.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			fmt.Fprintf(errOut, "journal get: %s not found\n", id)
			return 1
		}
		fmt.Fprintf(errOut, "journal get: %v\n", err)
		return 1
	}
	_, _ = out.Write(data)
	return 0
}
