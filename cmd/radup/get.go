package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"xdao.co/radup/blob"
	"xdao.co/radup/config"
	"xdao.co/radup/gateway"
	"xdao.co/radup/manifest"
)

// cmdGet reads a stored file back from the storage component.
func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fset := newFlagSet("get", errOut)
	flags := config.BindFlags(fset)
	var dest string
	var force bool
	fset.StringVarP(&dest, "out", "o", "", `where to write the file, "-" for stdout (default: the stored file name)`)
	fset.BoolVar(&force, "force", false, "overwrite an existing file")
	if code, ok := parseFlags(fset, args); !ok {
		return code
	}
	if fset.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: radup get [--network <n>] [--component <addr>] [--out <path>] <blob hash hex>")
		return 2
	}
	hash, err := blob.ParseHash(fset.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "blob hash: %v\n", err)
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
	ep, err := cfg.Endpoint()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	component, err := cfg.StorageComponent(ep.Network)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := gateway.New(ep.URL, logger)
	client.Timeout = ep.Timeout
	f, err := client.GetFile(ctx, component.String(), hash)
	if gateway.IsKind(err, gateway.KindNotFound) {
		fmt.Fprintf(errOut, "get: no file with hash %s in %s\n", hash, component)
		return 1
	}
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		return 1
	}

	if dest == "-" {
		if _, err := out.Write(f.Content); err != nil {
			fmt.Fprintf(errOut, "get: %v\n", err)
			return 1
		}
		return 0
	}
	if dest == "" {
		// The stored name came from the ledger; only use it as a plain
		// name in the working directory.
		if err := manifest.CheckFileName(f.Name); err != nil || f.Name == "." || f.Name == ".." {
			fmt.Fprintf(errOut, "get: stored name %q is not usable as a file name; pass --out\n", f.Name)
			return 1
		}
		dest = f.Name
	}
	if err := writeRetrieved(dest, f.Content, force); err != nil {
		if errors.Is(err, fs.ErrExist) {
			fmt.Fprintf(errOut, "get: %s already exists; pass --force to overwrite\n", dest)
		} else {
			fmt.Fprintf(errOut, "get: %v\n", err)
		}
		return 1
	}

	fmt.Fprintf(out, "File name: %s\n", f.Name)
	fmt.Fprintf(out, "File size: %d bytes\n", len(f.Content))
	fmt.Fprintf(out, "Saved to: %s\n", dest)
	for _, ev := range f.Events {
		fmt.Fprintf(out, "Event: %s %s\n", ev.Name, ev.FileHash)
	}
	return 0
}

func writeRetrieved(path string, data []byte, force bool) error {
	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
