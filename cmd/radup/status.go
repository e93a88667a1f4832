package main

import (
	"context"
	"fmt"
	"io"

	"xdao.co/radup/config"
	"xdao.co/radup/gateway"
)

func cmdStatus(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("status", errOut)
	flags := config.BindFlags(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: radup status [--network <n>] <txid | intent hash hex>")
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

	client := gateway.New(ep.URL, logger)
	client.Timeout = ep.Timeout
	st, err := client.TransactionStatus(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "status: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Status: %s\n", st.Status)
	if st.IntentStatus != "" && st.IntentStatus != st.Status {
		fmt.Fprintf(out, "Intent status: %s\n", st.IntentStatus)
	}
	if st.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", st.ErrorMessage)
	}
	return 0
}
