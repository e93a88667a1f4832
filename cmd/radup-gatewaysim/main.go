// Command radup-gatewaysim runs a local gateway simulator for dry runs:
//
//	radup-gatewaysim --listen 127.0.0.1:5308 --epoch-interval 1m
//	radup upload --network simulator --gateway http://127.0.0.1:5308 --component <addr> file.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/radup/gatewaysim"
	"xdao.co/radup/internal/logging"
	"xdao.co/radup/network"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("radup-gatewaysim", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:5308", "listen address")
	netName := fs.String("network", network.Simulator.Name, "network the simulator serves")
	epoch := fs.Uint64("epoch", 1, "starting epoch")
	interval := fs.Duration("epoch-interval", 5*time.Minute, "advance the epoch this often; 0 freezes it")
	maxSize := fs.Int("max-size", 0, "largest file accepted, in bytes (default: the component limit)")
	logLevel := fs.String("log-level", "info", "log level")
	logJSON := fs.Bool("log-json", false, "log in JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	ledger, err := network.ByName(*netName)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	logger := logging.New(errOut, logging.Options{Level: level, JSON: *logJSON})

	sim := gatewaysim.New(ledger, *epoch, logger)
	if *maxSize > 0 {
		sim.MaxFileSize = *maxSize
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	srv := &http.Server{Handler: sim.Handler(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *interval > 0 {
		go advanceEpochs(ctx, sim, *interval)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "radup-gatewaysim serving %s on http://%s (epoch %d)\n", ledger.Name, lis.Addr(), *epoch)
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve failed", "error", err)
		return 1
	}
	return 0
}

func advanceEpochs(ctx context.Context, sim *gatewaysim.Server, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sim.Logger.Debug("epoch advanced", "epoch", sim.AdvanceEpoch())
		}
	}
}
