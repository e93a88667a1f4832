// Command radup-journald serves an upload journal backend over gRPC so
// several radup clients can share one journal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/radup/internal/logging"
	"xdao.co/radup/storage/casregistry"
	"xdao.co/radup/storage/grpccas"

	_ "xdao.co/radup/storage/localfs"
	_ "xdao.co/radup/storage/rediscas"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("radup-journald", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "journal backend name")
	listBackends := fs.Bool("list-backends", false, "list supported backends and exit")
	logLevel := fs.String("log-level", "info", "log level")
	logJSON := fs.Bool("log-json", false, "log in JSON")

	backends := casregistry.BindFlags(fs, casregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	logger := logging.New(errOut, logging.Options{Level: level, JSON: *logJSON})

	cas, closeFn, err := backends.Open(*backend)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer lis.Close()

	s := grpc.NewServer(grpc.UnaryInterceptor(grpccas.LoggingInterceptor(logger)))
	grpccas.RegisterJournalServer(s, &grpccas.Server{CAS: cas})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	logger.Info("radup-journald listening", "addr", lis.Addr().String(), "backend", *backend)
	if err := s.Serve(lis); err != nil {
		logger.Error("serve failed", "error", err)
		return 1
	}
	return 0
}
