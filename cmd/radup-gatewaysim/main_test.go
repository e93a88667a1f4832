package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"xdao.co/radup/gatewaysim"
	"xdao.co/radup/network"
)

func TestRun_BadFlags(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"--network", "devnet"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown network: code %d", code)
	}
	if code := run([]string{"--log-level", "loud"}, &out, &errOut); code != 2 {
		t.Fatalf("bad log level: code %d", code)
	}
	if code := run([]string{"--listen", "256.0.0.1:0"}, &out, &errOut); code != 1 {
		t.Fatalf("bad listen address: code %d", code)
	}
}

func TestAdvanceEpochs(t *testing.T) {
	sim := gatewaysim.New(network.Simulator, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		advanceEpochs(ctx, sim, time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for sim.Epoch() < 12 {
		if time.Now().After(deadline) {
			t.Fatalf("epoch stuck at %d", sim.Epoch())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}
