package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"--list-backends"}, &out, &errOut); code != 0 {
		t.Fatalf("code %d: %s", code, errOut.String())
	}
	for _, want := range []string{"localfs", "redis"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("backend list missing %s:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "grpc") {
		t.Fatalf("daemon must not serve the grpc client backend:\n%s", out.String())
	}
}

func TestRun_BadBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"--backend", "nope"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown backend: code %d", code)
	}
	errOut.Reset()
	if code := run([]string{"--backend", "localfs"}, &out, &errOut); code != 2 || !strings.Contains(errOut.String(), "localfs-dir") {
		t.Fatalf("missing dir: code %d, %s", code, errOut.String())
	}
	if code := run([]string{"--log-level", "loud"}, &out, &errOut); code != 2 {
		t.Fatalf("bad log level: code %d", code)
	}
}
