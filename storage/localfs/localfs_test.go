package localfs

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/klauspost/compress/zstd"

	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"
	"xdao.co/radup/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return cas
	})
}

func TestLocalFS_StoresCompressed(t *testing.T) {
	ctx := context.Background()
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data := make([]byte, 4096)
	id, err := cas.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	raw, err := os.ReadFile(cas.pathFor(id))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(raw) >= len(data) {
		t.Fatalf("object not compressed: %d bytes on disk", len(raw))
	}
	plain, err := decoder.DecodeAll(raw, nil)
	if err != nil || !bytes.Equal(plain, data) {
		t.Fatalf("stored object is not a zstd frame of the data: %d bytes, %v", len(plain), err)
	}
}

func TestLocalFS_CodecsInitialized(t *testing.T) {
	if encoder == nil || decoder == nil {
		t.Fatalf("zstd codecs not initialized: encoder %v decoder %v", encoder, decoder)
	}
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	ctx := context.Background()
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := []byte("original")
	id, err := cas.Put(ctx, orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band with a valid zstd frame.
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	path := cas.pathFor(id)
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, enc.EncodeAll([]byte("corrupted"), nil), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := cas.Get(ctx, id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}
	if _, err := cas.Put(ctx, orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
}

func TestLocalFS_OpenWithConfig(t *testing.T) {
	dir := t.TempDir()
	cas, _, err := casregistry.OpenWithConfig("localfs", casregistry.UsageCLI, map[string]any{"dir": dir})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	if _, err := cas.Put(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := casregistry.OpenWithConfig("localfs", casregistry.UsageCLI, map[string]any{"dri": dir}); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, _, err := casregistry.OpenWithConfig("localfs", casregistry.UsageCLI, nil); err == nil {
		t.Fatalf("expected missing dir error")
	}
}
