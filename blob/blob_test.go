package blob

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/radup/cidutil"
)

// Pinned blake2b-256 vectors. A change here means uploads would be rejected
// by the storage component at execution time.
var vectors = []struct {
	in   string
	want string
}{
	{"", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
	{"hello", "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf"},
}

func TestSum_PinnedVectors(t *testing.T) {
	for _, v := range vectors {
		if got := Sum([]byte(v.in)).Hex(); got != v.want {
			t.Fatalf("Sum(%q): got %s want %s", v.in, got, v.want)
		}
	}
}

func TestPrepare_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a, err := Prepare(path, DefaultMaxSize)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	b, err := Prepare(path, DefaultMaxSize)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if a.Hash != b.Hash {
		t.Fatalf("expected deterministic hash")
	}
	if !bytes.Equal(a.Bytes, []byte("hello")) {
		t.Fatalf("unexpected bytes %q", a.Bytes)
	}
	if a.Hash.Hex() != vectors[1].want {
		t.Fatalf("hash: got %s", a.Hash.Hex())
	}
	if !a.Verify() {
		t.Fatalf("Verify: expected true")
	}

	want, err := cidutil.CIDv1RawBlake2b256CID([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv1RawBlake2b256CID: %v", err)
	}
	if !a.Hash.CID().Equals(want) {
		t.Fatalf("CID mismatch: got %s want %s", a.Hash.CID(), want)
	}
}

func TestPrepare_MissingFile(t *testing.T) {
	_, err := Prepare(filepath.Join(t.TempDir(), "absent.txt"), DefaultMaxSize)
	if err == nil {
		t.Fatalf("expected error")
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindFileIO {
		t.Fatalf("expected *blob.Error with KindFileIO, got %T %v", err, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist in chain, got %v", err)
	}
}

func TestPrepare_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(path, make([]byte, 11), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Prepare(path, 10); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := Prepare(path, 0); err != nil {
		t.Fatalf("limit disabled: %v", err)
	}
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash(vectors[1].want)
	if err != nil {
		t.Fatalf("ParseHash: %v", err)
	}
	if h != Sum([]byte("hello")) {
		t.Fatalf("ParseHash mismatch")
	}
	if _, err := ParseHash("abcd"); err == nil {
		t.Fatalf("expected short hash error")
	}
}
