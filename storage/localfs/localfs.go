// Package localfs is a journal backend on the local filesystem. Objects are
// stored zstd-compressed, one file per CID, and are never rewritten.
package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/klauspost/compress/zstd"

	"xdao.co/radup/cidutil"
	"xdao.co/radup/storage"
)

const suffix = ".zst"

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("localfs: zstd encoder initialization failed: " + err.Error())
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("localfs: zstd decoder initialization failed: " + err.Error())
	}
}

// CAS is a journal rooted at a local directory.
type CAS struct {
	root string
}

var _ storage.CAS = (*CAS)(nil)

// New constructs a filesystem CAS rooted at root, creating it if needed.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &CAS{root: root}, nil
}

// Put stores data under its CID. Storing the same bytes twice is a no-op;
// an existing object whose content differs reports storage.ErrImmutable.
func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	id, err := cidutil.CIDv1RawBlake2b256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	dst := c.pathFor(id)
	tmp, err := writeSealed(filepath.Dir(dst), encoder.EncodeAll(data, nil))
	if err != nil {
		return cid.Undef, fmt.Errorf("localfs: put %s: %w", id, err)
	}
	defer os.Remove(tmp)

	// A hard link never replaces an existing object.
	err = os.Link(tmp, dst)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return cid.Undef, fmt.Errorf("localfs: put %s: %w", id, err)
	}
	if existing, gerr := c.Get(ctx, id); gerr != nil || !bytes.Equal(existing, data) {
		return cid.Undef, storage.ErrImmutable
	}
	return id, nil
}

// writeSealed writes b to a fresh read-only file in dir and returns its path.
func writeSealed(dir string, b []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	_, err = f.Write(b)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0o400)
	}
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(c.pathFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("localfs: %s: %w", id, storage.ErrCIDMismatch)
	}
	if err := storage.CheckCID(id, b); err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	_, err := os.Stat(c.pathFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (c *CAS) pathFor(id cid.Cid) string {
	s := id.String()
	// Shard on the last two characters; CIDv1 prefixes are all alike.
	return filepath.Join(c.root, s[len(s)-2:], s+suffix)
}
