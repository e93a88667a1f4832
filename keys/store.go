package keys

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"xdao.co/radup/network"
)

// A key is stored in exactly one of these forms. The plain form holds
// "[curve:]hex"; the age form holds the same text encrypted to one or more
// age recipients.
var forms = []struct {
	suffix    string
	encrypted bool
}{
	{".key.age", true},
	{".key", false},
}

// KeyStore keeps named keys as files under Directory.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name      string
	Encrypted bool
	Path      string
}

// GetDefaultDirectory returns ~/.radup/keys.
func GetDefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".radup", "keys"), nil
}

// CreateKeyStore opens the store at directory, or the default directory
// when it is empty. Nothing is created until a key is written.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory != "" {
		return &KeyStore{Directory: directory}, nil
	}
	directory, err := GetDefaultDirectory()
	if err != nil {
		return nil, err
	}
	return &KeyStore{Directory: directory}, nil
}

func isKeyNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}

// CheckKeyName accepts ASCII letters, digits, '-' and '_'.
func CheckKeyName(name string) error {
	if name == "" {
		return keyError("key name cannot be empty")
	}
	if i := strings.IndexFunc(name, func(r rune) bool { return !isKeyNameRune(r) }); i >= 0 {
		return keyError(fmt.Sprintf("key name %q: invalid character %q", name, []rune(name[i:])[0]))
	}
	return nil
}

func (ks *KeyStore) path(name string, encrypted bool) string {
	for _, f := range forms {
		if f.encrypted == encrypted {
			return filepath.Join(ks.Directory, name+f.suffix)
		}
	}
	panic("unreachable")
}

// find returns the stored form of name, or fs.ErrNotExist.
func (ks *KeyStore) find(name string) (KeyEntry, error) {
	for _, f := range forms {
		p := filepath.Join(ks.Directory, name+f.suffix)
		_, err := os.Stat(p)
		if err == nil {
			return KeyEntry{Name: name, Encrypted: f.encrypted, Path: p}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return KeyEntry{}, err
		}
	}
	return KeyEntry{}, fs.ErrNotExist
}

// InitializeKey stores secret under name and returns the file path. With
// recipients the file is age-encrypted to them. An existing key of either
// form is only replaced when overwrite is set.
func (ks *KeyStore) InitializeKey(name string, secret Secret, recipients []string, overwrite bool) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	if len(secret.Key) != SecretSize {
		return "", keyError(fmt.Sprintf("private key must be %d bytes, got %d", SecretSize, len(secret.Key)))
	}
	existing, err := ks.find(name)
	switch {
	case err == nil && !overwrite:
		return "", fmt.Errorf("key %q already exists at %s", name, existing.Path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	payload := []byte(FormatSecret(secret) + "\n")
	defer wipe(payload)
	encrypted := len(recipients) > 0
	if encrypted {
		if payload, err = encryptAge(payload, recipients); err != nil {
			return "", err
		}
	}

	path := ks.path(name, encrypted)
	if err := writeKeyFile(path, payload, overwrite); err != nil {
		return "", err
	}
	if err := os.Remove(ks.path(name, !encrypted)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return path, nil
}

// writeKeyFile writes data with mode 0600. Without overwrite an existing
// file is an error.
func writeKeyFile(path string, data []byte, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, mode, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Provider returns the secret provider for a stored key. identityPath is
// required for encrypted keys.
func (ks *KeyStore) Provider(name, identityPath string) (Provider, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	e, err := ks.find(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, keyError(fmt.Sprintf("key %q not found in %s", name, ks.Directory))
	}
	if err != nil {
		return nil, err
	}
	if !e.Encrypted {
		return FileProvider{Path: e.Path}, nil
	}
	if identityPath == "" {
		return nil, keyError(fmt.Sprintf("key %q is age-encrypted; pass an identity file", name))
	}
	return AgeFileProvider{Path: e.Path, IdentityPath: identityPath}, nil
}

// ExportKey returns the public key and account address of a stored key.
func (ks *KeyStore) ExportKey(ctx context.Context, name, identityPath string, net network.Network) (PublicKey, string, error) {
	p, err := ks.Provider(name, identityPath)
	if err != nil {
		return PublicKey{}, "", err
	}
	secret, err := p.Secret(ctx)
	if err != nil {
		return PublicKey{}, "", err
	}
	defer secret.Wipe()
	acct, err := ResolveAccount(secret.Key, secret.Curve, net)
	if err != nil {
		return PublicKey{}, "", err
	}
	return acct.Public, acct.Address.String(), nil
}

// ListKeys returns the stored keys sorted by name. A missing directory is
// an empty store.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	dirents, err := os.ReadDir(ks.Directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []KeyEntry
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		for _, f := range forms {
			if name, ok := strings.CutSuffix(d.Name(), f.suffix); ok && CheckKeyName(name) == nil {
				out = append(out, KeyEntry{Name: name, Encrypted: f.encrypted, Path: filepath.Join(ks.Directory, d.Name())})
				break
			}
		}
	}
	slices.SortFunc(out, func(a, b KeyEntry) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}
