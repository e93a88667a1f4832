package keys

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// DefaultEnv is the environment variable read by EnvProvider when Name is empty.
const DefaultEnv = "RADUP_PRIVATE_KEY"

// Provider supplies the signing secret at run time.
type Provider interface {
	Secret(ctx context.Context) (Secret, error)
}

// StaticProvider returns a fixed secret. Intended for tests and embedding.
type StaticProvider struct {
	Value Secret
}

func (p StaticProvider) Secret(context.Context) (Secret, error) {
	if len(p.Value.Key) == 0 {
		return Secret{}, secretError("static provider has no secret", nil)
	}
	key := append([]byte(nil), p.Value.Key...)
	return Secret{Curve: p.Value.Curve, Key: key}, nil
}

// EnvProvider reads "[curve:]hex" from an environment variable.
type EnvProvider struct {
	Name string
}

func (p EnvProvider) Secret(context.Context) (Secret, error) {
	name := p.Name
	if name == "" {
		name = DefaultEnv
	}
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return Secret{}, secretError(fmt.Sprintf("environment variable %s is not set", name), nil)
	}
	return ParseSecret(v)
}

// FileProvider reads "[curve:]hex" from a file.
type FileProvider struct {
	Path string
}

func (p FileProvider) Secret(context.Context) (Secret, error) {
	if p.Path == "" {
		return Secret{}, secretError("key file path is empty", nil)
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Secret{}, secretError(fmt.Sprintf("read key file: %v", err), err)
	}
	return ParseSecret(string(data))
}

// AgeFileProvider reads an age-encrypted "[curve:]hex" file and decrypts it
// with the identities in IdentityPath.
type AgeFileProvider struct {
	Path         string
	IdentityPath string
}

func (p AgeFileProvider) Secret(context.Context) (Secret, error) {
	if p.Path == "" || p.IdentityPath == "" {
		return Secret{}, secretError("age key file and identity file are both required", nil)
	}
	idFile, err := os.Open(p.IdentityPath)
	if err != nil {
		return Secret{}, secretError(fmt.Sprintf("open identity file: %v", err), err)
	}
	defer idFile.Close()
	identities, err := age.ParseIdentities(idFile)
	if err != nil {
		return Secret{}, secretError(fmt.Sprintf("parse identity file: %v", err), err)
	}

	ciphertext, err := os.ReadFile(p.Path)
	if err != nil {
		return Secret{}, secretError(fmt.Sprintf("read key file: %v", err), err)
	}
	plaintext, err := decryptAge(ciphertext, identities)
	if err != nil {
		return Secret{}, err
	}
	defer wipe(plaintext)
	return ParseSecret(string(plaintext))
}

func decryptAge(ciphertext []byte, identities []age.Identity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, secretError(fmt.Sprintf("decrypt key file: %v", err), err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, secretError(fmt.Sprintf("decrypt key file: %v", err), err)
	}
	return plaintext, nil
}

func encryptAge(plaintext []byte, recipientKeys []string) ([]byte, error) {
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		r, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, r)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
