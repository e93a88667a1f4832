// Package upload runs the file upload workflow: derive the account, read and
// hash the file, build and validate the store_file manifest, fetch the
// current epoch, assemble and notarize the transaction, then submit it once.
//
// Every failure before submission happens before any remote state changes,
// and the epoch fetch is the first network call. A submission whose outcome
// cannot be determined is reported as ErrAmbiguous, never as a rejection.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"xdao.co/radup/blob"
	"xdao.co/radup/gateway"
	"xdao.co/radup/internal/logging"
	"xdao.co/radup/keys"
	"xdao.co/radup/manifest"
	"xdao.co/radup/storage"
	"xdao.co/radup/txn"
)

// Gateway is the subset of the gateway client the workflow needs.
type Gateway interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
	Submit(ctx context.Context, compiled []byte) (*gateway.SubmitResult, error)
}

// Uploader holds the collaborators of an upload. Journal, Assembler, Logger
// and Out are optional.
type Uploader struct {
	Config    Config
	Keys      keys.Provider
	Gateway   Gateway
	Assembler Assembler
	Journal   storage.CAS
	Logger    *slog.Logger
	Out       io.Writer
}

// Result describes a submitted upload.
type Result struct {
	TransactionID string
	IntentHash    string
	Account       string
	FileName      string
	Size          int
	BlobHash      blob.Hash
	CID           string
	Header        txn.Header
	Duplicate     bool
	// Events are the component events the submission emitted.
	Events   []gateway.Event
	Response json.RawMessage
}

type run struct {
	u      *Uploader
	log    *slog.Logger
	out    io.Writer
	result Result
}

func (r *run) advance(s Stage) {
	r.log.Debug("upload stage", "stage", s.String())
}

func (r *run) fail(s Stage, err error) error {
	r.log.Debug("upload stage", "stage", StageFailed.String(), "failed_step", s.String(), "error", err)
	return &StepError{Stage: s, Err: err}
}

func (r *run) printf(format string, a ...any) {
	fmt.Fprintf(r.out, format+"\n", a...)
}

// Run uploads the file at path. On failure the error is a *StepError naming
// the stage that could not be reached.
func (u *Uploader) Run(ctx context.Context, path string) (*Result, error) {
	r := &run{u: u, log: logging.OrNop(u.Logger), out: u.Out}
	if r.out == nil {
		r.out = io.Discard
	}
	cfg := u.Config

	component, err := cfg.Validate()
	if err != nil {
		return nil, r.fail(StageInit, err)
	}
	if u.Keys == nil || u.Gateway == nil {
		return nil, r.fail(StageInit, errors.New("uploader needs a key provider and a gateway"))
	}
	assembler := u.Assembler
	if assembler == nil {
		assembler = TxnAssembler{}
	}
	r.advance(StageInit)

	// Account.
	secret, err := u.Keys.Secret(ctx)
	if err != nil {
		return nil, r.fail(StageKeysDerived, err)
	}
	curve := secret.Curve
	if curve == "" {
		curve = cfg.Curve
	}
	account, err := keys.ResolveAccount(secret.Key, curve, cfg.Network)
	secret.Wipe()
	if err != nil {
		return nil, r.fail(StageKeysDerived, err)
	}
	r.result.Account = account.Address.String()
	r.printf("Account address: %s", r.result.Account)
	r.advance(StageKeysDerived)

	// File.
	b, err := blob.Prepare(path, cfg.MaxFileSize)
	if err != nil {
		return nil, r.fail(StageFileRead, err)
	}
	r.result.Size = b.Size()
	r.printf("File size: %d bytes", b.Size())
	r.advance(StageFileRead)

	r.result.BlobHash = b.Hash
	r.result.CID = b.Hash.CID().String()
	r.printf("Blob hash (blake2b): %s", b.Hash)
	if err := r.checkJournal(ctx, b); err != nil {
		return nil, r.fail(StageHashComputed, err)
	}
	r.advance(StageHashComputed)

	// Manifest.
	name := cfg.FileName
	if name == "" {
		name = filepath.Base(path)
	}
	r.result.FileName = name
	m, err := manifest.StoreFile(account.Address, component, name, b, cfg.LockFee)
	if err != nil {
		return nil, r.fail(StageManifestBuilt, err)
	}
	r.advance(StageManifestBuilt)

	if err := manifest.StaticValidate(m, cfg.Network); err != nil {
		return nil, r.fail(StageManifestValidated, err)
	}
	r.printf("Manifest validated successfully")
	r.advance(StageManifestValidated)

	// Epoch.
	epoch, err := u.Gateway.CurrentEpoch(ctx)
	if err != nil {
		return nil, r.fail(StageEpochFetched, err)
	}
	r.printf("Current epoch: %d", epoch)
	r.advance(StageEpochFetched)

	// Transaction.
	header, err := txn.NewHeader(cfg.Network, epoch, cfg.EpochWindow, account.PublicKey(), cfg.TipPercentage)
	if err != nil {
		return nil, r.fail(StageTransactionAssembled, txn.WrapHeader(err))
	}
	r.result.Header = header
	tx, err := assembler.Assemble(header, m, cfg.Message, account)
	if err != nil {
		return nil, r.fail(StageTransactionAssembled, err)
	}
	r.result.TransactionID = tx.TransactionID
	r.result.IntentHash = tx.IntentHashHex()
	r.printf("Transaction ID: %s", tx.TransactionID)
	r.advance(StageTransactionAssembled)

	// Submit, exactly once.
	res, err := u.Gateway.Submit(ctx, tx.Compiled)
	if err != nil {
		if gateway.IsKind(err, gateway.KindAmbiguous) {
			err = &AmbiguousError{TransactionID: tx.TransactionID, IntentHash: r.result.IntentHash, Err: err}
		}
		return nil, r.fail(StageSubmitted, err)
	}
	r.result.Duplicate = res.Duplicate
	r.result.Events = res.Events
	r.result.Response = res.Raw
	r.printf("Transaction submitted successfully!")
	r.printf("Response: %s", res.Raw)
	for _, ev := range res.Events {
		r.printf("Event: %s %s", ev.Name, ev.FileHash)
	}
	r.advance(StageSubmitted)

	r.record(ctx, b)
	r.advance(StageSuccess)
	r.log.Info("upload complete",
		"txid", tx.TransactionID,
		"file", name,
		"size", b.Size(),
		"epoch_start", header.StartEpoch,
		"epoch_end", header.EndEpoch,
	)
	out := r.result
	return &out, nil
}

// checkJournal refuses a blob the journal already holds unless Force is set.
// An unreachable journal does not block the upload.
func (r *run) checkJournal(ctx context.Context, b *blob.Blob) error {
	if r.u.Journal == nil {
		return nil
	}
	id := b.Hash.CID()
	ok, err := r.u.Journal.Has(ctx, id)
	if err != nil {
		r.log.Warn("journal lookup failed", "cid", id.String(), "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	if r.u.Config.Force {
		r.log.Warn("journal already holds blob, uploading anyway", "cid", id.String())
		return nil
	}
	return fmt.Errorf("%w: blob %s is in the journal (use --force to upload again)", ErrAlreadyUploaded, b.Hash)
}

// record stores the blob in the journal after a successful submission.
// Failures are logged; the upload itself already succeeded.
func (r *run) record(ctx context.Context, b *blob.Blob) {
	if r.u.Journal == nil {
		return
	}
	if _, err := r.u.Journal.Put(ctx, b.Bytes); err != nil {
		r.log.Warn("journal write failed", "cid", r.result.CID, "error", err)
	}
}
