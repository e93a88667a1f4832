package gatewaysim

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"xdao.co/radup/address"
	"xdao.co/radup/blob"
	"xdao.co/radup/gateway"
	"xdao.co/radup/keys"
	"xdao.co/radup/manifest"
	"xdao.co/radup/network"
	"xdao.co/radup/txn"
)

const simComponent = "component_sim1cqqqzqsrqszsvpcgpy9qkrqdpc83qygjzv2p29shrqv35xcuf39x77"

type fixture struct {
	sim    *Server
	srv    *httptest.Server
	client *gateway.Client
	acct   *keys.Account
}

func newFixture(t *testing.T, epoch uint64, opts ...func(*Server)) *fixture {
	t.Helper()
	sim := New(network.Simulator, epoch, nil)
	for _, o := range opts {
		o(sim)
	}
	srv := httptest.NewServer(sim.Handler())
	t.Cleanup(srv.Close)

	secret := make([]byte, keys.SecretSize)
	secret[31] = 1
	acct, err := keys.ResolveAccount(secret, keys.Secp256k1, network.Simulator)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	c := gateway.New(srv.URL, nil)
	c.Retry = gateway.Retry{Attempts: 1}
	return &fixture{sim: sim, srv: srv, client: c, acct: acct}
}

func (f *fixture) build(t *testing.T, content string, start uint64, nonce uint32, net network.Network) []byte {
	t.Helper()
	comp, err := address.ParseComponent(simComponent, network.Simulator)
	if err != nil {
		t.Fatalf("ParseComponent: %v", err)
	}
	m, err := manifest.StoreFile(f.acct.Address, comp, "file.txt", blob.New([]byte(content)), "")
	if err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	h := txn.Header{
		NetworkID:         net.ID,
		StartEpoch:        start,
		EndEpoch:          start + 10,
		Nonce:             nonce,
		NotaryPublicKey:   f.acct.PublicKey(),
		NotaryIsSignatory: true,
	}
	if net.ID != network.Simulator.ID {
		// Validation would reject a simulator address on another network, so
		// sign the header only and splice the manifest in directly.
		intent := txn.Intent{Header: h, Blobs: m.Blobs}
		intent.Manifest, _ = manifest.Render(m)
		signed := txn.SignedIntent{Intent: intent, IntentSignatures: []txn.IntentSignature{}}
		hash, _ := signed.Hash()
		sig, _ := f.acct.Sign(hash)
		compiled, err := (&txn.NotarizedTransaction{SignedIntent: signed, NotarySignature: sig}).Compile()
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		return compiled
	}
	tx, err := txn.NewBuilder().Header(h).Manifest(m).Notarize(f.acct)
	if err != nil {
		t.Fatalf("Notarize: %v", err)
	}
	compiled, err := tx.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return compiled
}

func rejectionType(t *testing.T, err error) string {
	t.Helper()
	var ge *gateway.Error
	if !errors.As(err, &ge) || ge.Kind != gateway.KindRejected {
		t.Fatalf("expected rejection, got %v", err)
	}
	for _, r := range []string{ReasonMalformed, ReasonInvalid, ReasonWrongNetwork, ReasonEpochWindow, ReasonFileTooLarge, ReasonAlreadyStored} {
		if strings.Contains(ge.Body, `"type":"`+r+`"`) {
			return r
		}
	}
	t.Fatalf("no rejection type in %s", ge.Body)
	return ""
}

func TestSubmit_CommitsAndDeduplicates(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	epoch, err := f.client.CurrentEpoch(ctx)
	if err != nil || epoch != 100 {
		t.Fatalf("CurrentEpoch = %d, %v", epoch, err)
	}

	compiled := f.build(t, "hello", 100, 1, network.Simulator)
	res, err := f.client.Submit(ctx, compiled)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("first submission reported duplicate")
	}
	res, err = f.client.Submit(ctx, compiled)
	if err != nil || !res.Duplicate {
		t.Fatalf("resubmission: %+v, %v", res, err)
	}

	committed := f.sim.Committed()
	if len(committed) != 1 || len(committed[0].Files) != 1 || committed[0].Files[0].Hash != blob.Sum([]byte("hello")) {
		t.Fatalf("committed = %+v", committed)
	}

	st, err := f.client.TransactionStatus(ctx, committed[0].TransactionID)
	if err != nil || !st.Committed() {
		t.Fatalf("TransactionStatus = %+v, %v", st, err)
	}
	st, err = f.client.TransactionStatus(ctx, strings.Repeat("00", 32))
	if err != nil || st.Committed() || st.Status != "Unknown" {
		t.Fatalf("unknown status = %+v, %v", st, err)
	}
}

func TestSubmit_RejectsSameFileTwice(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	if _, err := f.client.Submit(ctx, f.build(t, "hello", 100, 1, network.Simulator)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := f.client.Submit(ctx, f.build(t, "hello", 100, 2, network.Simulator))
	if got := rejectionType(t, err); got != ReasonAlreadyStored {
		t.Fatalf("got %s", got)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, err := f.client.Submit(ctx, f.build(t, "a", 50, 1, network.Simulator))
	if got := rejectionType(t, err); got != ReasonEpochWindow {
		t.Fatalf("stale window: got %s", got)
	}
	_, err = f.client.Submit(ctx, f.build(t, "b", 100, 1, network.Stokenet))
	if got := rejectionType(t, err); got != ReasonWrongNetwork {
		t.Fatalf("wrong network: got %s", got)
	}
	compiled := f.build(t, "c", 100, 1, network.Simulator)
	compiled[len(compiled)-1] ^= 0xff
	_, err = f.client.Submit(ctx, compiled)
	if got := rejectionType(t, err); got != ReasonMalformed && got != ReasonInvalid {
		t.Fatalf("tampered: got %s", got)
	}
	if n := len(f.sim.Committed()); n != 0 {
		t.Fatalf("rejected transactions were committed: %d", n)
	}
}

func TestSubmit_RejectsLargeFile(t *testing.T) {
	f := newFixture(t, 100, func(s *Server) { s.MaxFileSize = 3 })
	_, err := f.client.Submit(context.Background(), f.build(t, "toolarge", 100, 1, network.Simulator))
	if got := rejectionType(t, err); got != ReasonFileTooLarge {
		t.Fatalf("got %s", got)
	}
}

func TestEpochAndMetrics(t *testing.T) {
	f := newFixture(t, 7)
	if got := f.sim.AdvanceEpoch(); got != 8 {
		t.Fatalf("AdvanceEpoch = %d", got)
	}
	f.sim.SetEpoch(100)
	if _, err := f.client.Submit(context.Background(), f.build(t, "m", 100, 1, network.Simulator)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`radup_gatewaysim_submissions_total{result="committed"} 1`,
		"radup_gatewaysim_epoch 100",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestGetFile_ReturnsStoredFileAndEmitsEvents(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	hash := blob.Sum([]byte("hello"))

	res, err := f.client.Submit(ctx, f.build(t, "hello", 100, 1, network.Simulator))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stored := gateway.Event{Name: gateway.EventFileStored, FileHash: hash.Hex(), FileName: "file.txt"}
	if len(res.Events) != 1 || res.Events[0] != stored {
		t.Fatalf("submit events = %+v", res.Events)
	}

	got, err := f.client.GetFile(ctx, simComponent, hash)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.Name != "file.txt" || string(got.Content) != "hello" {
		t.Fatalf("file = %+v", got)
	}
	retrieved := gateway.Event{Name: gateway.EventFileRetrieved, FileHash: hash.Hex(), FileName: "file.txt"}
	if len(got.Events) != 1 || got.Events[0] != retrieved {
		t.Fatalf("get events = %+v", got.Events)
	}

	events := f.sim.Events()
	if len(events) != 2 || events[0] != stored || events[1] != retrieved {
		t.Fatalf("Events() = %+v", events)
	}
	if sf, ok := f.sim.File(simComponent, hash); !ok || sf.TransactionID != f.sim.Committed()[0].TransactionID {
		t.Fatalf("File() = %+v, %v", sf, ok)
	}
}

func TestGetFile_NotFound(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	if _, err := f.client.Submit(ctx, f.build(t, "hello", 100, 1, network.Simulator)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := f.client.GetFile(ctx, simComponent, blob.Sum([]byte("never stored")))
	if !gateway.IsKind(err, gateway.KindNotFound) {
		t.Fatalf("unknown hash: got %v", err)
	}

	other, err := address.New(address.EntityGlobalGenericComponent, make([]byte, address.NodeIDLength), network.Simulator)
	if err != nil {
		t.Fatalf("address.New: %v", err)
	}
	_, err = f.client.GetFile(ctx, other.String(), blob.Sum([]byte("hello")))
	if !gateway.IsKind(err, gateway.KindNotFound) {
		t.Fatalf("other component: got %v", err)
	}

	_, err = f.client.GetFile(ctx, "not-a-component", blob.Sum([]byte("hello")))
	var ge *gateway.Error
	if !errors.As(err, &ge) || ge.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad component: got %v", err)
	}
	if n := len(f.sim.Events()); n != 1 {
		t.Fatalf("failed lookups emitted events: %d", n)
	}
}
