// Package gatewaysim is an in-process stand-in for the ledger gateway and
// the file storage component. It serves the same HTTP endpoints the gateway
// client uses, decompiles and verifies every submission, and enforces the
// component's rules: bounded file size and no file stored twice. Stored files
// can be read back with get_file; both calls emit component events.
package gatewaysim

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xdao.co/radup/address"
	"xdao.co/radup/blob"
	"xdao.co/radup/gateway"
	"xdao.co/radup/internal/logging"
	"xdao.co/radup/manifest"
	"xdao.co/radup/network"
	"xdao.co/radup/txn"
)

// Component methods.
const (
	StoreMethod = "store_file"
	GetMethod   = "get_file"
)

// Rejection reasons, reported in details.type.
const (
	ReasonMalformed     = "MalformedTransaction"
	ReasonInvalid       = "InvalidTransaction"
	ReasonWrongNetwork  = "WrongNetwork"
	ReasonEpochWindow   = "EpochWindow"
	ReasonFileTooLarge  = "FileTooLarge"
	ReasonAlreadyStored = "FileAlreadyStored"
	ReasonFileNotFound  = "FileNotFound"
)

// Committed is a transaction the simulator accepted.
type Committed struct {
	TransactionID string
	IntentHash    [32]byte
	Epoch         uint64
	Files         []StoredFile
	Events        []gateway.Event
}

// StoredFile is one store_file call of a committed transaction.
type StoredFile struct {
	Component     string
	Name          string
	Hash          blob.Hash
	Content       []byte
	TransactionID string
}

// fileKey scopes files to the component that stored them.
type fileKey struct {
	component string
	hash      blob.Hash
}

// Server simulates a gateway for one network.
type Server struct {
	Network     network.Network
	MaxFileSize int
	Logger      *slog.Logger

	mu        sync.Mutex
	epoch     uint64
	committed map[[32]byte]*Committed
	files     map[fileKey]*StoredFile
	order     []*Committed
	events    []gateway.Event

	metrics *metrics
}

// New returns a simulator at epoch.
func New(net network.Network, epoch uint64, logger *slog.Logger) *Server {
	s := &Server{
		Network:     net,
		MaxFileSize: blob.DefaultMaxSize,
		Logger:      logging.OrNop(logger),
		epoch:       epoch,
		committed:   map[[32]byte]*Committed{},
		files:       map[fileKey]*StoredFile{},
		metrics:     newMetrics(),
	}
	s.metrics.epoch.Set(float64(epoch))
	return s
}

// Epoch returns the current epoch.
func (s *Server) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// SetEpoch moves the ledger clock.
func (s *Server) SetEpoch(e uint64) {
	s.mu.Lock()
	s.epoch = e
	s.mu.Unlock()
	s.metrics.epoch.Set(float64(e))
}

// AdvanceEpoch increments the epoch by one and returns it.
func (s *Server) AdvanceEpoch() uint64 {
	s.mu.Lock()
	s.epoch++
	e := s.epoch
	s.mu.Unlock()
	s.metrics.epoch.Set(float64(e))
	return e
}

// Committed returns accepted transactions in commit order.
func (s *Server) Committed() []Committed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Committed, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, *c)
	}
	return out
}

// File returns a stored file of component.
func (s *Server) File(component string, hash blob.Hash) (StoredFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileKey{component, hash}]
	if !ok {
		return StoredFile{}, false
	}
	return *f, true
}

// Events returns every component event in emission order.
func (s *Server) Events() []gateway.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gateway.Event(nil), s.events...)
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post(gateway.PathGatewayStatus, s.handleStatus)
	r.Post(gateway.PathTransactionSubmit, s.handleSubmit)
	r.Post(gateway.PathTransactionStatus, s.handleTransactionStatus)
	r.Post(gateway.PathGetFile, s.handleGetFile)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Debug("gatewaysim request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", r.Header.Get("Request-ID"),
		)
	})
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details struct {
		Type string `json:"type"`
	} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) reject(w http.ResponseWriter, reason, format string, a ...any) {
	resp := errorResponse{Message: fmt.Sprintf(format, a...), Code: http.StatusBadRequest}
	resp.Details.Type = reason
	s.metrics.submissions.WithLabelValues("rejected").Inc()
	s.Logger.Info("submission rejected", "reason", reason, "message", resp.Message)
	writeJSON(w, http.StatusBadRequest, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	epoch := s.epoch
	version := len(s.order)
	s.mu.Unlock()

	resp := map[string]any{
		"ledger_state": map[string]any{
			"network":       s.Network.Name,
			"epoch":         epoch,
			"state_version": version,
		},
		"release_info": map[string]any{"release_version": "radup-gatewaysim"},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NotarizedTransactionHex string `json:"notarized_transaction_hex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.reject(w, ReasonMalformed, "invalid request body: %v", err)
		return
	}
	raw, err := hex.DecodeString(body.NotarizedTransactionHex)
	if err != nil || len(raw) == 0 {
		s.reject(w, ReasonMalformed, "notarized_transaction_hex is not valid hex")
		return
	}
	tx, err := txn.Decompile(raw)
	if err != nil {
		s.reject(w, ReasonMalformed, "invalid transaction: %v", err)
		return
	}
	h := tx.SignedIntent.Intent.Header
	if h.NetworkID != s.Network.ID {
		s.reject(w, ReasonWrongNetwork, "transaction is for network 0x%02x, gateway serves %s", h.NetworkID, s.Network.Name)
		return
	}
	if err := tx.Verify(); err != nil {
		s.reject(w, ReasonInvalid, "invalid transaction: %v", err)
		return
	}
	intentHash, err := tx.IntentHash()
	if err != nil {
		s.reject(w, ReasonMalformed, "invalid transaction: %v", err)
		return
	}
	id, err := tx.ID()
	if err != nil {
		s.reject(w, ReasonMalformed, "invalid transaction: %v", err)
		return
	}
	m, err := tx.Manifest()
	if err != nil {
		s.reject(w, ReasonInvalid, "invalid transaction: %v", err)
		return
	}
	files, err := s.storedFiles(m)
	if err != nil {
		s.reject(w, ReasonInvalid, "invalid transaction: %v", err)
		return
	}
	for _, f := range files {
		if len(f.Content) > s.MaxFileSize {
			s.reject(w, ReasonFileTooLarge, "file %q is %d bytes, limit is %d", f.Name, len(f.Content), s.MaxFileSize)
			return
		}
	}

	c := &Committed{TransactionID: id, IntentHash: intentHash, Files: files}
	duplicate, reason, msg := s.commit(c, h)
	switch {
	case reason != "":
		s.reject(w, reason, "%s", msg)
	case duplicate:
		s.metrics.submissions.WithLabelValues("duplicate").Inc()
		writeJSON(w, http.StatusOK, map[string]bool{"duplicate": true})
	default:
		s.metrics.submissions.WithLabelValues("committed").Inc()
		s.Logger.Info("transaction committed", "txid", id, "files", len(files))
		writeJSON(w, http.StatusOK, map[string]any{"duplicate": false, "events": c.Events})
	}
}

// commit applies c atomically. A known intent hash is a duplicate, not an
// error; otherwise a non-empty reason names the rejection.
func (s *Server) commit(c *Committed, h txn.Header) (duplicate bool, reason, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.committed[c.IntentHash]; ok {
		return true, "", ""
	}
	if s.epoch < h.StartEpoch || s.epoch >= h.EndEpoch {
		return false, ReasonEpochWindow, fmt.Sprintf("current epoch %d is outside the transaction window [%d, %d)", s.epoch, h.StartEpoch, h.EndEpoch)
	}
	seen := map[fileKey]bool{}
	for _, f := range c.Files {
		k := fileKey{f.Component, f.Hash}
		if prev, ok := s.files[k]; ok {
			return false, ReasonAlreadyStored, fmt.Sprintf("file %s was already stored by %s", f.Hash, prev.TransactionID)
		}
		if seen[k] {
			return false, ReasonAlreadyStored, fmt.Sprintf("file %s is stored twice in one transaction", f.Hash)
		}
		seen[k] = true
	}

	c.Epoch = s.epoch
	s.committed[c.IntentHash] = c
	s.order = append(s.order, c)
	for i := range c.Files {
		f := &c.Files[i]
		f.TransactionID = c.TransactionID
		s.files[fileKey{f.Component, f.Hash}] = f
		s.metrics.blobBytes.Add(float64(len(f.Content)))
		c.Events = append(c.Events, gateway.Event{Name: gateway.EventFileStored, FileHash: f.Hash.Hex(), FileName: f.Name})
	}
	s.events = append(s.events, c.Events...)
	return false, "", ""
}

// storedFiles extracts store_file calls. Blob hashes were already checked
// against attachments by Verify.
func (s *Server) storedFiles(m *manifest.Manifest) ([]StoredFile, error) {
	content := make(map[blob.Hash][]byte, len(m.Blobs))
	for _, b := range m.Blobs {
		content[blob.Sum(b)] = b
	}
	var out []StoredFile
	for _, in := range m.Instructions {
		if in.Method != StoreMethod {
			continue
		}
		component, err := address.ParseComponent(in.Receiver, s.Network)
		if err != nil {
			return nil, fmt.Errorf("store_file receiver: %w", err)
		}
		if len(in.Args) != 2 || in.Args[0].Type != manifest.TypeBlob || in.Args[1].Type != manifest.TypeString {
			return nil, fmt.Errorf("store_file expects (Blob, String) arguments")
		}
		out = append(out, StoredFile{
			Component: component.String(),
			Name:      in.Args[1].Text,
			Hash:      in.Args[0].Hash,
			Content:   content[in.Args[0].Hash],
		})
	}
	return out, nil
}

func (s *Server) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntentHash string `json:"intent_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body", Code: http.StatusBadRequest})
		return
	}
	hash, err := s.parseIntentHash(body.IntentHash)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	s.mu.Lock()
	_, ok := s.committed[hash]
	s.mu.Unlock()

	status := "Unknown"
	if ok {
		status = "CommittedSuccess"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "intent_status": status})
}

func (s *Server) parseIntentHash(text string) ([32]byte, error) {
	if strings.HasPrefix(text, txn.TxIDPrefix) {
		return address.DecodeHash(txn.TxIDPrefix, text, s.Network)
	}
	var out [32]byte
	b, err := hex.DecodeString(text)
	if err != nil || len(b) != len(out) {
		return out, fmt.Errorf("intent_hash must be a transaction id or 64 hex characters")
	}
	copy(out[:], b)
	return out, nil
}

// handleGetFile runs the component's get_file method: it returns the stored
// name and bytes and emits FileRetrieved.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Component string `json:"component_address"`
		FileHash  string `json:"file_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body", Code: http.StatusBadRequest})
		return
	}
	component, err := address.ParseComponent(body.Component, s.Network)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error(), Code: http.StatusBadRequest})
		return
	}
	hash, err := blob.ParseHash(body.FileHash)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	s.mu.Lock()
	f, ok := s.files[fileKey{component.String(), hash}]
	var ev gateway.Event
	if ok {
		ev = gateway.Event{Name: gateway.EventFileRetrieved, FileHash: hash.Hex(), FileName: f.Name}
		s.events = append(s.events, ev)
	}
	s.mu.Unlock()

	if !ok {
		resp := errorResponse{Message: "Nothing stored with this hash", Code: http.StatusNotFound}
		resp.Details.Type = ReasonFileNotFound
		s.metrics.retrievals.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	s.metrics.retrievals.WithLabelValues("found").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"file_name":   f.Name,
		"file_hash":   hash.Hex(),
		"content_hex": hex.EncodeToString(f.Content),
		"events":      []gateway.Event{ev},
	})
}
