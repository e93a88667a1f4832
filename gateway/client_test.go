package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"xdao.co/radup/blob"
)

func fastClient(url string) *Client {
	c := New(url, nil)
	c.Retry = Retry{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}
	c.Timeout = 2 * time.Second
	return c
}

func TestCurrentEpoch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathGatewayStatus {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("Request-ID") == "" {
			t.Errorf("missing headers: %v", r.Header)
		}
		io.WriteString(w, `{"ledger_state":{"epoch":100,"network":"simulator"}}`)
	}))
	defer srv.Close()

	epoch, err := fastClient(srv.URL).CurrentEpoch(context.Background())
	if err != nil {
		t.Fatalf("CurrentEpoch: %v", err)
	}
	if epoch != 100 {
		t.Fatalf("epoch = %d", epoch)
	}
}

func TestCurrentEpoch_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"ledger_state":{"epoch":7}}`)
	}))
	defer srv.Close()

	epoch, err := fastClient(srv.URL).CurrentEpoch(context.Background())
	if err != nil || epoch != 7 {
		t.Fatalf("CurrentEpoch = %d, %v", epoch, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestCurrentEpoch_Unavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"500": func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", 500) },
		"malformed": func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"ledger_state":`) },
		"no epoch": func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"ledger_state":{}}`) },
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		_, err := fastClient(srv.URL).CurrentEpoch(context.Background())
		srv.Close()
		if !IsKind(err, KindUnavailable) {
			t.Fatalf("%s: expected unavailable, got %v", name, err)
		}
	}
}

func TestCurrentEpoch_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := fastClient(srv.URL).CurrentEpoch(context.Background()); !IsKind(err, KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestSubmit(t *testing.T) {
	compiled := []byte{0xde, 0xad, 0xbe, 0xef}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathTransactionSubmit {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["notarized_transaction_hex"] != hex.EncodeToString(compiled) {
			t.Errorf("body = %v", body)
		}
		io.WriteString(w, `{"duplicate": false}`)
	}))
	defer srv.Close()

	res, err := fastClient(srv.URL).Submit(context.Background(), compiled)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Duplicate || string(res.Raw) != `{"duplicate": false}` {
		t.Fatalf("result = %+v", res)
	}
}

func TestSubmit_RejectedSurfacesBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"invalid transaction"}`)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Submit(context.Background(), []byte{1})
	if !IsKind(err, KindRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	if !strings.Contains(err.Error(), `{"message":"invalid transaction"}`) {
		t.Fatalf("body not surfaced: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("submit retried: %d calls", calls.Load())
	}
}

func TestSubmit_AmbiguousAfterWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.ReadAll(r.Body)
		time.Sleep(20 * time.Millisecond)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("no hijacker")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Submit(context.Background(), []byte{1})
	if !IsKind(err, KindAmbiguous) {
		t.Fatalf("expected ambiguous, got %v", err)
	}
}

func TestSubmit_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := fastClient(url).Submit(context.Background(), []byte{1})
	if !IsKind(err, KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestTransactionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["intent_hash"] != "txid_sim1abc" {
			t.Errorf("body = %v", body)
		}
		io.WriteString(w, `{"status":"CommittedSuccess","intent_status":"CommittedSuccess"}`)
	}))
	defer srv.Close()

	res, err := fastClient(srv.URL).TransactionStatus(context.Background(), "txid_sim1abc")
	if err != nil {
		t.Fatalf("TransactionStatus: %v", err)
	}
	if !res.Committed() {
		t.Fatalf("result = %+v", res)
	}
}

func TestRetry_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.Retry = Retry{Attempts: 5, Base: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.CurrentEpoch(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGetFile(t *testing.T) {
	content := []byte("hello")
	hash := blob.Sum(content)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathGetFile {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["component_address"] != "component_sim1xyz" || body["file_hash"] != hash.Hex() {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"file_name":   "hello.txt",
			"file_hash":   hash.Hex(),
			"content_hex": hex.EncodeToString(content),
			"events":      []Event{{Name: EventFileRetrieved, FileHash: hash.Hex(), FileName: "hello.txt"}},
		})
	}))
	defer srv.Close()

	f, err := fastClient(srv.URL).GetFile(context.Background(), "component_sim1xyz", hash)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Name != "hello.txt" || string(f.Content) != "hello" {
		t.Fatalf("file = %+v", f)
	}
	if len(f.Events) != 1 || f.Events[0].Name != EventFileRetrieved {
		t.Fatalf("events = %+v", f.Events)
	}
}

func TestGetFile_RejectsWrongContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"file_name":"a.txt","content_hex":"`+hex.EncodeToString([]byte("other"))+`"}`)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).GetFile(context.Background(), "component_sim1xyz", blob.Sum([]byte("hello")))
	if !IsKind(err, KindUnavailable) || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("expected hash mismatch, got %v", err)
	}
}

func TestGetFile_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"Nothing stored with this hash"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).GetFile(context.Background(), "component_sim1xyz", blob.Sum([]byte("x")))
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}
