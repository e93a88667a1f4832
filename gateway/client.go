// Package gateway is an HTTP client for the ledger gateway API: the current
// epoch, transaction submission, transaction status and file retrieval from
// the storage component.
package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"xdao.co/radup/blob"
	"xdao.co/radup/internal/logging"
)

const (
	PathGatewayStatus     = "/status/gateway-status"
	PathTransactionSubmit = "/transaction/submit"
	PathTransactionStatus = "/transaction/status"
	PathGetFile           = "/component/get-file"

	// DefaultTimeout bounds each HTTP call.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// UserAgent is sent with every request.
var UserAgent = "radup/1"

// Client talks to one gateway base URL. The zero value is not usable; set
// BaseURL. Other fields fall back to defaults.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Retry      Retry
	Logger     *slog.Logger
}

// New returns a client for baseURL with default timeout and retry policy.
func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: DefaultTimeout,
		Retry:   DefaultRetry,
		Logger:  logger,
	}
}

// Storage component event names.
const (
	EventFileStored    = "FileStored"
	EventFileRetrieved = "FileRetrieved"
)

// Event is an event the storage component emitted.
type Event struct {
	Name     string `json:"name"`
	FileHash string `json:"file_hash"`
	FileName string `json:"file_name"`
}

// SubmitResult is the gateway's answer to an accepted submission.
type SubmitResult struct {
	Duplicate bool            `json:"duplicate"`
	Events    []Event         `json:"events,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// File is a file read back from the storage component.
type File struct {
	Name    string
	Content []byte
	Events  []Event
}

// StatusResult is the gateway's view of a transaction intent.
type StatusResult struct {
	Status       string          `json:"status"`
	IntentStatus string          `json:"intent_status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// Committed reports whether the intent was committed (successfully or not).
func (s *StatusResult) Committed() bool {
	return strings.HasPrefix(s.IntentStatus, "Committed") || strings.HasPrefix(s.Status, "Committed")
}

type gatewayStatus struct {
	LedgerState struct {
		Epoch *uint64 `json:"epoch"`
	} `json:"ledger_state"`
}

// CurrentEpoch returns ledger_state.epoch from the gateway status endpoint.
// Transient failures are retried per c.Retry.
func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	var epoch uint64
	err := c.Retry.do(ctx, c.logger(), "current-epoch", func() error {
		status, body, _, err := c.post(ctx, PathGatewayStatus, struct{}{})
		if err != nil {
			return &Error{Kind: KindUnavailable, Op: "current-epoch", Cause: err}
		}
		if status/100 != 2 {
			return &Error{Kind: KindUnavailable, Op: "current-epoch", StatusCode: status, Body: string(body)}
		}
		var gs gatewayStatus
		if err := json.Unmarshal(body, &gs); err != nil {
			return &Error{Kind: KindUnavailable, Op: "current-epoch", Cause: fmt.Errorf("decode response: %w", err)}
		}
		if gs.LedgerState.Epoch == nil {
			return &Error{Kind: KindUnavailable, Op: "current-epoch", Cause: errors.New("response has no ledger_state.epoch")}
		}
		epoch = *gs.LedgerState.Epoch
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.logger().Debug("fetched epoch", "epoch", epoch)
	return epoch, nil
}

// Submit posts a compiled notarized transaction. It is called at most once
// per transaction and never retried: a transport failure after the request
// was written yields KindAmbiguous, a non-2xx answer KindRejected.
func (c *Client) Submit(ctx context.Context, compiled []byte) (*SubmitResult, error) {
	req := map[string]string{"notarized_transaction_hex": hex.EncodeToString(compiled)}
	status, body, wrote, err := c.post(ctx, PathTransactionSubmit, req)
	if err != nil {
		kind := KindUnavailable
		if wrote {
			kind = KindAmbiguous
		}
		return nil, &Error{Kind: kind, Op: "submit", Cause: err}
	}
	if status/100 != 2 {
		return nil, &Error{Kind: KindRejected, Op: "submit", StatusCode: status, Body: string(body)}
	}
	res := &SubmitResult{Raw: json.RawMessage(body)}
	if err := json.Unmarshal(body, res); err != nil {
		// Accepted, but the answer is unreadable.
		return nil, &Error{Kind: KindAmbiguous, Op: "submit", Cause: fmt.Errorf("decode response: %w", err)}
	}
	c.logger().Info("transaction submitted", "duplicate", res.Duplicate)
	return res, nil
}

// TransactionStatus asks the gateway about an intent hash (hex or txid).
func (c *Client) TransactionStatus(ctx context.Context, intentHash string) (*StatusResult, error) {
	var res *StatusResult
	err := c.Retry.do(ctx, c.logger(), "transaction-status", func() error {
		status, body, _, err := c.post(ctx, PathTransactionStatus, map[string]string{"intent_hash": intentHash})
		if err != nil {
			return &Error{Kind: KindUnavailable, Op: "transaction-status", Cause: err}
		}
		if status/100 != 2 {
			return &Error{Kind: KindUnavailable, Op: "transaction-status", StatusCode: status, Body: string(body)}
		}
		r := &StatusResult{Raw: json.RawMessage(body)}
		if err := json.Unmarshal(body, r); err != nil {
			return &Error{Kind: KindUnavailable, Op: "transaction-status", Cause: fmt.Errorf("decode response: %w", err)}
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type getFileResponse struct {
	FileName   string  `json:"file_name"`
	ContentHex string  `json:"content_hex"`
	Events     []Event `json:"events"`
}

// GetFile calls the component's get_file method for hash. An unknown hash is
// KindNotFound. The content is checked against hash before it is returned.
func (c *Client) GetFile(ctx context.Context, component string, hash blob.Hash) (*File, error) {
	const op = "get-file"
	var resp getFileResponse
	err := c.Retry.do(ctx, c.logger(), op, func() error {
		status, body, _, err := c.post(ctx, PathGetFile, map[string]string{
			"component_address": component,
			"file_hash":         hash.Hex(),
		})
		switch {
		case err != nil:
			return &Error{Kind: KindUnavailable, Op: op, Cause: err}
		case status == http.StatusNotFound:
			return &Error{Kind: KindNotFound, Op: op, StatusCode: status, Body: string(body)}
		case status/100 != 2:
			return &Error{Kind: KindUnavailable, Op: op, StatusCode: status, Body: string(body)}
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return &Error{Kind: KindUnavailable, Op: op, Cause: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	content, err := hex.DecodeString(resp.ContentHex)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Cause: fmt.Errorf("content_hex: %w", err)}
	}
	if got := blob.Sum(content); got != hash {
		return nil, &Error{Kind: KindUnavailable, Op: op, Cause: fmt.Errorf("content hash %s does not match %s", got, hash)}
	}
	return &File{Name: resp.FileName, Content: content, Events: resp.Events}, nil
}

// post sends one JSON request. wrote reports whether the request was fully
// written to the connection before any error.
func (c *Client) post(ctx context.Context, path string, payload any) (status int, body []byte, wrote bool, err error) {
	if c.BaseURL == "" {
		return 0, nil, false, errors.New("gateway base URL is empty")
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, false, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var written atomic.Bool
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				written.Store(true)
			}
		},
	})

	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, false, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().Debug("gateway request failed", "path", path, "request_id", requestID, "error", err)
		return 0, nil, written.Load(), err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, true, fmt.Errorf("read response: %w", err)
	}
	c.logger().Debug("gateway request",
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return resp.StatusCode, body, true, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger { return logging.OrNop(c.Logger) }
