package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"cargo-insurance-service/internal/domain"
)

// Wallet provider error codes (EIP-1193 / EIP-3326).
const (
	rpcCodeUserRejected      = 4001
	rpcCodeUnrecognizedChain = 4902
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Body)
}

// rpcClient is the JSON-RPC transport under the gateway. Error mapping into
// the domain taxonomy happens in the gateway, once, at this boundary.
type rpcClient struct {
	session *http.Client
	url     string
	nextID  atomic.Uint64
}

func newRPCClient(url string) *rpcClient {
	return &rpcClient{
		session: &http.Client{Timeout: 15 * time.Second},
		url:     url,
	}
}

func (c *rpcClient) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &httpStatusError{Code: resp.StatusCode, Body: string(b)}
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// callWithRetry retries transient failures (network errors, 429/5xx) using
// exponential backoff while respecting context cancellation. Used only for
// side-effect-free read methods; writes go through call exactly once.
func (c *rpcClient) callWithRetry(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := c.call(ctx, method, params...)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !transient(err) || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func transient(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// mapRPCError translates provider errors into the domain taxonomy. This is
// the single place wallet/transport failures are classified; callers branch
// on the domain sentinels only.
func mapRPCError(err error) error {
	if err == nil {
		return nil
	}
	// Context expiry must survive unchanged: context.DeadlineExceeded also
	// implements net.Error, and classifying it as a gateway outage would hide
	// the bounded-wait expiry from the submitter.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var re *rpcError
	if errors.As(err, &re) {
		switch re.Code {
		case rpcCodeUserRejected:
			return fmt.Errorf("%s: %w", re.Message, domain.ErrUserCancelled)
		case rpcCodeUnrecognizedChain:
			return fmt.Errorf("%s: %w", re.Message, domain.ErrWrongNetwork)
		}
		return err
	}
	var he *httpStatusError
	if errors.As(err, &he) {
		return fmt.Errorf("%v: %w", err, domain.ErrGatewayUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%v: %w", err, domain.ErrGatewayUnavailable)
	}
	return err
}
