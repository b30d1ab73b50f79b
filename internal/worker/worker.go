// Package worker holds the persistent HTTP client the guard uses to reach
// the raw MT worker: a single long-lived connection pool (mirroring the
// reference guard's module-level requests.Session with a mounted
// HTTPAdapter retry strategy), a bounded-retry POST helper for transient
// 5xx failures, and the batch-with-parallel-fallback call shape of
// translate_via_worker.
//
// Grounded on the reference guard's mt_guard.py (_build_session,
// _call_worker_translate, _call_worker_batch, translate_via_worker) and on
// the teacher proxy's http.Transport tuning in internal/proxy/proxy.go.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/askalator/trancelate-ANNI/internal/config"
)

// retryTotal, retryBackoff and retryStatuses mirror mt_guard.py's
// _build_session Retry(total=3, backoff_factor=0.1,
// status_forcelist=[500,502,503,504]): urllib3's backoff schedule sleeps
// backoff_factor * 2**(attempt-1) between attempts, which sleepBackoff
// reproduces.
const retryTotal = 3

var retryBackoff = 100 * time.Millisecond

var retryStatuses = map[int]bool{500: true, 502: true, 503: true, 504: true}

// Chunk is one unit of text sent to the worker and the translation it comes
// back with, mirroring the reference guard's per-chunk Out field.
type Chunk struct {
	Text string
	Out  string
}

// Client is a persistent HTTP client to the MT worker, analogous to
// mt_guard.py's module-level SESSION: the transport's connection pool is
// built once and reused across every translate call.
type Client struct {
	baseURL          string
	timeout          time.Duration
	maxWorkers       int
	enableBatch      bool
	batchConcurrency int
	http             *http.Client
}

// New builds a worker client from guard configuration, reusing the
// teacher reverse proxy's http.Transport tuning (keep-alive dialer, idle
// connection pool, HTTP/2) rather than a bare http.DefaultClient, since a
// guard instance may issue many short-lived translate calls per second and
// benefits from the same connection reuse the teacher proxy relies on.
func New(cfg *config.Config) *Client {
	transport := &http.Transport{
		Proxy: nil, // mt_guard.py's session.trust_env = False: never honor *_PROXY env vars for worker calls
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	timeout := time.Duration(cfg.WorkerTimeoutSecs * float64(time.Second))
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxWorkers := cfg.MaxWorkersGuard
	if maxWorkers <= 0 {
		maxWorkers = 3
	}
	batchConcurrency := cfg.BatchConcurrency
	if batchConcurrency <= 0 {
		batchConcurrency = 8
	}
	return &Client{
		baseURL:          cfg.WorkerBaseURL(),
		timeout:          timeout,
		maxWorkers:       maxWorkers,
		enableBatch:      cfg.EnableWorkerBatch,
		batchConcurrency: batchConcurrency,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

type translateRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

type batchRequest struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Texts  []string `json:"texts"`
}

type batchResponse struct {
	TranslatedTexts []string `json:"translated_texts"`
}

// postJSON POSTs body as JSON to path and decodes the response into out,
// retrying on connection failures and on the 5xx statuses urllib3's Retry
// treats as transient, with the same backoff schedule as
// _build_session's status_forcelist retry.
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= retryTotal; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.sleepBackoff(ctx, attempt)
			continue
		}

		if retryStatuses[resp.StatusCode] && attempt < retryTotal {
			resp.Body.Close()
			lastErr = fmt.Errorf("worker_status_%d", resp.StatusCode)
			c.sleepBackoff(ctx, attempt)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("worker_failed_%d", resp.StatusCode)
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(data, out)
	}
	return lastErr
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) {
	delay := retryBackoff << uint(attempt-1)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

// TranslateOne calls the worker's single-text /translate endpoint.
func (c *Client) TranslateOne(ctx context.Context, text, src, tgt string) (string, error) {
	var out translateResponse
	if err := c.postJSON(ctx, "/translate", translateRequest{Source: src, Target: tgt, Text: text}, &out); err != nil {
		return "", err
	}
	return out.TranslatedText, nil
}

// TranslateBatch calls the worker's /translate_batch endpoint. It returns
// an error if the batch call fails or returns a mismatched count, mirroring
// _call_worker_batch's bare status check and translate_via_worker's
// len(outs) == len(chunks) guard against a partial batch response.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	var out batchResponse
	if err := c.postJSON(ctx, "/translate_batch", batchRequest{Source: src, Target: tgt, Texts: texts}, &out); err != nil {
		return nil, err
	}
	return out.TranslatedTexts, nil
}

// TranslateChunks fills in chunks[i].Out for every chunk, preferring one
// batch call when enabled and there's more than one chunk, and falling
// back to parallel single-chunk calls — bounded to maxWorkers concurrent
// requests via a semaphore — when batching is disabled, not worth it for a
// single chunk, or the batch call fails outright. Mirrors
// translate_via_worker's two-path shape exactly.
func (c *Client) TranslateChunks(ctx context.Context, chunks []*Chunk, src, tgt string) (time.Duration, error) {
	start := time.Now()
	if len(chunks) == 0 {
		return 0, nil
	}

	if c.enableBatch && len(chunks) > 1 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		if outs, err := c.TranslateBatch(ctx, texts, src, tgt); err == nil && len(outs) == len(chunks) {
			for i, o := range outs {
				chunks[i].Out = o
			}
			return time.Since(start), nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for _, ch := range chunks {
		ch := ch
		g.Go(func() error {
			out, err := c.TranslateOne(gctx, ch.Text, src, tgt)
			if err != nil {
				return err
			}
			ch.Out = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

// BackendStatus reports whether the worker's own /health endpoint answers
// {"ok": true}, mirroring mt_guard.py's _backend_status.
func (c *Client) BackendStatus(ctx context.Context) (alive bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.OK
}

// BaseURL returns the normalized worker base URL this client targets.
func (c *Client) BaseURL() string { return c.baseURL }
