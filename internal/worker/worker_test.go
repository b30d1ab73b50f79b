package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/askalator/trancelate-ANNI/internal/config"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{
		MTBackend:         srv.URL,
		WorkerTimeoutSecs: 5,
		MaxWorkersGuard:   2,
		EnableWorkerBatch: true,
		BatchConcurrency:  4,
	}
	return New(cfg)
}

func TestTranslateOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(translateResponse{TranslatedText: "hallo " + req.Text})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	out, err := c.TranslateOne(context.Background(), "welt", "en", "de")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if out != "hallo welt" {
		t.Errorf("out = %q", out)
	}
}

func TestTranslateChunks_UsesBatchWhenMultiple(t *testing.T) {
	var batchCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/translate_batch" {
			atomic.AddInt32(&batchCalls, 1)
			var req batchRequest
			json.NewDecoder(r.Body).Decode(&req)
			outs := make([]string, len(req.Texts))
			for i, t := range req.Texts {
				outs[i] = "T:" + t
			}
			json.NewEncoder(w).Encode(batchResponse{TranslatedTexts: outs})
			return
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	chunks := []*Chunk{{Text: "a"}, {Text: "b"}}
	if _, err := c.TranslateChunks(context.Background(), chunks, "en", "de"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if batchCalls != 1 {
		t.Errorf("batchCalls = %d, want 1", batchCalls)
	}
	if chunks[0].Out != "T:a" || chunks[1].Out != "T:b" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestTranslateChunks_FallsBackToParallelSinglesOnBatchMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/translate_batch":
			// Simulate a worker that returns fewer translations than requested.
			json.NewEncoder(w).Encode(batchResponse{TranslatedTexts: []string{"only-one"}})
		case "/translate":
			var req translateRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(translateResponse{TranslatedText: "S:" + req.Text})
		}
	}))
	defer srv.Close()

	c := testClient(t, srv)
	chunks := []*Chunk{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	if _, err := c.TranslateChunks(context.Background(), chunks, "en", "de"); err != nil {
		t.Fatalf("err = %v", err)
	}
	for _, ch := range chunks {
		if ch.Out == "" {
			t.Errorf("chunk %q not translated", ch.Text)
		}
	}
}

func TestTranslateChunks_SingleChunkSkipsBatch(t *testing.T) {
	var batchCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/translate_batch" {
			atomic.AddInt32(&batchCalls, 1)
		}
		var req translateRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(translateResponse{TranslatedText: "S:" + req.Text})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	chunks := []*Chunk{{Text: "solo"}}
	if _, err := c.TranslateChunks(context.Background(), chunks, "en", "de"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if batchCalls != 0 {
		t.Errorf("batchCalls = %d, want 0 for a single chunk", batchCalls)
	}
	if chunks[0].Out != "S:solo" {
		t.Errorf("out = %q", chunks[0].Out)
	}
}

func TestPostJSON_RetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(translateResponse{TranslatedText: "ok"})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	out, err := c.TranslateOne(context.Background(), "x", "en", "de")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q", out)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (2 failures + 1 success)", calls)
	}
}

func TestPostJSON_GivesUpAfterRetryTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if _, err := c.TranslateOne(context.Background(), "x", "en", "de"); err == nil {
		t.Error("want error after exhausting retries")
	}
}

func TestBackendStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if !c.BackendStatus(context.Background()) {
		t.Error("want alive = true")
	}
}

func TestChunkText_ShortTextUnchanged(t *testing.T) {
	out := ChunkText("hello world", 600)
	if len(out) != 1 || out[0] != "hello world" {
		t.Errorf("out = %+v", out)
	}
}

func TestChunkText_SplitsOnSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence here. Third one."
	out := ChunkText(text, 25)
	if len(out) < 2 {
		t.Fatalf("out = %+v, want multiple chunks", out)
	}
	joined := ""
	for _, c := range out {
		joined += c + " "
	}
	for _, want := range []string{"First sentence", "Second sentence", "Third one"} {
		if !contains(joined, want) {
			t.Errorf("joined = %q, missing %q", joined, want)
		}
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
