// Package testutil provides fake inference servers for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ollama/ollama/api"
)

// ReplyFunc produces the full reply text for a request.
type ReplyFunc func(system, prompt string) string

// FakeOllama is an httptest server speaking the subset of the Ollama API
// strike uses: /api/tags, /api/generate and /api/pull.
type FakeOllama struct {
	URL string

	server    *httptest.Server
	mu        sync.Mutex
	models    []string
	reply     ReplyFunc
	chunkSize int
	requests  []api.GenerateRequest
	pulls     []string
}

// NewFakeOllama starts a server with the given installed models. The server
// is closed when the test ends.
func NewFakeOllama(t testing.TB, models ...string) *FakeOllama {
	t.Helper()
	f := &FakeOllama{
		models: append([]string(nil), models...),
		reply: func(string, string) string {
			return "```bash\nnmap -sV 10.0.0.5\n```\nExplanation: Scans service versions."
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", f.handleTags)
	mux.HandleFunc("/api/generate", f.handleGenerate)
	mux.HandleFunc("/api/pull", f.handlePull)
	f.server = httptest.NewServer(mux)
	f.URL = f.server.URL
	t.Cleanup(f.server.Close)
	return f
}

// SetReply replaces the reply generator.
func (f *FakeOllama) SetReply(reply ReplyFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// SetChunkSize splits streamed replies into chunks of n bytes (0 sends the
// reply as a single chunk).
func (f *FakeOllama) SetChunkSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkSize = n
}

// Requests returns the generate requests received so far.
func (f *FakeOllama) Requests() []api.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.GenerateRequest(nil), f.requests...)
}

// Pulls returns the models pulled so far.
func (f *FakeOllama) Pulls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pulls...)
}

func (f *FakeOllama) installed(model string) bool {
	for _, name := range f.models {
		if name == model {
			return true
		}
	}
	return false
}

func (f *FakeOllama) handleTags(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	resp := api.ListResponse{}
	for _, name := range f.models {
		resp.Models = append(resp.Models, api.ListModelResponse{Name: name, Model: name})
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeOllama) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	known := f.installed(req.Model)
	reply := f.reply(req.System, req.Prompt)
	chunkSize := f.chunkSize
	f.mu.Unlock()

	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "model '" + req.Model + "' not found, try pulling it first",
		})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	if req.Stream != nil && !*req.Stream {
		_ = enc.Encode(api.GenerateResponse{Model: req.Model, Response: reply, Done: true})
		return
	}
	for _, chunk := range SplitChunks(reply, chunkSize) {
		_ = enc.Encode(api.GenerateResponse{Model: req.Model, Response: chunk})
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
	_ = enc.Encode(api.GenerateResponse{Model: req.Model, Done: true, DoneReason: "stop"})
}

func (f *FakeOllama) handlePull(w http.ResponseWriter, r *http.Request) {
	var req api.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	f.pulls = append(f.pulls, req.Model)
	if !f.installed(req.Model) {
		f.models = append(f.models, req.Model)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	_ = enc.Encode(api.ProgressResponse{Status: "pulling manifest"})
	_ = enc.Encode(api.ProgressResponse{Status: "downloading", Total: 200, Completed: 100})
	_ = enc.Encode(api.ProgressResponse{Status: "downloading", Total: 200, Completed: 200})
	_ = enc.Encode(api.ProgressResponse{Status: "success"})
}

// SplitChunks cuts text into pieces of n bytes. n <= 0 yields one piece.
func SplitChunks(text string, n int) []string {
	if n <= 0 || len(text) <= n {
		return []string{text}
	}
	var chunks []string
	for len(text) > n {
		chunks = append(chunks, text[:n])
		text = text[n:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// UnreachableURL returns the address of a server that has already shut down.
func UnreachableURL(t testing.TB) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// LastPrompt returns the prompt of the most recent request, or "".
func (f *FakeOllama) LastPrompt() string {
	requests := f.Requests()
	if len(requests) == 0 {
		return ""
	}
	return strings.TrimSpace(requests[len(requests)-1].Prompt)
}
