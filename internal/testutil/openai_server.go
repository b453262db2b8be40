package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ChatRequest is the part of a chat completion request the fake records.
type ChatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
	TopP        *float64 `json:"top_p"`
	MaxTokens   int      `json:"max_tokens"`
}

// FakeOpenAI is an httptest server speaking the OpenAI chat completions API
// under /v1, as llama.cpp and LM Studio do.
type FakeOpenAI struct {
	// URL includes the /v1 prefix.
	URL string

	server    *httptest.Server
	mu        sync.Mutex
	models    []string
	reply     ReplyFunc
	chunkSize int
	requests  []ChatRequest
}

// NewFakeOpenAI starts a server with the given models.
func NewFakeOpenAI(t testing.TB, models ...string) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{
		models: append([]string(nil), models...),
		reply: func(string, string) string {
			return "```bash\nnmap -sV 10.0.0.5\n```\nExplanation: Scans service versions."
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", f.handleModels)
	mux.HandleFunc("/v1/chat/completions", f.handleCompletions)
	f.server = httptest.NewServer(mux)
	f.URL = f.server.URL + "/v1"
	t.Cleanup(f.server.Close)
	return f
}

// SetReply replaces the reply generator.
func (f *FakeOpenAI) SetReply(reply ReplyFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// SetChunkSize splits streamed replies into chunks of n bytes.
func (f *FakeOpenAI) SetChunkSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkSize = n
}

// Requests returns the chat requests received so far.
func (f *FakeOpenAI) Requests() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChatRequest(nil), f.requests...)
}

func (f *FakeOpenAI) handleModels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	data := make([]map[string]interface{}, 0, len(f.models))
	for _, name := range f.models {
		data = append(data, map[string]interface{}{
			"id": name, "object": "model", "created": 1700000000, "owned_by": "local",
		})
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"object": "list", "data": data})
}

func (f *FakeOpenAI) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	known := false
	for _, name := range f.models {
		if name == req.Model {
			known = true
		}
	}
	var system, prompt string
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user":
			prompt = msg.Content
		}
	}
	reply := f.reply(system, prompt)
	chunkSize := f.chunkSize
	f.mu.Unlock()

	if !known {
		writeJSON(w, http.StatusNotFound, errorBody("model "+req.Model+" not found"))
		return
	}

	if !req.Stream {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1700000000, "model": req.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, chunk := range SplitChunks(reply, chunkSize) {
		payload, _ := json.Marshal(map[string]interface{}{
			"id": "chatcmpl-1", "object": "chat.completion.chunk", "created": 1700000000, "model": req.Model,
			"choices": []map[string]interface{}{{
				"index": 0,
				"delta": map[string]string{"content": chunk},
			}},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func errorBody(message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{"message": message, "type": "invalid_request_error"},
	}
}
