package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AppleLamps/x-wrapped/internal/api"
	"github.com/AppleLamps/x-wrapped/internal/stream"
)

func newRelayServer(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()
	router := api.NewRouter(nil)
	NewHandler(backendURL, nil).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postStream(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/wrapped/stream", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRelayPassesStreamThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.StreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("backend received bad body: %v", err)
		}
		if req.Username != "alice" {
			t.Errorf("expected normalized username, got %q", req.Username)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		enc := stream.NewEncoder(w)
		_ = enc.Encode(stream.Progress{Step: 1, Total: 3, Message: "Starting"})
		_ = enc.Encode(stream.Complete{Data: json.RawMessage(`{"year_summary":"done"}`)})
	}))
	defer backend.Close()

	srv := newRelayServer(t, backend.URL)
	resp := postStream(t, srv.URL, `{"username":"@alice"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type not preserved: %q", ct)
	}
	if resp.Header.Get("X-Accel-Buffering") != "no" {
		t.Fatalf("buffering hint missing")
	}
	if resp.Header.Get("X-Wrapped-Session") == "" {
		t.Fatalf("session header missing")
	}

	reader := stream.NewReader(resp.Body, nil)
	var types []stream.Type
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		types = append(types, ev.Type())
	}
	if len(types) != 2 || types[0] != stream.TypeProgress || types[1] != stream.TypeComplete {
		t.Fatalf("unexpected relayed events: %v", types)
	}
}

func TestRelayRejectsMissingUsername(t *testing.T) {
	backendHit := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendHit = true
	}))
	defer backend.Close()

	srv := newRelayServer(t, backend.URL)
	for _, body := range []string{`{}`, `{"username":""}`, `{"username":"@"}`, `not json`} {
		resp := postStream(t, srv.URL, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
			t.Fatalf("body %q: expected JSON error payload, got err %v", body, err)
		}
	}
	if backendHit {
		t.Fatalf("backend contacted despite invalid input")
	}
}

func TestRelayBackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // nothing listening anymore

	srv := newRelayServer(t, backend.URL)
	resp := postStream(t, srv.URL, `{"username":"alice"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestRelayPropagatesBackendRejection(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model is overloaded"}`))
	}))
	defer backend.Close()

	srv := newRelayServer(t, backend.URL)
	resp := postStream(t, srv.URL, `{"username":"alice"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error != "model is overloaded" {
		t.Fatalf("backend error not propagated: %+v (%v)", payload, err)
	}
}

func TestRelayHealthEndpoint(t *testing.T) {
	srv := newRelayServer(t, "http://127.0.0.1:0")
	resp, err := http.Get(srv.URL + "/api/wrapped/stream")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Status != "ok" {
		t.Fatalf("unexpected health payload: %+v (%v)", payload, err)
	}
}
