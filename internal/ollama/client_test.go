package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/pkg/types"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(types.OllamaConfig{
		BaseURL:         srv.URL,
		ConnectTimeout:  2 * time.Second,
		GenerateTimeout: 2 * time.Second,
	}, zerolog.Nop())
}

func TestCheckConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"version": "0.5.7"})
	})
	c := testClient(t, mux)

	if c.IsConnected() {
		t.Fatal("connected before any check")
	}

	version, err := c.CheckConnection(context.Background())
	if err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if version != "0.5.7" {
		t.Errorf("version = %q", version)
	}
	if !c.IsConnected() {
		t.Error("connectivity flag not cached after successful check")
	}
}

func TestCheckConnectionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(types.OllamaConfig{BaseURL: url, ConnectTimeout: time.Second}, zerolog.Nop())

	_, err := c.CheckConnection(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
	if c.IsConnected() {
		t.Error("connectivity flag set after failed check")
	}
}

func TestListModels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "llama3.3:70b", "size": 40000000000},
				{"name": "gemma2:27b", "size": 16000000000},
			},
		})
	})
	c := testClient(t, mux)

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3.3:70b" {
		t.Errorf("models = %+v", models)
	}
}

func TestGenerate(t *testing.T) {
	var gotReq generateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]string{"response": `{"decision":"include"}`})
	})
	c := testClient(t, mux)

	resp, err := c.Generate(context.Background(), "gemma2:27b", "the prompt", "the system prompt", 0.3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp != `{"decision":"include"}` {
		t.Errorf("response = %q", resp)
	}

	if gotReq.Model != "gemma2:27b" || gotReq.Prompt != "the prompt" || gotReq.System != "the system prompt" {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Format != "json" || gotReq.Stream {
		t.Errorf("format/stream = %q/%v, want json/false", gotReq.Format, gotReq.Stream)
	}
	if gotReq.Temperature != 0.3 {
		t.Errorf("temperature = %v", gotReq.Temperature)
	}
}

func TestGenerateModelError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	})
	c := testClient(t, mux)

	_, err := c.Generate(context.Background(), "missing", "p", "", 0.3)
	if !errors.Is(err, ErrModel) {
		t.Fatalf("err = %v, want ErrModel", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(types.OllamaConfig{
		BaseURL:         srv.URL,
		GenerateTimeout: 50 * time.Millisecond,
	}, zerolog.Nop())

	_, err := c.Generate(context.Background(), "slow", "p", "", 0.3)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": ""})
	})
	c := testClient(t, mux)

	_, err := c.Generate(context.Background(), "m", "p", "", 0.3)
	if !errors.Is(err, ErrModel) {
		t.Fatalf("err = %v, want ErrModel", err)
	}
}
