package composer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulseworks/vita-backend/internal/config"
)

func newComposer(serverURL string, enabled bool) *HTTPComposer {
	return NewHTTPComposer(config.ComposerConfig{
		Enabled:            enabled,
		BaseURL:            serverURL,
		Timeout:            2 * time.Second,
		MaxReferenceAssets: 3,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHTTPComposer_Compose(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"url":"https://cdn.example.com/out.jpg","caption":"golden hour"}`))
	}))
	defer server.Close()

	c := newComposer(server.URL, true)
	res, err := c.Compose(context.Background(), Request{
		Prompt:          "a walk along the river",
		ReferenceAssets: []string{"a", "b", "c", "d", "e"},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if res.URL != "https://cdn.example.com/out.jpg" || res.Caption != "golden hour" {
		t.Errorf("result = %+v", res)
	}
	if len(got.ReferenceAssets) != 3 {
		t.Errorf("reference assets sent = %d, want capped at 3", len(got.ReferenceAssets))
	}
}

func TestHTTPComposer_Compose_Disabled(t *testing.T) {
	c := newComposer("http://127.0.0.1:0", false)

	_, err := c.Compose(context.Background(), Request{Prompt: "anything"})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Compose() error = %v, want ErrDisabled", err)
	}
}

func TestHTTPComposer_Compose_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		wantCode string
	}{
		{"structured upstream error", `{"error":{"code":"nsfw","message":"rejected"}}`, http.StatusOK, "nsfw"},
		{"empty asset", `{"url":""}`, http.StatusOK, "empty"},
		{"malformed payload", `not json`, http.StatusOK, "decode"},
		{"client error status", `{}`, http.StatusUnprocessableEntity, "upstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newComposer(server.URL, true)
			_, err := c.Compose(context.Background(), Request{Prompt: "anything"})

			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("Compose() error = %v, want *Error", err)
			}
			if cerr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", cerr.Code, tt.wantCode)
			}
		})
	}
}
