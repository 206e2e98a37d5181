package miniflux

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"MinifluxAI/internal/config"
)

func TestUpdateContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v1/entries/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "reader" || pass != "secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["content"] != "<p>new</p>" {
			t.Errorf("unexpected content %q", body["content"])
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(config.MinifluxConfig{URL: server.URL + "/", Username: "reader", Password: "secret"})
	if err := client.UpdateContent(context.Background(), 42, "<p>new</p>"); err != nil {
		t.Fatalf("UpdateContent returned error: %v", err)
	}
}

func TestUpdateContentNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error_message":"entry not found"}`))
	}))
	defer server.Close()

	client := NewClient(config.MinifluxConfig{URL: server.URL, Username: "u", Password: "p"})
	err := client.UpdateContent(context.Background(), 7, "x")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "entry not found") {
		t.Fatalf("expected diagnostic in error, got %v", err)
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Code != http.StatusNotFound {
		t.Fatalf("expected code 404, got %d", rich.Code)
	}
}
