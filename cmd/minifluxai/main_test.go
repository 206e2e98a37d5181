package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/infrastructure/storage"
	"MinifluxAI/internal/signature"
)

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "miniflux:\n  webhookSecret: cli-secret\nqueue:\n  backend: pebble\n  dataDir: " + dataDir + "\n  fsync: never\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestSignCommand(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, "")
	t.Setenv("MINIFLUX_WEBHOOK_SECRET", "")
	cfgPath := writeConfig(t, t.TempDir())

	body := `{"entries":[{"id":1}]}`
	out, err := run(t, body, "--config", cfgPath, "sign")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	want, err := signature.Sign([]byte("cli-secret"), []byte(body))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if strings.TrimSpace(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestQueueCommands(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, "")
	t.Setenv("QUEUE_BACKEND", "")
	t.Setenv("QUEUE_DATA_DIR", "")
	dataDir := filepath.Join(t.TempDir(), "queue")
	cfgPath := writeConfig(t, dataDir)

	queue, err := storage.OpenPebbleQueue(storage.PebbleOptions{DataDir: dataDir, Fsync: storage.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, entry := range []domain.Entry{{ID: 4, Title: "four"}, {ID: 12, Title: "twelve"}} {
		if err := queue.Put(context.Background(), entry.Key(), entry); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := queue.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, err := run(t, "", "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if out != "entry:12\nentry:4\n" {
		t.Fatalf("unexpected listing %q", out)
	}

	out, err = run(t, "", "--config", cfgPath, "queue", "show", "12")
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	if !strings.Contains(out, `"title": "twelve"`) {
		t.Fatalf("unexpected entry %q", out)
	}

	if _, err := run(t, "", "--config", cfgPath, "queue", "show", "99"); err == nil {
		t.Fatalf("expected missing entry error")
	}
}

func TestDrainRequiresConfig(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, "")
	for _, env := range []string{"MINIFLUX_URL", "MINIFLUX_USERNAME", "MINIFLUX_PASSWORD", "CF_AI_URL", "CF_AI_TOKEN", "CF_AI_MODEL"} {
		t.Setenv(env, "")
	}
	cfgPath := writeConfig(t, t.TempDir())

	if _, err := run(t, "", "--config", cfgPath, "drain"); err == nil {
		t.Fatalf("expected validation error")
	}
}
