package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/v0xg/uxspec/internal/ai"
	"github.com/v0xg/uxspec/internal/config"
	"github.com/v0xg/uxspec/internal/scanner"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuildOptionalCollaborators(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*config.Config)
		pluginQueue bool
		wantFigma   bool
		wantAI      bool
		wantBroker  bool
		wantQueue   bool
	}{
		{name: "bare defaults"},
		{name: "figma token", mutate: func(c *config.Config) { c.Figma.Token = "t" }, wantFigma: true},
		{name: "anthropic key", mutate: func(c *config.Config) { c.AI.AnthropicKey = "k" }, wantAI: true},
		{name: "openai key for claude provider", mutate: func(c *config.Config) { c.AI.OpenAIKey = "k" }},
		{name: "cloudinary relay", mutate: func(c *config.Config) { c.Upload.CloudName = "demo" }, wantBroker: true},
		{name: "plugin queue", pluginQueue: true, wantBroker: true, wantQueue: true},
		{name: "cloudinary beats queue", mutate: func(c *config.Config) { c.Upload.CloudName = "demo" }, pluginQueue: true, wantBroker: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			d, err := Build(cfg, quiet, tt.pluginQueue)
			if err != nil {
				t.Fatal(err)
			}
			if (d.Figma != nil) != tt.wantFigma {
				t.Errorf("figma = %v", d.Figma)
			}
			if (d.AI != nil) != tt.wantAI {
				t.Errorf("ai = %v", d.AI)
			}
			if (d.Broker != nil) != tt.wantBroker || (d.Uploader() != nil) != tt.wantBroker {
				t.Errorf("broker = %v", d.Broker)
			}
			if (d.Queue != nil) != tt.wantQueue {
				t.Errorf("queue = %v", d.Queue)
			}
			if d.Webhook == nil {
				t.Error("webhook client missing")
			}
		})
	}
}

func TestExporterSelection(t *testing.T) {
	cfg := config.Default()
	d, _ := Build(cfg, quiet, false)
	if _, _, err := d.Exporter("KEY"); err == nil {
		t.Error("api exporter without token must fail")
	}

	cfg.Figma.Token = "t"
	d, _ = Build(cfg, quiet, false)
	exp, release, err := d.Exporter("KEY")
	if err != nil || exp == nil {
		t.Fatalf("api exporter = %v, %v", exp, err)
	}
	release()

	cfg.Figma.Exporter = "none"
	d, _ = Build(cfg, quiet, false)
	exp, _, err = d.Exporter("KEY")
	if err != nil || exp != nil {
		t.Errorf("none exporter = %v, %v", exp, err)
	}
}

func TestLoadDocumentFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	doc := `{"name":"Shop","document":{"id":"0:0","type":"DOCUMENT","children":[{"id":"0:1","name":"Main","type":"CANVAS","children":[]}]}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Figma.FileKey = "KEY"
	d, _ := Build(cfg, quiet, false)

	got, err := d.LoadDocument(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Shop" || got.FileKey != "KEY" || len(got.Pages) != 1 {
		t.Errorf("doc = %+v", got)
	}

	if _, err := d.LoadDocument(context.Background(), "REMOTEKEY"); err == nil {
		t.Error("fetching without a token must fail")
	}
	cfg.Figma.FileKey = ""
	if _, err := d.LoadDocument(context.Background(), ""); err == nil {
		t.Error("empty source must fail")
	}
}

func TestVisionTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	provider, err := ai.NewProvider(ai.Config{Name: "openai", APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.AI.Timeout = 50 * time.Millisecond
	d := &Deps{Config: cfg, Logger: quiet, AI: provider}

	start := time.Now()
	_, err = d.Vision(context.Background(), &scanner.ScreenRecord{ID: "1:1", Name: "Login"}, nil, "")
	if !errors.Is(err, scanner.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Vision returned after %v", elapsed)
	}
}

func TestVisionWithoutProvider(t *testing.T) {
	d := &Deps{Config: config.Default(), Logger: quiet}
	if _, err := d.Vision(context.Background(), &scanner.ScreenRecord{ID: "1:1"}, nil, ""); err == nil {
		t.Error("expected error without a provider")
	}
}
