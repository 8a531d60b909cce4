// Package app builds the collaborators of one configuration: the Figma
// client, exporter, upload broker, webhook client and vision provider.
// The CLI builds them once; the server rebuilds them on reconfiguration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/v0xg/uxspec/internal/ai"
	"github.com/v0xg/uxspec/internal/browser"
	"github.com/v0xg/uxspec/internal/config"
	"github.com/v0xg/uxspec/internal/design"
	"github.com/v0xg/uxspec/internal/figma"
	"github.com/v0xg/uxspec/internal/overlay"
	"github.com/v0xg/uxspec/internal/scanner"
	"github.com/v0xg/uxspec/internal/upload"
	"github.com/v0xg/uxspec/internal/webhook"
)

// Figma is the part of the REST client the operations need
type Figma interface {
	GetFile(ctx context.Context, fileKey string) (*design.Document, error)
	GetImages(ctx context.Context, fileKey string, nodeIDs []string, scale float64) (map[string]string, error)
}

// Sender posts payloads to the analysis webhook
type Sender interface {
	Send(ctx context.Context, payload any) (*webhook.Envelope, error)
}

// ExporterFunc opens a screenshot exporter for one file. release frees it.
type ExporterFunc func(fileKey string) (exp scanner.Exporter, release func(), err error)

// Deps are immutable once built. Optional collaborators are nil when their
// configuration is missing.
type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Figma   Figma
	Webhook Sender
	AI      ai.Provider
	// Broker hosts screenshots; nil leaves screenshot_url empty
	Broker *upload.Broker
	// Queue holds upload requests for the plugin when no store is configured
	Queue       *upload.Queue
	ExporterFor ExporterFunc
}

// Build creates the collaborators of cfg. With pluginQueue set and no
// Cloudinary cloud configured, uploads are queued for the plugin to perform.
func Build(cfg *config.Config, logger *slog.Logger, pluginQueue bool) (*Deps, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Deps{Config: cfg, Logger: logger}

	if cfg.Figma.Token != "" {
		client, err := figma.NewClient(cfg.Figma.Token)
		if err != nil {
			return nil, err
		}
		d.Figma = client
	}

	hook, err := webhook.NewClient(webhook.Config{
		URL:     cfg.Webhook.URL,
		APIKey:  cfg.Webhook.APIKey,
		Timeout: cfg.Webhook.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	d.Webhook = hook

	if key := cfg.ProviderKey(); key != "" {
		provider, err := ai.NewProvider(ai.Config{
			Name:     cfg.AI.Provider,
			Model:    cfg.AI.Model,
			APIKey:   key,
			MaxWidth: cfg.AI.MaxWidth,
		})
		if err != nil {
			return nil, err
		}
		d.AI = provider
	}

	switch {
	case cfg.Upload.CloudName != "":
		relay := &upload.Relay{
			Store: &upload.Cloudinary{
				CloudName:    cfg.Upload.CloudName,
				UploadPreset: cfg.Upload.UploadPreset,
				Folder:       cfg.Upload.Folder,
			},
			Logger: logger,
		}
		d.Broker = upload.NewBroker(relay, cfg.Upload.Timeout, logger)
		relay.Reply = d.Broker.Dispatch
	case pluginQueue:
		d.Queue = upload.NewQueue()
		d.Broker = upload.NewBroker(d.Queue, cfg.Upload.Timeout, logger)
	}

	d.ExporterFor = d.exporterFor
	return d, nil
}

func (d *Deps) exporterFor(fileKey string) (scanner.Exporter, func(), error) {
	switch d.Config.Figma.Exporter {
	case "api":
		client, ok := d.Figma.(*figma.Client)
		if !ok || client == nil {
			return nil, nil, fmt.Errorf("the api exporter needs a Figma token")
		}
		return &figma.Exporter{Client: client, FileKey: fileKey, Scale: d.Config.Figma.Scale}, func() {}, nil
	case "browser":
		exp, err := browser.Launch(fileKey, browser.Options{Scale: d.Config.Figma.Scale})
		if err != nil {
			return nil, nil, err
		}
		return exp, exp.Close, nil
	default:
		return nil, func() {}, nil
	}
}

// Exporter opens the configured exporter. It returns a nil exporter when
// screenshots are disabled.
func (d *Deps) Exporter(fileKey string) (scanner.Exporter, func(), error) {
	if d.ExporterFor == nil {
		return nil, func() {}, nil
	}
	return d.ExporterFor(fileKey)
}

// Uploader returns the broker as a scanner.Uploader, or nil
func (d *Deps) Uploader() scanner.Uploader {
	if d.Broker == nil {
		return nil
	}
	return d.Broker
}

// RequireFigma returns the Figma client or an error naming the missing token
func (d *Deps) RequireFigma() (Figma, error) {
	if d.Figma == nil {
		return nil, fmt.Errorf("FIGMA_TOKEN environment variable or figma.token config required")
	}
	return d.Figma, nil
}

// LoadDocument reads a design document. A source ending in .json is read from
// disk; anything else is a file key fetched from the API.
func (d *Deps) LoadDocument(ctx context.Context, source string) (*design.Document, error) {
	if source == "" {
		source = d.Config.Figma.FileKey
	}
	if source == "" {
		return nil, fmt.Errorf("no file key or JSON export given")
	}
	if strings.HasSuffix(strings.ToLower(source), ".json") {
		return design.LoadFile(source, d.Config.Figma.FileKey)
	}
	client, err := d.RequireFigma()
	if err != nil {
		return nil, err
	}
	return client.GetFile(ctx, source)
}

// Capture is an Exporter that keeps the last screenshot it produced, so a
// screen can be exported once and both uploaded and analyzed
type Capture struct {
	scanner.Exporter
	PNG []byte
}

// ExportScreenshot delegates and records the result
func (c *Capture) ExportScreenshot(ctx context.Context, node *design.Node) ([]byte, error) {
	png, err := c.Exporter.ExportScreenshot(ctx, node)
	c.PNG = png
	return png, err
}

// Vision runs the configured provider on a screen screenshot, drawing element
// markers first when enabled. It fails when no provider is configured. The
// call is bounded by the AI timeout; running out of it yields
// scanner.ErrTimeout.
func (d *Deps) Vision(ctx context.Context, rec *scanner.ScreenRecord, png []byte, objective string) (*ai.Result, error) {
	if d.AI == nil {
		return nil, fmt.Errorf("no API key configured for provider %s", d.Config.AI.Provider)
	}
	if d.Config.AI.Markers && png != nil {
		marked, err := overlay.MarkPNG(png, rec)
		if err != nil {
			d.Logger.Warn("screen_markers_failed", "screen", rec.ID, "error", err)
		} else {
			png = marked
		}
	}

	timeout := d.Config.AI.Timeout
	if timeout <= 0 {
		timeout = config.DefaultAITimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := d.AI.Analyze(ctx, &ai.Request{Screen: rec, Screenshot: png, Objective: objective})
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: vision analysis of %s after %s: %w", scanner.ErrTimeout, rec.ID, timeout, err)
	}
	return res, err
}
