// Package browser renders design nodes with a headless Chromium, for files
// the REST images endpoint cannot reach (no token, shared prototype links).
package browser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/uxspec/internal/design"
)

// Options configures the headless browser
type Options struct {
	Width      int
	Height     int
	Scale      float64
	Settle     time.Duration // wait after load for the canvas to paint
	ProfileDir string        // Chrome/Chromium profile directory for authenticated sessions
}

// Exporter screenshots nodes through the Figma embed viewer
type Exporter struct {
	browser *rod.Browser
	fileKey string
	opts    Options
}

// Launch starts a headless browser. Close must be called to release it.
func Launch(fileKey string, opts Options) (*Exporter, error) {
	if opts.Width == 0 {
		opts.Width = 1440
	}
	if opts.Height == 0 {
		opts.Height = 900
	}
	if opts.Scale == 0 {
		opts.Scale = 2
	}
	if opts.Settle == 0 {
		opts.Settle = 2 * time.Second
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(true)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Exporter{browser: b, fileKey: fileKey, opts: opts}, nil
}

// Close cleans up browser resources
func (e *Exporter) Close() {
	if e.browser != nil {
		e.browser.Close()
	}
}

// ExportScreenshot opens the node in the embed viewer sized to the node and
// captures the viewport
func (e *Exporter) ExportScreenshot(ctx context.Context, node *design.Node) ([]byte, error) {
	page, err := e.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: EmbedURL(e.fileKey, node.ID)})
	if err != nil {
		return nil, fmt.Errorf("failed to open embed page: %w", err)
	}
	defer page.Close()

	w, h := e.opts.Width, e.opts.Height
	if node.Width > 0 && node.Height > 0 {
		w, h = int(node.Width), int(node.Height)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: e.opts.Scale,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("embed page did not load: %w", err)
	}

	// Don't hang on the viewer's persistent connections
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.opts.Settle):
	}

	return page.Screenshot(false, nil)
}

// EmbedURL is the embeddable viewer URL of a node
func EmbedURL(fileKey, nodeID string) string {
	target := "https://www.figma.com/file/" + fileKey + "?node-id=" + url.QueryEscape(nodeID)
	return "https://www.figma.com/embed?embed_host=uxspec&hide-ui=1&url=" + url.QueryEscape(target)
}
