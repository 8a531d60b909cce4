package figma

import (
	"context"
	"fmt"

	"github.com/v0xg/uxspec/internal/design"
)

// Exporter renders screenshots through the images endpoint
type Exporter struct {
	Client  *Client
	FileKey string
	Scale   float64
}

// ExportScreenshot renders node as PNG at the configured scale (2x by default)
func (e *Exporter) ExportScreenshot(ctx context.Context, node *design.Node) ([]byte, error) {
	urls, err := e.Client.GetImages(ctx, e.FileKey, []string{node.ID}, e.Scale)
	if err != nil {
		return nil, err
	}
	u, ok := urls[node.ID]
	if !ok {
		return nil, fmt.Errorf("no image rendered for node %s", node.ID)
	}
	return e.Client.Download(ctx, u)
}
