package ai

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth is the widest screenshot sent to a model
const DefaultMaxWidth = 1280

// Downscale shrinks a PNG to at most maxWidth pixels wide, keeping the aspect
// ratio. Narrower images are returned unchanged.
func Downscale(data []byte, maxWidth uint) ([]byte, error) {
	if maxWidth == 0 {
		maxWidth = DefaultMaxWidth
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	if uint(img.Bounds().Dx()) <= maxWidth {
		return data, nil
	}

	scaled := resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	return encodePNG(scaled)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func screenshotBase64(req *Request, maxWidth uint) (string, error) {
	if len(req.Screenshot) == 0 {
		return "", nil
	}
	data, err := Downscale(req.Screenshot, maxWidth)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
