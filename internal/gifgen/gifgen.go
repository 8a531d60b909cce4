// Package gifgen renders a sequence of screen screenshots as an animated GIF
// walkthrough of a navigation flow.
package gifgen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"sort"
	"time"

	"github.com/nfnt/resize"
)

// Options configures GIF generation
type Options struct {
	// FrameDelay is how long each screen is shown
	FrameDelay time.Duration
	MaxWidth   uint
}

const (
	defaultFrameDelay = 1500 * time.Millisecond
	defaultMaxWidth   = 800
)

// DecodeFrames decodes PNG screenshots in order
func DecodeFrames(pngs [][]byte) ([]image.Image, error) {
	frames := make([]image.Image, 0, len(pngs))
	for i, data := range pngs {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// Generate creates a GIF file from frames and returns its size
func Generate(frames []image.Image, outputPath string, opts Options) (int64, error) {
	if len(frames) == 0 {
		return 0, fmt.Errorf("no frames to render")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := Encode(f, frames, opts); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Encode writes frames as a looping GIF. Every frame is scaled to the output
// width and letterboxed on a white canvas as tall as the tallest frame.
func Encode(w io.Writer, frames []image.Image, opts Options) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to render")
	}
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = defaultFrameDelay
	}
	outputWidth := opts.MaxWidth
	if outputWidth == 0 {
		outputWidth = defaultMaxWidth
	}

	// GIF delays are in 100ths of a second
	delay := int(opts.FrameDelay / (10 * time.Millisecond))

	resized := make([]image.Image, len(frames))
	canvasHeight := 0
	for i, frame := range frames {
		resized[i] = resize.Resize(outputWidth, 0, frame, resize.Lanczos3)
		if h := resized[i].Bounds().Dy(); h > canvasHeight {
			canvasHeight = h
		}
	}
	canvas := image.Rect(0, 0, int(outputWidth), canvasHeight)

	palette := generatePalette(resized)

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0, // Infinite loop
		Config:    image.Config{ColorModel: palette, Width: canvas.Dx(), Height: canvas.Dy()},
	}

	for i, frame := range resized {
		bg := image.NewRGBA(canvas)
		draw.Draw(bg, canvas, image.White, image.Point{}, draw.Src)
		top := (canvasHeight - frame.Bounds().Dy()) / 2
		draw.Draw(bg, frame.Bounds().Add(image.Pt(0, top)), frame, frame.Bounds().Min, draw.Over)

		paletted := image.NewPaletted(canvas, palette)
		draw.FloydSteinberg.Draw(paletted, canvas, bg, image.Point{})

		g.Image[i] = paletted
		g.Delay[i] = delay
	}

	return gif.EncodeAll(w, g)
}

// generatePalette picks the 255 most frequent colors sampled across frames,
// plus white for the letterbox.
func generatePalette(frames []image.Image) color.Palette {
	colorMap := make(map[color.RGBA]int)

	// Sample every 4th pixel for performance
	const step = 4
	for _, img := range frames {
		bounds := img.Bounds()
		for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
			for x := bounds.Min.X; x < bounds.Max.X; x += step {
				r, g, b, _ := img.At(x, y).RGBA()
				colorMap[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}]++
			}
		}
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(colorMap))
	for c, count := range colorMap {
		colors = append(colors, colorCount{c, count})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].count != colors[j].count {
			return colors[i].count > colors[j].count
		}
		a, b := colors[i].c, colors[j].c
		return uint32(a.R)<<16|uint32(a.G)<<8|uint32(a.B) < uint32(b.R)<<16|uint32(b.G)<<8|uint32(b.B)
	})

	white := color.RGBA{255, 255, 255, 255}
	palette := make(color.Palette, 0, 256)
	palette = append(palette, white)
	for i := 0; i < len(colors) && len(palette) < 256; i++ {
		if colors[i].c != white {
			palette = append(palette, colors[i].c)
		}
	}

	// Pad with grayscale
	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}
