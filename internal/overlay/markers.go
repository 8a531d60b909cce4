// Package overlay draws markers for a screen's interactive elements on top of
// its screenshot, so a vision model can relate the picture to the element list.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/v0xg/uxspec/internal/classify"
	"github.com/v0xg/uxspec/internal/scanner"
)

// MarkerRadius is the ring radius in screenshot pixels
const MarkerRadius = 12

var (
	buttonColor = color.RGBA{66, 133, 244, 255}
	inputColor  = color.RGBA{52, 168, 83, 255}
	outline     = color.RGBA{255, 255, 255, 255}
)

// Marker is an element position in screenshot pixels
type Marker struct {
	X, Y int
	Type classify.ElementType
}

// Markers maps the screen's interactive elements into a screenshot of the
// given size. Element positions are absolute, so they are made relative to
// the screen origin and scaled by the screenshot/screen width ratio.
func Markers(screen *scanner.ScreenRecord, bounds image.Rectangle) []Marker {
	scale := 1.0
	if screen.Dimensions.Width > 0 {
		scale = float64(bounds.Dx()) / screen.Dimensions.Width
	}

	elements := screen.ContentAnalysis.InteractiveElements
	markers := make([]Marker, 0, len(elements))
	for _, el := range elements {
		markers = append(markers, Marker{
			X:    bounds.Min.X + int(math.Round((el.Position.X-screen.Position.X)*scale)),
			Y:    bounds.Min.Y + int(math.Round((el.Position.Y-screen.Position.Y)*scale)),
			Type: el.Type,
		})
	}
	return markers
}

// Apply returns a copy of img with every marker drawn
func Apply(img image.Image, markers []Marker) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	for _, m := range markers {
		c := buttonColor
		if m.Type == classify.ElementInput {
			c = inputColor
		}
		drawRing(result, m.X, m.Y, MarkerRadius+1, outline)
		drawRing(result, m.X, m.Y, MarkerRadius, c)
		drawCross(result, m.X, m.Y, c)
	}
	return result
}

// MarkPNG decodes a screenshot, marks the screen's elements and re-encodes it
func MarkPNG(data []byte, screen *scanner.ScreenRecord) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	marked := Apply(img, Markers(screen, img.Bounds()))

	var buf bytes.Buffer
	if err := png.Encode(&buf, marked); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func drawRing(img *image.RGBA, x, y, radius int, c color.RGBA) {
	for angle := 0.0; angle < 360; angle++ {
		rad := angle * math.Pi / 180
		px := x + int(math.Round(float64(radius)*math.Cos(rad)))
		py := y + int(math.Round(float64(radius)*math.Sin(rad)))
		setPixelSafe(img, px, py, c)
		setPixelSafe(img, px+1, py, c)
		setPixelSafe(img, px, py+1, c)
	}
}

func drawCross(img *image.RGBA, x, y int, c color.RGBA) {
	drawLine(img, x-3, y, x+3, y, c)
	drawLine(img, x, y-3, x, y+3, c)
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{x, y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
