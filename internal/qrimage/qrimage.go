// Package qrimage renders QR codes to PNG bytes. It is a pure rendering
// surface: it knows nothing about policies, analytics, or storage.
package qrimage

import (
	"errors"
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

var ErrEmptyContent = errors.New("qrimage: content is empty")

const (
	defaultSize = 300
	minSize     = 64
	maxSize     = 2048
)

// Options control presentation only.
type Options struct {
	// Size is the output edge length in pixels. Zero means the default.
	Size int
	// ErrorCorrection is one of L, M, Q, H. Empty means M.
	ErrorCorrection string
	// Foreground and Background are hex colors like #RRGGBB. Empty means
	// black on white.
	Foreground string
	Background string
}

// Render encodes content into a PNG image. For dynamic codes the content is
// the public short URL; for static codes it is the destination itself.
func Render(content string, opts Options) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	size := opts.Size
	if size == 0 {
		size = defaultSize
	}
	if size < minSize || size > maxSize {
		return nil, fmt.Errorf("qrimage: size %d out of range [%d, %d]", size, minSize, maxSize)
	}

	q, err := qrcode.New(content, recoveryLevel(opts.ErrorCorrection))
	if err != nil {
		return nil, fmt.Errorf("qrimage: encode: %w", err)
	}

	fg, err := parseHexColor(opts.Foreground, color.RGBA{A: 0xFF})
	if err != nil {
		return nil, err
	}
	bg, err := parseHexColor(opts.Background, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	if err != nil {
		return nil, err
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg

	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("qrimage: render png: %w", err)
	}
	return png, nil
}

func recoveryLevel(ec string) qrcode.RecoveryLevel {
	switch ec {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

func parseHexColor(s string, fallback color.RGBA) (color.RGBA, error) {
	if s == "" {
		return fallback, nil
	}
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("qrimage: invalid hex color %q", s)
	}

	var c color.RGBA
	c.A = 0xFF
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{}, fmt.Errorf("qrimage: invalid hex color %q", s)
	}
	return c, nil
}
