package qrimage

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

func TestRender_ProducesDecodablePNG(t *testing.T) {
	data, err := Render("https://qr.example.com/abc1234", Options{Size: 256})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
	if got := img.Bounds().Dx(); got != 256 {
		t.Fatalf("expected 256px wide image, got %d", got)
	}
}

func TestRender_Defaults(t *testing.T) {
	data, err := Render("https://example.com", Options{})
	if err != nil {
		t.Fatalf("Render with defaults returned error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty image bytes")
	}
}

func TestRender_EmptyContent(t *testing.T) {
	if _, err := Render("", Options{}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestRender_RejectsBadInput(t *testing.T) {
	if _, err := Render("x", Options{Size: 10}); err == nil {
		t.Fatal("expected error for undersized output")
	}
	if _, err := Render("x", Options{Foreground: "red"}); err == nil {
		t.Fatal("expected error for malformed color")
	}
}

func TestRender_CustomColorsAndLevels(t *testing.T) {
	for _, ec := range []string{"L", "M", "Q", "H", ""} {
		if _, err := Render("https://example.com", Options{
			ErrorCorrection: ec,
			Foreground:      "#112233",
			Background:      "#FFEEDD",
		}); err != nil {
			t.Fatalf("Render with level %q returned error: %v", ec, err)
		}
	}
}
