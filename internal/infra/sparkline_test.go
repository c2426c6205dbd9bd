package infra

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

func TestSparkline_Render(t *testing.T) {
	s := NewSparkline(60, 20)

	img, err := s.Render([]float64{0.01, 0.02, 0.015, 0.03})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 20 {
		t.Errorf("Expected 60x20, got %dx%d", b.Dx(), b.Dy())
	}

	var maxA, maxR, maxG uint32
	for y := 0; y < 20; y++ {
		for x := 0; x < 60; x++ {
			r, g, _, a := img.At(x, y).RGBA()
			if a > maxA {
				maxA, maxR, maxG = a, r, g
			}
		}
	}
	if maxA == 0 {
		t.Fatal("Expected some painted pixels")
	}
	if maxR > maxG {
		t.Errorf("Rising history should be drawn green")
	}
}

func TestSparkline_FlatAndSingle(t *testing.T) {
	s := NewSparkline(30, 10)
	for _, h := range [][]float64{{1, 1, 1}, {0.5}} {
		if _, err := s.Render(h); err != nil {
			t.Errorf("Render(%v) failed: %v", h, err)
		}
	}
}

func TestSparkline_Empty(t *testing.T) {
	s := NewSparkline(30, 10)
	if _, err := s.Render(nil); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("Expected ErrEmptyHistory, got %v", err)
	}
}

func TestSparkline_EncodePNG(t *testing.T) {
	s := NewSparkline(40, 16)
	var buf bytes.Buffer
	if err := s.Encode(&buf, []float64{3, 2, 1}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("Expected width 40, got %d", img.Bounds().Dx())
	}
}
