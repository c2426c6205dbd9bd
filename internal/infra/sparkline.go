package infra

import (
	"errors"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

const sparklineSupersample = 4

var (
	sparkUp   = color.NRGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	sparkDown = color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
)

// ErrEmptyHistory is returned when there is nothing to plot.
var ErrEmptyHistory = errors.New("empty price history")

// Sparkline renders a token's recent prices as a small line chart.
// The line is drawn at a larger scale and downsampled with a Lanczos filter.
type Sparkline struct {
	Width  int
	Height int
}

// NewSparkline creates a renderer producing width x height images.
func NewSparkline(width, height int) *Sparkline {
	return &Sparkline{Width: width, Height: height}
}

// Render plots history left to right. The line is green when the last price
// is at or above the first, red otherwise.
func (s *Sparkline) Render(history []float64) (image.Image, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}
	w, h := s.Width*sparklineSupersample, s.Height*sparklineSupersample
	canvas := imaging.New(w, h, color.NRGBA{})

	lo, hi := history[0], history[0]
	for _, p := range history {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	span := hi - lo

	c := sparkUp
	if history[len(history)-1] < history[0] {
		c = sparkDown
	}

	pad := float64(sparklineSupersample * 2)
	point := func(i int) (float64, float64) {
		x := pad
		if len(history) > 1 {
			x += float64(i) * (float64(w) - 2*pad) / float64(len(history)-1)
		}
		y := float64(h) / 2
		if span > 0 {
			y = pad + (1-(history[i]-lo)/span)*(float64(h)-2*pad)
		}
		return x, y
	}

	x0, y0 := point(0)
	if len(history) == 1 {
		drawLine(canvas, x0, y0, float64(w)-pad, y0, c)
	}
	for i := 1; i < len(history); i++ {
		x1, y1 := point(i)
		drawLine(canvas, x0, y0, x1, y1, c)
		x0, y0 = x1, y1
	}

	return imaging.Resize(canvas, s.Width, s.Height, imaging.Lanczos), nil
}

// Encode renders history and writes it to w as PNG.
func (s *Sparkline) Encode(w io.Writer, history []float64) error {
	img, err := s.Render(history)
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// drawLine stamps a square brush along the segment.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 float64, c color.NRGBA) {
	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))) + 1
	r := sparklineSupersample / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		cx := int(x0 + (x1-x0)*t)
		cy := int(y0 + (y1-y0)*t)
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if image.Pt(cx+dx, cy+dy).In(img.Rect) {
					img.SetNRGBA(cx+dx, cy+dy, c)
				}
			}
		}
	}
}
