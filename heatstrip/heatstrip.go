// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package heatstrip implements a 1D display.Drawer that shows temperatures as
// a strip of coloured blocks on a terminal using ANSI colour codes.
//
// Each reading gets one block, coloured between a cold and a hot colour
// according to where it falls in a temperature range.
package heatstrip

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	X         int        // number of blocks
	Cold, Hot color.RGBA // colours at Min and Max
	Min, Max  float64    // temperature range in °C
	Palette   *ansi256.Palette
	// W receives the output. Defaults to a colour capable stdout.
	W io.Writer

	_ struct{}
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	X:    1,
	Cold: color.RGBA{0, 0, 255, 255},
	Hot:  color.RGBA{255, 0, 0, 255},
	Min:  0,
	Max:  40,
}

// Dev is a temperature strip that outputs to the console.
type Dev struct {
	w         io.Writer
	l         int
	cold, hot color.RGBA
	min, max  float64
	palette   ansi256.Palette

	pixels []byte
	text   string
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.X < 1 {
		return nil, fmt.Errorf("heatstrip: invalid width %d", opts.X)
	}
	if !(opts.Max > opts.Min) {
		return nil, fmt.Errorf("heatstrip: invalid range %g..%g", opts.Min, opts.Max)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:       w,
		l:       opts.X,
		cold:    opts.Cold,
		hot:     opts.Hot,
		min:     opts.Min,
		max:     opts.Max,
		palette: *p,
		pixels:  make([]byte, 3*opts.X),
	}, nil
}

func (d *Dev) String() string {
	return "HeatStrip"
}

// Halt implements conn.Resource.
//
// It ends the line and resets the colours so the terminal is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Color returns the colour of temperature t in °C. Temperatures out of the
// range are clamped.
func (d *Dev) Color(t float64) color.NRGBA {
	f := (t - d.min) / (d.max - d.min)
	if math.IsNaN(f) || f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
	}
	return color.NRGBA{mix(d.cold.R, d.hot.R), mix(d.cold.G, d.hot.G), mix(d.cold.B, d.hot.B), 255}
}

// Show displays one block per temperature followed by the values. A NaN
// temperature is a missing reading and is shown black.
//
// Temperatures beyond the width of the strip are ignored.
func (d *Dev) Show(temps []float64) error {
	img := image.NewNRGBA(d.Bounds())
	var text bytes.Buffer
	for i, t := range temps {
		if i == d.l {
			break
		}
		if math.IsNaN(t) {
			img.SetNRGBA(i, 0, color.NRGBA{0, 0, 0, 255})
			_, _ = text.WriteString(" --")
			continue
		}
		img.SetNRGBA(i, 0, d.Color(t))
		_, _ = fmt.Fprintf(&text, " %.2f", t)
	}
	d.text = text.String()
	return d.Draw(d.Bounds(), img, image.Point{})
}

// Write accepts a stream of raw RGB pixels and writes it to the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("heatstrip: invalid RGB stream length")
	}
	copy(d.pixels, pixels)
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: d.l, Y: 1}}
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	if dY := r.Dy(); dY < srcR.Dy() {
		srcR.Max.Y = srcR.Min.Y + dY
	}
	deltaX3 := 3 * (r.Min.X - srcR.Min.X)
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		r16, g16, b16, _ := src.At(sX, srcR.Min.Y).RGBA()
		dX3 := 3*sX + deltaX3
		d.pixels[dX3] = byte(r16 >> 8)
		d.pixels[dX3+1] = byte(g16 >> 8)
		d.pixels[dX3+2] = byte(b16 >> 8)
	}
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < len(d.pixels)/3; i++ {
		c := color.NRGBA{d.pixels[3*i], d.pixels[3*i+1], d.pixels[3*i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m")
	_, _ = d.buf.WriteString(d.text)
	_, _ = d.buf.WriteString(" ")
	_, err := d.buf.WriteTo(d.w)
	return len(d.pixels), err
}

var _ conn.Resource = &Dev{}
var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
