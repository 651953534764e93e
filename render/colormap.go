package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Colormap names a mapping from normalised level to colour.
type Colormap string

const (
	Viridis Colormap = "viridis"
	Inferno Colormap = "inferno"
	Gray    Colormap = "gray"
)

// ParseColormap resolves a colour map name.
func ParseColormap(name string) (Colormap, error) {
	switch c := Colormap(strings.ToLower(strings.TrimSpace(name))); c {
	case Viridis, Inferno, Gray:
		return c, nil
	case "grey", "grayscale":
		return Gray, nil
	}
	return "", fmt.Errorf("%w: unknown colormap %q", ErrInvalidParameter, name)
}

// evenly spaced stops sampled from the matplotlib maps
var stops = map[Colormap][][3]uint8{
	Viridis: {
		{68, 1, 84}, {71, 45, 123}, {59, 82, 139}, {44, 114, 142}, {33, 145, 140},
		{40, 174, 128}, {94, 201, 98}, {173, 220, 48}, {253, 231, 37},
	},
	Inferno: {
		{0, 0, 4}, {31, 12, 72}, {85, 15, 109}, {136, 34, 106}, {186, 54, 85},
		{227, 89, 51}, {249, 140, 10}, {249, 201, 50}, {252, 255, 164},
	},
	Gray: {{0, 0, 0}, {255, 255, 255}},
}

// At returns the colour for v, clamped to [0, 1].
func (c Colormap) At(v float64) color.RGBA {
	s, ok := stops[c]
	if !ok {
		s = stops[Viridis]
	}
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	pos := v * float64(len(s)-1)
	i := int(pos)
	if i >= len(s)-1 {
		last := s[len(s)-1]
		return color.RGBA{R: last[0], G: last[1], B: last[2], A: 255}
	}
	frac := pos - float64(i)
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*frac))
	}
	return color.RGBA{
		R: lerp(s[i][0], s[i+1][0]),
		G: lerp(s[i][1], s[i+1][1]),
		B: lerp(s[i][2], s[i+1][2]),
		A: 255,
	}
}
