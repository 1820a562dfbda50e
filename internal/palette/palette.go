// Package palette generates event colors.
//
// Generate derives theme-harmonious colors from an accent by golden-angle hue
// rotation; without an accent it returns the fixed Vivid palette. Resolver
// applies the explicit > color map > auto palette priority shared by the
// adapters.
package palette

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vivid is the default auto-color palette.
var Vivid = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e", "#14b8a6",
	"#3b82f6", "#6366f1", "#a855f7", "#ec4899", "#f43f5e",
	"#06b6d4", "#84cc16", "#d946ef", "#0ea5e9", "#10b981",
}

// DefaultSize is the number of colors generated when a caller has no better
// count in mind.
const DefaultSize = 15

const goldenFraction = 0.618033988749895

// Generate returns count colors as lowercase "#rrggbb" strings.
//
// Without an accent the Vivid palette is returned, capped at its length. With
// an accent, hue advances by the golden-angle fraction per index while
// saturation and lightness oscillate around values chosen from the accent:
// dark accents (lightness < 0.5) center at 0.60, light ones at 0.43.
func Generate(accent string, count int) []string {
	if count <= 0 {
		return []string{}
	}

	r, g, b, err := parseHex(accent)
	if err != nil {
		n := min(count, len(Vivid))
		out := make([]string, n)
		copy(out, Vivid[:n])
		return out
	}

	baseH, baseS, baseL := rgbToHSL(r, g, b)
	sat := clamp(baseS, 0.45, 0.8)

	lCenter := 0.43
	if baseL < 0.5 {
		lCenter = 0.6
	}
	const lRange = 0.05

	colors := make([]string, 0, count)
	for i := 0; i < count; i++ {
		hue := baseH + float64(i)*goldenFraction
		lOff := float64(i%3-1) * lRange
		sOff := 0.04
		if i%2 != 0 {
			sOff = -0.04
		}
		s := clamp(sat+sOff, 0.35, 0.85)
		l := clamp(lCenter+lOff, 0.3, 0.7)
		colors = append(colors, hslToHex(hue, s, l))
	}
	return colors
}

// Normalize expands 3-character shorthand and lowercases a hex color. It
// reports false when value is not a hex color.
func Normalize(value string) (string, bool) {
	r, g, b, err := parseHex(value)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b), true
}

func parseHex(value string) (r, g, b uint8, err error) {
	h := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return 0, 0, 0, fmt.Errorf("palette: invalid hex color %q", value)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("palette: invalid hex color %q: %w", value, err)
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), nil
}

func rgbToHSL(r8, g8, b8 uint8) (h, s, l float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2
	if maxC == minC {
		return 0, 0, l
	}

	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}

	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func hslToHex(h, s, l float64) string {
	h = math.Mod(math.Mod(h, 1)+1, 1)

	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3)
	}
	return fmt.Sprintf("#%02x%02x%02x", toByte(r), toByte(g), toByte(b))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func toByte(v float64) uint8 {
	return uint8(clamp(math.Round(v*255), 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
