package theme

import (
	"regexp"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var thHexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

// IsHexColor reports whether s is a "#rrggbb" or "#rrggbbaa" color.
func IsHexColor(s string) bool {
	if !thHexColorRegex.MatchString(s) {
		return false
	}
	_, err := colorful.Hex(s[:7])
	return err == nil
}

// DimAdjuster returns a function that shifts a background color by the
// distance between dim and bg, channel by channel, saturating at white. Text
// drawn in the returned color keeps the contrast dim has against bg when it
// is drawn on another background instead.
func DimAdjuster(bg, dim string) func(target string) string {
	br, bgc, bb, ok1 := thRGB(bg)
	dr, dg, db, ok2 := thRGB(dim)
	if !ok1 || !ok2 {
		return func(target string) string { return target }
	}
	r, g, b := absDiff(dr, br), absDiff(dg, bgc), absDiff(db, bb)
	return func(target string) string {
		tr, tg, tb, ok := thRGB(target)
		if !ok {
			return target
		}
		c := colorful.Color{
			R: float64(satAdd(tr, r)) / 255,
			G: float64(satAdd(tg, g)) / 255,
			B: float64(satAdd(tb, b)) / 255,
		}
		return c.Hex()
	}
}

// SameColor compares two hex colors ignoring case.
func SameColor(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// thRGB parses the color part of a hex string into 8-bit channels.
func thRGB(s string) (r, g, b uint8, ok bool) {
	if !IsHexColor(s) {
		return 0, 0, 0, false
	}
	c, err := colorful.Hex(s[:7])
	if err != nil {
		return 0, 0, 0, false
	}
	r, g, b = c.RGB255()
	return r, g, b, true
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func satAdd(a, b uint8) uint8 {
	if int(a)+int(b) > 255 {
		return 255
	}
	return a + b
}
