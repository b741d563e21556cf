// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchchart

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gonum.org/v1/plot/plotutil"
)

// ParseColor parses a hex color of the form "#rrggbb", "#rrggbbaa",
// or "#rgb".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == len(s) || len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	switch len(hex) {
	case 3:
		r, g, b := uint8(v>>8&0xf), uint8(v>>4&0xf), uint8(v&0xf)
		return color.NRGBA{r * 0x11, g * 0x11, b * 0x11, 0xff}, nil
	case 6:
		return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
	case 8:
		return color.NRGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
	}
	return color.NRGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
}

// ParseColors parses a list of hex colors.
func ParseColors(ss []string) ([]color.Color, error) {
	cs := make([]color.Color, 0, len(ss))
	for _, s := range ss {
		c, err := ParseColor(s)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}

// seriesColor returns the color of the i'th series. Colors are
// positional: the i'th configured color belongs to the i'th series.
// With no configured colors, the plotutil default palette is used.
func seriesColor(colors []color.Color, i int) color.Color {
	if len(colors) == 0 {
		return plotutil.Color(i)
	}
	return colors[i]
}
