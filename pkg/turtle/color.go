package turtle

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"tlog.app/go/errors"
)

// ParseColor accepts CSS color names ("red", "SteelBlue") and #rrggbb.
func ParseColor(s string) (color.RGBA, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}

	if len(name) == 7 && name[0] == '#' {
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
		}
	}

	return color.RGBA{}, errors.New("unknown color %q", s)
}
