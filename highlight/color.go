package highlight

import "strconv"

// Foreground colours picked by ReadableTextColor.
const (
	DarkText  = "#000000"
	LightText = "#FFFFFF"
)

// luminanceThreshold splits light backgrounds (dark text) from dark ones.
const luminanceThreshold = 0.55

// ReadableTextColor picks a foreground for the background colour bg, given as
// "#rrggbb" or "rrggbb". Anything else yields DarkText.
func ReadableTextColor(bg string) string {
	hex := bg
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return DarkText
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return DarkText
	}
	r := float64((v>>16)&0xff) / 255
	g := float64((v>>8)&0xff) / 255
	b := float64(v&0xff) / 255

	if 0.2126*r+0.7152*g+0.0722*b > luminanceThreshold {
		return DarkText
	}
	return LightText
}
