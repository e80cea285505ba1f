package artgen

import (
	"image"
	"math"
)

const (
	// DefaultSaturationFloor is the minimum saturation after a hue shift.
	DefaultSaturationFloor = 0.6

	// DefaultWhiteThreshold leaves near-white pixels (every channel above
	// the threshold) untouched.
	DefaultWhiteThreshold = 240
)

// ShiftHue rotates the hue of every visible, non-white pixel of img by deg
// degrees in place. Saturation is raised to at least satFloor and alpha is
// left unchanged.
func ShiftHue(img *image.NRGBA, deg int, satFloor float64, white uint8) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			p := row[i : i+4 : i+4]
			if p[3] == 0 {
				continue
			}
			if p[0] > white && p[1] > white && p[2] > white {
				continue
			}
			h, s, l := rgbToHSL(p[0], p[1], p[2])
			h = math.Mod(h+float64(deg), 360)
			if s < satFloor {
				s = satFloor
			}
			p[0], p[1], p[2] = hslToRGB(h, s, l)
		}
	}
}

// rgbToHSL returns hue in degrees [0, 360) and saturation and lightness in
// [0, 1].
func rgbToHSL(r8, g8, b8 uint8) (h, s, l float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}

	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}
	switch max {
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
	return h * 60, s, l
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := round255(l)
		return v, v, v
	}
	h /= 360
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return round255(hueToChannel(p, q, h+1.0/3)),
		round255(hueToChannel(p, q, h)),
		round255(hueToChannel(p, q, h-1.0/3))
}

func hueToChannel(p, q, t float64) float64 {
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
	}
	return p
}

// round255 scales v to a byte rounding halves up.
func round255(v float64) uint8 {
	x := math.Floor(v*255 + 0.5)
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}
