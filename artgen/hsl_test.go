package artgen

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShiftHueVectors(t *testing.T) {
	tests := []struct {
		in   color.NRGBA
		deg  int
		want color.NRGBA
	}{
		{color.NRGBA{200, 50, 50, 255}, 120, color.NRGBA{50, 200, 50, 255}},
		{color.NRGBA{200, 50, 50, 255}, 0, color.NRGBA{200, 50, 50, 255}},
		// grey gains saturation up to the floor
		{color.NRGBA{100, 100, 100, 255}, 90, color.NRGBA{100, 160, 40, 255}},
		{color.NRGBA{10, 200, 30, 128}, 300, color.NRGBA{180, 200, 10, 128}},
		// skipped: transparent and near-white
		{color.NRGBA{10, 200, 30, 0}, 300, color.NRGBA{10, 200, 30, 0}},
		{color.NRGBA{241, 250, 245, 255}, 200, color.NRGBA{241, 250, 245, 255}},
	}
	for _, tc := range tests {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, tc.in)
		ShiftHue(img, tc.deg, DefaultSaturationFloor, DefaultWhiteThreshold)
		require.Equal(t, tc.want, img.NRGBAAt(0, 0), "in=%v deg=%d", tc.in, tc.deg)
	}
}

func TestShiftHueWhiteBoundary(t *testing.T) {
	// 240 is not above the threshold, so the pixel is shifted.
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{240, 250, 250, 255})
	ShiftHue(img, 180, DefaultSaturationFloor, DefaultWhiteThreshold)
	require.NotEqual(t, color.NRGBA{240, 250, 250, 255}, img.NRGBAAt(0, 0))
}

func TestRoundTripHSL(t *testing.T) {
	for _, c := range [][3]uint8{{0, 0, 0}, {255, 255, 255}, {12, 34, 56}, {255, 0, 128}} {
		h, s, l := rgbToHSL(c[0], c[1], c[2])
		r, g, b := hslToRGB(h, s, l)
		require.Equal(t, c, [3]uint8{r, g, b})
	}
}
