package artgen

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/require"
)

// sprite draws a small creature: transparent background, a body in body
// colour, a darker outline and a near-white eye.
func sprite(size int, body color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	outline := color.NRGBA{R: body.R / 3, G: body.G / 3, B: body.B / 3, A: 0xff}
	eye := color.NRGBA{R: 250, G: 250, B: 250, A: 0xff}
	c := size / 2
	r := size / 3
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-c, y-c
			d := dx*dx + dy*dy
			switch {
			case d < (r-1)*(r-1):
				img.SetNRGBA(x, y, body)
			case d < r*r:
				img.SetNRGBA(x, y, outline)
			}
		}
	}
	img.SetNRGBA(c-2, c-2, eye)
	img.SetNRGBA(c+2, c-2, eye)
	return img
}

// hat is a brim-and-crown accessory on a transparent canvas.
func hat(size int, col color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size/4; y++ {
		for x := size / 4; x < size-size/4; x++ {
			img.SetNRGBA(x, y, col)
		}
	}
	for x := 0; x < size; x++ {
		img.SetNRGBA(x, size/4, col)
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeWebPFixture(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, nativewebp.Encode(&buf, img, nil))
	return buf.Bytes()
}

// testAssets returns three bases (two png, one webp) and two accessories,
// one at half the base resolution.
func testAssets(t testing.TB) (bases, accessories [][]byte) {
	bases = [][]byte{
		encodePNG(t, sprite(32, color.NRGBA{R: 200, G: 60, B: 40, A: 0xff})),
		encodeWebPFixture(t, sprite(32, color.NRGBA{R: 40, G: 160, B: 90, A: 0xff})),
		encodePNG(t, sprite(32, color.NRGBA{R: 70, G: 80, B: 210, A: 0xff})),
	}
	accessories = [][]byte{
		encodeWebPFixture(t, hat(32, color.NRGBA{R: 20, G: 20, B: 20, A: 0xff})),
		encodePNG(t, hat(16, color.NRGBA{R: 230, G: 190, B: 10, A: 0xff})),
	}
	return bases, accessories
}

func newTestGenerator(t testing.TB) *Generator {
	t.Helper()
	bases, acc := testAssets(t)
	g, err := NewGenerator(Config{Bases: bases, Accessories: acc})
	require.NoError(t, err)
	return g
}

// testKey returns a deterministic 32-byte key for index i.
func testKey(i int) []byte {
	h := sha256.Sum256([]byte{byte(i), byte(i >> 8), byte(i >> 16), 'k'})
	return h[:]
}
