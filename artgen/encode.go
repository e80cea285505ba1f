package artgen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/HugoSmits86/nativewebp"

	"github.com/stutxo/labitbu"
)

// EncodeMode records which colour layout an artifact was written with.
type EncodeMode uint8

const (
	// ModeRGB is used when every pixel is opaque; the bitstream carries no
	// alpha flag.
	ModeRGB EncodeMode = iota
	// ModeRGBA keeps a full alpha channel.
	ModeRGBA
)

func (m EncodeMode) String() string {
	switch m {
	case ModeRGB:
		return "rgb"
	case ModeRGBA:
		return "rgba"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Artifact is an encoded image left-aligned in a zero-padded buffer.
type Artifact struct {
	Bytes   [labitbu.ArtifactSize]byte
	Len     int
	Mode    EncodeMode
	Indexed bool
	Traits  Traits
}

// Image returns the encoded image without padding.
func (a *Artifact) Image() []byte {
	return a.Bytes[:a.Len]
}

// Encode writes img as lossless WebP. Rasters with at most 256 distinct
// colours are also tried as an indexed image and the smaller result is kept.
// An encoding of ArtifactSize bytes or more fails with ErrArtifactTooLarge.
func Encode(img image.Image) (*Artifact, error) {
	raster := toNRGBA(img)

	mode := ModeRGBA
	if raster.Opaque() {
		mode = ModeRGB
	}

	best, err := encodeWebP(raster)
	if err != nil {
		return nil, err
	}
	indexed := false
	if pal := paletted(raster); pal != nil {
		cand, err := encodeWebP(pal)
		if err != nil {
			return nil, err
		}
		if len(cand) < len(best) {
			best = cand
			indexed = true
		}
	}

	if len(best) >= labitbu.ArtifactSize {
		return nil, fmt.Errorf("%w: encoded %d bytes, limit is %d",
			labitbu.ErrArtifactTooLarge, len(best), labitbu.ArtifactSize-1)
	}

	art := &Artifact{Len: len(best), Mode: mode, Indexed: indexed}
	copy(art.Bytes[:], best)
	return art, nil
}

func encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("%w: webp encode: %v", labitbu.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) &&
		n.Stride == 4*n.Bounds().Dx() {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			n.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return n
}

// paletted returns an indexed copy of img, or nil when img has more than 256
// colours or partially transparent pixels. Fully transparent pixels share a
// single zero entry so the copy decodes to the same visible image.
func paletted(img *image.NRGBA) *image.Paletted {
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	out := image.NewPaletted(img.Bounds(), nil)

	for i, j := 0, 0; i+3 < len(img.Pix); i, j = i+4, j+1 {
		c := color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
		switch c.A {
		case 0:
			c = color.NRGBA{}
		case 0xff:
		default:
			return nil
		}
		idx, ok := index[c]
		if !ok {
			if len(pal) == 256 {
				return nil
			}
			idx = uint8(len(pal))
			index[c] = idx
			pal = append(pal, c)
		}
		out.Pix[j] = idx
	}
	out.Palette = pal
	return out
}
