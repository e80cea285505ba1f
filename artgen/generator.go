package artgen

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register gif asset decoding
	_ "image/jpeg" // register jpeg asset decoding
	_ "image/png"  // register png asset decoding

	_ "github.com/HugoSmits86/nativewebp" // register webp asset decoding
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/slog"
	"golang.org/x/image/draw"

	"github.com/stutxo/labitbu"
)

// Config holds the asset sets and tuning knobs for a Generator.
type Config struct {
	// Bases and Accessories are encoded images (webp, png, gif or jpeg).
	// Empty entries are dropped; the remaining order is significant.
	Bases       [][]byte
	Accessories [][]byte

	// SaturationFloor defaults to DefaultSaturationFloor when zero.
	SaturationFloor float64
	// WhiteThreshold defaults to DefaultWhiteThreshold when zero.
	WhiteThreshold uint8

	Log slog.Logger
}

// Traits are the choices drawn from a seed.
type Traits struct {
	Base      int
	Accessory int // -1 when no accessory was drawn
	Hue       int // degrees, [0, 360)
}

func (t Traits) String() string {
	return fmt.Sprintf("base=%d accessory=%d hue=%d", t.Base, t.Accessory, t.Hue)
}

// Generator composes artifacts from a fixed set of assets. It is immutable
// after construction and safe for concurrent use.
type Generator struct {
	bases       [][]byte
	accessories [][]byte
	satFloor    float64
	white       uint8
	log         slog.Logger
}

// NewGenerator validates cfg and returns a Generator. At least one non-empty
// base image is required.
func NewGenerator(cfg Config) (*Generator, error) {
	g := &Generator{
		bases:       nonEmpty(cfg.Bases),
		accessories: nonEmpty(cfg.Accessories),
		satFloor:    cfg.SaturationFloor,
		white:       cfg.WhiteThreshold,
		log:         cfg.Log,
	}
	if len(g.bases) == 0 {
		return nil, labitbu.ErrNoBaseImages
	}
	if g.satFloor == 0 {
		g.satFloor = DefaultSaturationFloor
	}
	if g.white == 0 {
		g.white = DefaultWhiteThreshold
	}
	if g.log == nil {
		g.log = slog.Disabled
	}
	return g, nil
}

func nonEmpty(in [][]byte) [][]byte {
	out := make([][]byte, 0, len(in))
	for _, b := range in {
		if len(b) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// NumBases returns the number of usable base images.
func (g *Generator) NumBases() int { return len(g.bases) }

// NumAccessories returns the number of usable accessory images.
func (g *Generator) NumAccessories() int { return len(g.accessories) }

// Draw consumes seed in a fixed order: base index, accessory roll (only when
// accessories exist), hue.
func (g *Generator) Draw(seed Seed) Traits {
	r := NewRand(seed)
	t := Traits{Accessory: -1}
	t.Base = r.Intn(len(g.bases))
	if n := len(g.accessories); n > 0 {
		if roll := r.Intn(n + 1); roll < n {
			t.Accessory = roll
		}
	}
	t.Hue = r.Intn(360)
	return t
}

// Composite renders the raster for t. The result has the base image's
// dimensions.
func (g *Generator) Composite(t Traits) (*image.NRGBA, error) {
	if t.Base < 0 || t.Base >= len(g.bases) {
		return nil, fmt.Errorf("%w: base index %d out of range", labitbu.ErrAssetDecode, t.Base)
	}
	canvas, err := decodeNRGBA(g.bases[t.Base])
	if err != nil {
		return nil, fmt.Errorf("%w: base %d: %v", labitbu.ErrAssetDecode, t.Base, err)
	}

	ShiftHue(canvas, t.Hue, g.satFloor, g.white)

	if t.Accessory < 0 {
		return canvas, nil
	}
	if t.Accessory >= len(g.accessories) {
		return nil, fmt.Errorf("%w: accessory index %d out of range",
			labitbu.ErrAssetDecode, t.Accessory)
	}
	acc, err := decodeNRGBA(g.accessories[t.Accessory])
	if err != nil {
		return nil, fmt.Errorf("%w: accessory %d: %v", labitbu.ErrAssetDecode, t.Accessory, err)
	}
	if acc.Bounds().Size() != canvas.Bounds().Size() {
		scaled := image.NewNRGBA(canvas.Bounds())
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), acc, acc.Bounds(), draw.Src, nil)
		acc = scaled
	}
	overlay(canvas, acc)
	return canvas, nil
}

// Render derives the seed for a 32-byte x-only key and composes its raster.
func (g *Generator) Render(xonly []byte) (*image.NRGBA, Traits, error) {
	seed, err := DeriveSeed(xonly)
	if err != nil {
		return nil, Traits{}, err
	}
	t := g.Draw(seed)
	img, err := g.Composite(t)
	if err != nil {
		return nil, t, err
	}
	g.log.Tracef("Rendered seed %s: %s", seed, t)
	return img, t, nil
}

// Generate returns the encoded artifact for a 32-byte x-only key. The key is
// only hashed into the seed and is not checked to be a curve point; callers
// holding untrusted input should use GenerateHex.
func (g *Generator) Generate(xonly []byte) (*Artifact, error) {
	img, t, err := g.Render(xonly)
	if err != nil {
		return nil, err
	}
	art, err := Encode(img)
	if err != nil {
		g.log.Warnf("Encode failed for %x (%s): %v", xonly, t, err)
		return nil, err
	}
	art.Traits = t
	g.log.Debugf("Generated artifact for %x: %s len=%d mode=%s", xonly, t, art.Len, art.Mode)
	return art, nil
}

// GenerateHex parses a hex x-only key, checks it is a curve point and
// generates its artifact.
func (g *Generator) GenerateHex(pubHex string) (*Artifact, error) {
	pub, err := labitbu.ParseXOnlyPubKey(pubHex)
	if err != nil {
		return nil, err
	}
	return g.Generate(schnorr.SerializePubKey(pub))
}

func decodeNRGBA(b []byte) (*image.NRGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst, nil
}

// overlay blends acc onto dst: each colour channel is mixed by the
// accessory's alpha and the result keeps the larger of the two alphas.
func overlay(dst, acc *image.NRGBA) {
	for i := 0; i+3 < len(dst.Pix) && i+3 < len(acc.Pix); i += 4 {
		a := uint32(acc.Pix[i+3])
		if a == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			v := uint32(dst.Pix[i+c])*(255-a) + uint32(acc.Pix[i+c])*a
			dst.Pix[i+c] = uint8((v + 127) / 255)
		}
		if acc.Pix[i+3] > dst.Pix[i+3] {
			dst.Pix[i+3] = acc.Pix[i+3]
		}
	}
}
