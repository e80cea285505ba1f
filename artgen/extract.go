package artgen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"
)

// ErrNoWebP is returned when no complete RIFF/WEBP container is found.
var ErrNoWebP = errors.New("no webp image found")

var (
	riffTag = []byte("RIFF")
	webpTag = []byte("WEBP")
)

// ExtractWebP returns the first complete WebP file embedded in data, such as
// a padded artifact or a control block carrying one.
func ExtractWebP(data []byte) ([]byte, error) {
	for off := 0; off+12 <= len(data); {
		i := bytes.Index(data[off:], riffTag)
		if i < 0 {
			break
		}
		i += off
		if i+12 > len(data) {
			break
		}
		size := int(binary.LittleEndian.Uint32(data[i+4:]))
		if bytes.Equal(data[i+8:i+12], webpTag) {
			end := i + 8 + size
			if size < 4 || end > len(data) || end < i {
				return nil, fmt.Errorf("%w: truncated container at offset %d", ErrNoWebP, i)
			}
			return data[i:end], nil
		}
		off = i + 1
	}
	return nil, ErrNoWebP
}

// DecodeArtifact extracts and decodes the WebP image inside data.
func DecodeArtifact(data []byte) (image.Image, error) {
	b, err := ExtractWebP(data)
	if err != nil {
		return nil, err
	}
	return nativewebp.Decode(bytes.NewReader(b))
}
