package labitbu

import "errors"

// Error kinds returned by the generation, commitment and mint paths. Call
// sites wrap these with context, so match with errors.Is.
var (
	ErrInvalidKeyEncoding  = errors.New("invalid key encoding")
	ErrNoBaseImages        = errors.New("no base images set")
	ErrAssetDecode         = errors.New("asset decode failure")
	ErrArtifactTooLarge    = errors.New("artifact too large")
	ErrTreeCombine         = errors.New("tree combine error")
	ErrAddressParse        = errors.New("address parse failure")
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")
	ErrSerialization       = errors.New("serialization failure")
)
