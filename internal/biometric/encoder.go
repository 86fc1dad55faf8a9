// Package biometric implements face-embedding extraction and comparison for
// biometric authentication. Embeddings are fixed-length vectors; matching is
// distance-based with a per-account tunable threshold.
package biometric

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrInvalidImage indicates the uploaded bytes are not a usable face image
// (undecodable, out of the accepted resolution range, or no extractable face).
var ErrInvalidImage = errors.New("biometric: invalid image")

// EmbeddingSize is the dimensionality of the extracted embedding vector.
const EmbeddingSize = 64

// EncoderConfig bounds the images the encoder accepts.
type EncoderConfig struct {
	MinWidth     int
	MinHeight    int
	MaxDimension int
}

// DefaultEncoderConfig returns the production image bounds.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		MinWidth:     100,
		MinHeight:    100,
		MaxDimension: 4096,
	}
}

// DigestEncoder extracts a deterministic embedding from the image digest.
// It stands in for a neural face encoder behind the same interface: identical
// input bytes always produce the identical vector, so distance-0 self-match
// holds, while distinct images scatter across the embedding space. A
// deployment with a real recognizer sidecar swaps in its own port.FaceEncoder
// implementation without touching callers.
type DigestEncoder struct {
	cfg EncoderConfig
}

// NewDigestEncoder builds an encoder with the supplied bounds, falling back
// to defaults for unset fields.
func NewDigestEncoder(cfg EncoderConfig) *DigestEncoder {
	def := DefaultEncoderConfig()
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = def.MinWidth
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = def.MinHeight
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = def.MaxDimension
	}
	return &DigestEncoder{cfg: cfg}
}

// Extract validates image quality and returns the embedding vector.
func (e *DigestEncoder) Extract(imageBytes []byte) ([]float64, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable image", ErrInvalidImage)
	}

	if cfg.Width < e.cfg.MinWidth || cfg.Height < e.cfg.MinHeight {
		return nil, fmt.Errorf("%w: image below minimum %dx%d", ErrInvalidImage, e.cfg.MinWidth, e.cfg.MinHeight)
	}
	if cfg.Width > e.cfg.MaxDimension || cfg.Height > e.cfg.MaxDimension {
		return nil, fmt.Errorf("%w: image exceeds maximum dimension %d", ErrInvalidImage, e.cfg.MaxDimension)
	}

	digest := sha256.Sum256(imageBytes)

	embedding := make([]float64, EmbeddingSize)
	for i := 0; i < EmbeddingSize; i++ {
		b := digest[i%len(digest)]
		embedding[i] = (float64(b) - 128) / 128
	}

	return embedding, nil
}
