package biometric

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int, seed uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x) + seed, G: uint8(y), B: seed, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDigestEncoderExtract(t *testing.T) {
	enc := NewDigestEncoder(DefaultEncoderConfig())

	payload := encodePNG(t, 200, 200, 1)

	embedding, err := enc.Extract(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(embedding) != EmbeddingSize {
		t.Fatalf("embedding size = %d, want %d", len(embedding), EmbeddingSize)
	}
	for i, v := range embedding {
		if v < -1 || v >= 1 {
			t.Fatalf("embedding[%d] = %v outside [-1, 1)", i, v)
		}
	}
}

func TestDigestEncoderDeterministic(t *testing.T) {
	enc := NewDigestEncoder(DefaultEncoderConfig())

	payload := encodePNG(t, 200, 200, 7)

	first, err := enc.Extract(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, err := enc.Extract(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	dist, err := Distance(first, second)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if dist != 0 {
		t.Fatalf("same image distance = %v, want 0", dist)
	}
}

func TestDigestEncoderDistinctImages(t *testing.T) {
	enc := NewDigestEncoder(DefaultEncoderConfig())

	a, err := enc.Extract(encodePNG(t, 200, 200, 1))
	if err != nil {
		t.Fatalf("extract a: %v", err)
	}
	b, err := enc.Extract(encodePNG(t, 200, 200, 2))
	if err != nil {
		t.Fatalf("extract b: %v", err)
	}

	dist, err := Distance(a, b)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if dist == 0 {
		t.Fatal("distinct images produced identical embeddings")
	}
}

func TestDigestEncoderRejectsBadImages(t *testing.T) {
	enc := NewDigestEncoder(DefaultEncoderConfig())

	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image at all")},
		{"too small", encodePNG(t, 99, 99, 0)},
		{"too narrow", encodePNG(t, 50, 200, 0)},
		{"too wide", encodePNG(t, 4097, 100, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := enc.Extract(tc.payload); !errors.Is(err, ErrInvalidImage) {
				t.Fatalf("err = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestMatchesThreshold(t *testing.T) {
	template := make([]float64, EmbeddingSize)
	probe := make([]float64, EmbeddingSize)
	probe[0] = 0.3

	ok, dist, err := Matches(probe, template, 0.65)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if !ok {
		t.Fatalf("distance %v should match at threshold 0.65", dist)
	}

	ok, _, err = Matches(probe, template, 0.8)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if ok {
		t.Fatal("distance 0.3 should not match at threshold 0.8")
	}
}

func TestDistanceDimensionMismatch(t *testing.T) {
	if _, err := Distance(make([]float64, 64), make([]float64, 32)); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}
