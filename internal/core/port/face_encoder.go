package port

// FaceEncoder extracts a fixed-length embedding vector from an image.
//
// Implementations must reject images that are unsuitable for matching
// (no face, more than one face, resolution or face size below minimum)
// rather than returning a degenerate embedding.
type FaceEncoder interface {
	Extract(image []byte) ([]float64, error)
}
