package pipeline

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// Sampler downsamples frames into the fixed square sent for inference.
// The working buffer is reused between calls; a Sampler belongs to one loop.
type Sampler struct {
	size    int
	quality int
	buf     *image.RGBA
	out     bytes.Buffer
}

// NewSampler creates a sampler producing size×size JPEGs at quality (1-100)
func NewSampler(size, quality int) *Sampler {
	if size <= 0 {
		size = DefaultInferenceSize
	}
	if quality <= 0 || quality > 100 {
		quality = 50
	}
	return &Sampler{
		size:    size,
		quality: quality,
		buf:     image.NewRGBA(image.Rect(0, 0, size, size)),
	}
}

// Size returns the side of the inference square
func (s *Sampler) Size() int { return s.size }

// Sample scales the unmirrored frame into the working buffer and returns it
// as a JPEG data URI
func (s *Sampler) Sample(src image.Image) (string, error) {
	draw.BiLinear.Scale(s.buf, s.buf.Bounds(), src, src.Bounds(), draw.Src, nil)

	s.out.Reset()
	if err := jpeg.Encode(&s.out, s.buf, &jpeg.Options{Quality: s.quality}); err != nil {
		return "", fmt.Errorf("error encoding sample: %w", err)
	}
	return EncodeDataURI(s.out.Bytes()), nil
}

// EncodeDataURI wraps JPEG bytes in a data URI
func EncodeDataURI(jpegData []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// DecodeDataURI extracts the JPEG bytes from a data URI produced by EncodeDataURI
func DecodeDataURI(uri string) ([]byte, error) {
	if len(uri) < len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, fmt.Errorf("not a JPEG data URI")
	}
	return base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
}
