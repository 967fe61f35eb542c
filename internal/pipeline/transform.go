package pipeline

import "emolens/internal/detection"

// DefaultInferenceSize is the side of the square frame sent for inference
const DefaultInferenceSize = 160

// Transform maps a box from the unmirrored inference space onto the mirrored
// display surface of size dw×dh. The box is scaled first, then reflected
// about the vertical centre of the surface.
func Transform(r detection.RemoteDetection, dw, dh int) DetectionResult {
	return TransformSized(r, dw, dh, DefaultInferenceSize)
}

// TransformSized is Transform for an inference square of side size
func TransformSized(r detection.RemoteDetection, dw, dh, size int) DetectionResult {
	if size <= 0 {
		size = DefaultInferenceSize
	}
	sx := float64(dw) / float64(size)
	sy := float64(dh) / float64(size)

	bx := r.X * sx
	by := r.Y * sy
	bw := r.Width * sx
	bh := r.Height * sy

	return DetectionResult{
		Emotion: r.Emotion,
		Box: Box{
			X:      float64(dw) - (bx + bw),
			Y:      by,
			Width:  bw,
			Height: bh,
		},
		Confidence: r.Confidence,
	}
}

// TransformAll transforms a whole response. The result is never nil.
func TransformAll(remote []detection.RemoteDetection, dw, dh, size int) []DetectionResult {
	out := make([]DetectionResult, 0, len(remote))
	for _, r := range remote {
		out = append(out, TransformSized(r, dw, dh, size))
	}
	return out
}
