package contextbuilder

import "math"

// Cosine returns the cosine similarity between a and b, accumulated in
// float64 with plain sequential summation so identical inputs always
// produce identical results. When either vector has zero norm (or the
// lengths differ) the similarity is defined as 0; this guards the
// division rather than letting a degenerate vector blow up the pipeline.
// Inputs are assumed finite; sanitization happens before this point.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineMatrix computes pairwise similarities between every vector in as
// and every vector in bs. Row i column j holds Cosine(as[i], bs[j]).
func CosineMatrix(as, bs [][]float32) [][]float64 {
	matrix := make([][]float64, len(as))
	for i, a := range as {
		row := make([]float64, len(bs))
		for j, b := range bs {
			row[j] = Cosine(a, b)
		}
		matrix[i] = row
	}
	return matrix
}
