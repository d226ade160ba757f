package contextbuilder

import "math"

// Candidate is a single scored retrieval hit, built at the vector-store
// boundary immediately after a search response. It is immutable for the
// duration of one BuildContext call.
type Candidate struct {
	ID       string
	Score    float64
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// Metadata keys recognized by the formatter.
const (
	MetaSource  = "source"
	MetaPage    = "page"
	MetaChapter = "chapter"
	MetaSection = "section"
	MetaFileID  = "file_id"
)

// HasUsableVector reports whether the candidate carries a vector that is
// present, non-empty, and fully finite. Candidates failing this check are
// excluded from MMR selection rather than treated as zero vectors.
func (c Candidate) HasUsableVector() bool {
	if len(c.Vector) == 0 {
		return false
	}
	for _, v := range c.Vector {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isFiniteVector(vec []float32) bool {
	if len(vec) == 0 {
		return false
	}
	for _, v := range vec {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
