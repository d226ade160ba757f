package contextbuilder

import (
	"math"
	"testing"
)

func nanVector() []float32 {
	return []float32{float32(math.NaN()), 0}
}

func TestSelectMMRDiversityTradeoff(t *testing.T) {
	// Candidate 2 is nearly parallel to candidate 1; candidate 3 is
	// orthogonal. MMR must pick 1 (most relevant) then 3 (more novel),
	// penalizing 2 for near-duplication despite its higher raw score.
	candidates := []Candidate{
		{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: "A"},
		{ID: "2", Score: 0.85, Vector: []float32{0.99, 0.01}, Text: "A duplicate-ish"},
		{ID: "3", Score: 0.7, Vector: []float32{0, 1}, Text: "B"},
	}

	selected := SelectMMR([]float32{1, 0}, candidates, 2, 0.3)

	if len(selected) != 2 {
		t.Fatalf("SelectMMR() returned %d candidates, want 2", len(selected))
	}
	if selected[0].ID != "1" || selected[1].ID != "3" {
		t.Errorf("selection order = [%s %s], want [1 3]", selected[0].ID, selected[1].ID)
	}
}

func TestSelectMMRPureRelevance(t *testing.T) {
	// diversity_factor = 1.0 degenerates to pure relevance ranking,
	// independent of how similar the candidates are to each other.
	candidates := []Candidate{
		{ID: "a", Score: 0.9, Vector: []float32{0.9, 0.1}, Text: "a"},
		{ID: "b", Score: 0.95, Vector: []float32{1, 0}, Text: "b"},
		{ID: "c", Score: 0.8, Vector: []float32{0.7, 0.3}, Text: "c"},
	}

	selected := SelectMMR([]float32{1, 0}, candidates, 3, 1.0)

	want := []string{"b", "a", "c"}
	if len(selected) != 3 {
		t.Fatalf("SelectMMR() returned %d candidates, want 3", len(selected))
	}
	for i, id := range want {
		if selected[i].ID != id {
			t.Errorf("selected[%d] = %s, want %s", i, selected[i].ID, id)
		}
	}
}

func TestSelectMMREdgeCases(t *testing.T) {
	query := []float32{1, 0}

	tests := []struct {
		name       string
		candidates []Candidate
		maxChunks  int
		wantIDs    []string
	}{
		{
			name:       "empty_input",
			candidates: nil,
			maxChunks:  5,
			wantIDs:    nil,
		},
		{
			name: "max_chunks_zero",
			candidates: []Candidate{
				{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: "x"},
			},
			maxChunks: 0,
			wantIDs:   nil,
		},
		{
			name: "single_candidate_returned_as_is",
			candidates: []Candidate{
				{ID: "only", Score: 0.2, Text: "no vector needed"},
			},
			maxChunks: 5,
			wantIDs:   []string{"only"},
		},
		{
			name: "no_vectors_falls_back_to_score_order",
			candidates: []Candidate{
				{ID: "low", Score: 0.5, Text: "l"},
				{ID: "high", Score: 0.9, Text: "h"},
				{ID: "mid", Score: 0.7, Text: "m"},
			},
			maxChunks: 2,
			wantIDs:   []string{"high", "mid"},
		},
		{
			name: "nan_vector_candidate_excluded",
			candidates: []Candidate{
				{ID: "good1", Score: 0.9, Vector: []float32{1, 0}, Text: "g1"},
				{ID: "bad", Score: 0.95, Vector: nanVector(), Text: "b"},
				{ID: "good2", Score: 0.8, Vector: []float32{0, 1}, Text: "g2"},
			},
			maxChunks: 5,
			wantIDs:   []string{"good1", "good2"},
		},
		{
			name: "identical_vectors_still_terminate",
			candidates: []Candidate{
				{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: "a"},
				{ID: "2", Score: 0.8, Vector: []float32{1, 0}, Text: "b"},
				{ID: "3", Score: 0.7, Vector: []float32{1, 0}, Text: "c"},
			},
			maxChunks: 3,
			wantIDs:   []string{"1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected := SelectMMR(query, tt.candidates, tt.maxChunks, 0.3)
			if len(selected) != len(tt.wantIDs) {
				t.Fatalf("SelectMMR() returned %d candidates, want %d", len(selected), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if selected[i].ID != id {
					t.Errorf("selected[%d] = %s, want %s", i, selected[i].ID, id)
				}
			}
		})
	}
}

func TestSelectMMRNeverExceedsMaxChunks(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 20; i++ {
		candidates = append(candidates, Candidate{
			ID:     string(rune('a' + i)),
			Score:  float64(i) / 20,
			Vector: []float32{float32(i), 1},
			Text:   "text",
		})
	}

	for _, maxChunks := range []int{1, 3, 7, 20, 50} {
		selected := SelectMMR([]float32{1, 0}, candidates, maxChunks, 0.3)
		if len(selected) > maxChunks {
			t.Errorf("SelectMMR(maxChunks=%d) returned %d candidates", maxChunks, len(selected))
		}
	}
}

func TestTopByScoreStableTies(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Score: 0.8, Text: "a"},
		{ID: "second", Score: 0.8, Text: "b"},
		{ID: "top", Score: 0.9, Text: "c"},
	}

	ranked := TopByScore(candidates, 3)
	want := []string{"top", "first", "second"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].ID, id)
		}
	}
}
