package contextbuilder

import "sort"

// SelectMMR re-ranks candidates by Maximal Marginal Relevance: it seeds
// with the candidate most similar to the query, then repeatedly picks the
// remaining candidate maximizing
//
//	diversityFactor*querySim - (1-diversityFactor)*maxSimToSelected
//
// until maxChunks are chosen. diversityFactor near 1 degenerates to pure
// top-k relevance; near 0 it maximizes spread at the cost of relevance.
// Ties always break toward the earliest index so the selection is
// deterministic. The returned slice is in selection order: the first
// element is the most query-relevant, later ones trade relevance for
// novelty.
//
// Candidates whose vectors are missing or non-finite are excluded from
// selection. When no usable vectors remain at all, MMR cannot run and the
// top maxChunks by score are returned instead; that is a defined
// fallback, not a failure.
func SelectMMR(queryVector []float32, candidates []Candidate, maxChunks int, diversityFactor float64) []Candidate {
	if len(candidates) == 0 || maxChunks <= 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates
	}

	usable := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasUsableVector() {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 || !isFiniteVector(queryVector) {
		return TopByScore(candidates, maxChunks)
	}
	if len(usable) == 1 {
		return usable
	}

	vectors := make([][]float32, len(usable))
	for i, c := range usable {
		vectors[i] = c.Vector
	}

	querySim := make([]float64, len(usable))
	for i, vec := range vectors {
		querySim[i] = Cosine(queryVector, vec)
	}
	docSim := CosineMatrix(vectors, vectors)

	// Seed with the single most query-relevant candidate.
	seed := 0
	for i := 1; i < len(usable); i++ {
		if querySim[i] > querySim[seed] {
			seed = i
		}
	}

	selected := []int{seed}
	remaining := make([]int, 0, len(usable)-1)
	for i := range usable {
		if i != seed {
			remaining = append(remaining, i)
		}
	}

	for len(remaining) > 0 && len(selected) < maxChunks {
		bestPos := 0
		bestScore := mmrScore(remaining[0], selected, querySim, docSim, diversityFactor)
		for pos := 1; pos < len(remaining); pos++ {
			score := mmrScore(remaining[pos], selected, querySim, docSim, diversityFactor)
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	result := make([]Candidate, len(selected))
	for i, idx := range selected {
		result[i] = usable[idx]
	}
	return result
}

func mmrScore(i int, selected []int, querySim []float64, docSim [][]float64, diversityFactor float64) float64 {
	maxSim := 0.0
	for pos, j := range selected {
		if pos == 0 || docSim[i][j] > maxSim {
			maxSim = docSim[i][j]
		}
	}
	return diversityFactor*querySim[i] - (1-diversityFactor)*maxSim
}

// TopByScore returns up to maxChunks candidates ordered by score
// descending. The sort is stable so equal scores keep their original
// rank order, matching the earliest-index tie rule of MMR selection.
func TopByScore(candidates []Candidate, maxChunks int) []Candidate {
	if maxChunks <= 0 || len(candidates) == 0 {
		return nil
	}
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > maxChunks {
		ranked = ranked[:maxChunks]
	}
	return ranked
}
