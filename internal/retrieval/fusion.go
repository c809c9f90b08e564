package retrieval

// rrfFuse combines two ranked candidate lists with Reciprocal Rank
// Fusion: score(id) = sum over lists containing id of 1/(k + rank),
// rank 1-based within each list (a list's first entry scores
// 1/(k+1)). Returns IDs sorted by
// fused score, descending.
func rrfFuse(k int, sparse []sparseCandidate, dense []denseCandidate) []string {
	if k <= 0 {
		k = 60
	}
	scores := make(map[string]float64)
	order := make([]string, 0, len(sparse)+len(dense))

	for rank, c := range sparse {
		if _, seen := scores[c.id]; !seen {
			order = append(order, c.id)
		}
		scores[c.id] += 1.0 / float64(k+rank+1)
	}
	for _, c := range dense {
		if _, seen := scores[c.id]; !seen {
			order = append(order, c.id)
		}
		scores[c.id] += 1.0 / float64(k+c.rank+1)
	}

	// stable sort by score descending, ties broken by first-seen order
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}
