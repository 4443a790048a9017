package retriever

import (
	"sort"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// Rerank orders candidates by score (descending), attaches a min/max
// normalized score and truncates to topK. With a single distinct score every
// candidate normalizes to 1.
func Rerank(candidates []contractx.DocumentHit, topK int) []contractx.DocumentHit {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]contractx.DocumentHit, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	minScore, maxScore := ranked[len(ranked)-1].Score, ranked[0].Score
	for i := range ranked {
		if maxScore > minScore {
			ranked[i].ScoreNormalized = (ranked[i].Score - minScore) / (maxScore - minScore)
		} else if ranked[i].Score == maxScore {
			ranked[i].ScoreNormalized = 1.0
		} else {
			ranked[i].ScoreNormalized = 0.0
		}
	}

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
