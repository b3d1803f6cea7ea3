package linking

import (
	"context"
	"fmt"
	"time"

	"paperlink/internal/compare"
	"paperlink/internal/models"
)

// Gate runs the semantic comparison over a capped candidate set and
// partitions the results into connections.
type Gate struct {
	comparer      compare.Comparer
	maxCandidates int
	minScore      float64
}

func NewGate(comparer compare.Comparer, maxCandidates int, minScore float64) *Gate {
	return &Gate{comparer: comparer, maxCandidates: maxCandidates, minScore: minScore}
}

// Rank scores the tail of the candidate list, at most maxCandidates entries,
// against the paper's comparison text. Candidates cut by the cap are kept as
// unscored reference-only connections; scored candidates strictly above
// minScore become recommended connections; the rest are dropped. With no
// candidates, or a paper with no comparable text, nothing is compared and
// nothing is returned.
func (g *Gate) Rank(ctx context.Context, paper models.Paper, candidates []models.Paper) (recommended, referenceOnly []models.Connection, err error) {
	if len(candidates) == 0 || paper.ComparisonText() == "" {
		return nil, nil, nil
	}

	keep := candidates
	if g.maxCandidates > 0 && len(candidates) > g.maxCandidates {
		cut := candidates[:len(candidates)-g.maxCandidates]
		keep = candidates[len(candidates)-g.maxCandidates:]
		for _, c := range cut {
			referenceOnly = append(referenceOnly, Snapshot(c, models.ConnectionReferenceOnly, nil))
		}
	}

	texts := make([]string, len(keep))
	for i, c := range keep {
		texts[i] = c.ComparisonText()
	}
	scores, _, err := g.comparer.Compare(ctx, compare.Request{
		Query:      paper.ComparisonText(),
		Candidates: texts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("compare candidates: %w", err)
	}
	if len(scores) != len(keep) {
		return nil, nil, fmt.Errorf("comparer returned %d scores for %d candidates", len(scores), len(keep))
	}

	for i, c := range keep {
		if scores[i] > g.minScore {
			score := scores[i]
			recommended = append(recommended, Snapshot(c, models.ConnectionRecommended, &score))
		}
	}
	return recommended, referenceOnly, nil
}

// Snapshot denormalizes a candidate paper into a connection record. The copy
// is recomputed on every linking pass, so stale snapshots heal themselves the
// next time either side is re-linked.
func Snapshot(p models.Paper, kind string, score *float64) models.Connection {
	return models.Connection{
		PaperID:    p.ID,
		Pid:        p.Pid,
		Collection: p.Collection,
		Year:       p.PubYear,
		DOI:        p.DOI,
		Titles:     p.Titles,
		Abstracts:  p.Abstracts,
		Score:      score,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
	}
}
