package linking

import (
	"fmt"
	"sort"

	"paperlink/internal/config"
	"paperlink/internal/models"
)

// Selector picks candidate papers for a paper from the sources it cites.
// Candidates come back deduplicated, self excluded, ordered least recent
// first so the ranking gate's tail cut keeps the freshest work.
type Selector interface {
	Select(paper models.Paper, sources []models.Source) []string
}

func NewSelector(cfg config.Config) (Selector, error) {
	switch cfg.Selector {
	case config.SelectorReferenceOnly:
		return referenceOnlySelector{maxCandidates: cfg.MaxCandidates}, nil
	case config.SelectorFiltered:
		return filteredSelector{yearDiff: cfg.RangeYearDiff}, nil
	default:
		return nil, fmt.Errorf("unknown selector strategy: %q", cfg.Selector)
	}
}

// referenceOnlySelector unions every citing paper of every shared source.
// The union is unbounded, so it truncates to the cap here, keeping the most
// recently citing papers; the filtered strategy leaves capping to the gate.
type referenceOnlySelector struct {
	maxCandidates int
}

func (s referenceOnlySelector) Select(paper models.Paper, sources []models.Source) []string {
	best := map[string]int{}
	for _, src := range sources {
		for _, link := range src.Reflinks {
			if link.PaperID == paper.ID {
				continue
			}
			if y, ok := best[link.PaperID]; !ok || link.Year > y {
				best[link.PaperID] = link.Year
			}
		}
	}
	ids := rankByYear(best)
	if s.maxCandidates > 0 && len(ids) > s.maxCandidates {
		ids = ids[len(ids)-s.maxCandidates:]
	}
	return ids
}

// filteredSelector keeps only citing papers published inside the year window
// around the paper and, when the paper declares subject areas, sharing at
// least one of them.
type filteredSelector struct {
	yearDiff int
}

func (s filteredSelector) Select(paper models.Paper, sources []models.Source) []string {
	fromYear, toYear := paper.YearWindow(s.yearDiff)
	best := map[string]int{}
	for _, src := range sources {
		for _, link := range src.Reflinks {
			if link.PaperID == paper.ID {
				continue
			}
			if paper.PubYear > 0 && (link.Year < fromYear || link.Year > toYear) {
				continue
			}
			if len(paper.SubjectAreas) > 0 && !intersects(paper.SubjectAreas, link.SubjectAreas) {
				continue
			}
			if y, ok := best[link.PaperID]; !ok || link.Year > y {
				best[link.PaperID] = link.Year
			}
		}
	}
	return rankByYear(best)
}

// rankByYear orders ascending by the candidate's most recent citing year,
// breaking ties on id for stable output.
func rankByYear(best map[string]int) []string {
	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if best[ids[i]] != best[ids[j]] {
			return best[ids[i]] < best[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
