package linking

import (
	"context"
	"fmt"

	"paperlink/internal/models"
)

// Outcome of resolving one reference against the source index.
type Outcome string

const (
	// OutcomeCreated means no equivalent source existed, so one was created
	// with the citing paper as its first citer.
	OutcomeCreated Outcome = "created"
	// OutcomeLinked means an equivalent source existed and the citing paper
	// was appended to it.
	OutcomeLinked Outcome = "linked"
	// OutcomeNoop means the citing paper was already on the matched source.
	OutcomeNoop Outcome = "noop"
	// OutcomeSkipped means the reference lacks the data to deduplicate.
	OutcomeSkipped Outcome = "skipped"
)

// Resolver deduplicates references into canonical sources.
type Resolver struct {
	sources SourceStore
	papers  PaperStore
}

func NewResolver(sources SourceStore, papers PaperStore) *Resolver {
	return &Resolver{sources: sources, papers: papers}
}

// Resolve matches one reference to a source, creating the source if no
// equivalent exists. Matching is DOI-first; without a DOI it falls back to a
// conjunctive filter over the reference's non-empty dedup fields.
//
// Joining an existing source means the citing paper now shares a cited work
// with at least one other paper, so it is promoted to the link-discovery
// queue (SOURCE_REGISTERED to TODO; a no-op from any other status).
func (r *Resolver) Resolve(ctx context.Context, paper models.Paper, ref models.Reference) (Outcome, error) {
	ref.Normalize()
	if !ref.HasDataEnough() {
		return OutcomeSkipped, nil
	}

	link := models.Reflink{
		PaperID:      paper.ID,
		Pid:          paper.Pid,
		Year:         paper.PubYear,
		SubjectAreas: paper.SubjectAreas,
	}

	var (
		matches []models.Source
		err     error
	)
	if ref.DOI != "" {
		matches, err = r.sources.SearchByDOI(ctx, ref.DOI)
	} else {
		matches, err = r.sources.SearchByFields(ctx, ref)
	}
	if err != nil {
		return "", fmt.Errorf("search sources: %w", err)
	}

	if len(matches) == 0 {
		if _, err := r.sources.Create(ctx, models.SourceFromReference(ref), link); err != nil {
			return "", fmt.Errorf("create source: %w", err)
		}
		return OutcomeCreated, nil
	}

	appended, err := r.sources.AppendCiter(ctx, matches[0].ID, link)
	if err != nil {
		return "", fmt.Errorf("link source: %w", err)
	}
	if !appended {
		return OutcomeNoop, nil
	}
	if err := r.papers.MarkTODO(ctx, paper.ID); err != nil {
		return "", fmt.Errorf("promote citing paper: %w", err)
	}
	return OutcomeLinked, nil
}
