package linking

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperlink/internal/compare"
	"paperlink/internal/models"
)

// scriptedComparer returns preset scores and records whether it ran.
type scriptedComparer struct {
	scores []float64
	calls  int
}

func (s *scriptedComparer) Compare(_ context.Context, req compare.Request) ([]float64, compare.ProviderInfo, error) {
	s.calls++
	if s.scores != nil {
		return s.scores, compare.ProviderInfo{Name: "scripted"}, nil
	}
	out := make([]float64, len(req.Candidates))
	return out, compare.ProviderInfo{Name: "scripted"}, nil
}

func targetPaper() models.Paper {
	return models.Paper{
		ID:     "p1",
		Titles: []models.TextAndLang{{Lang: "en", Text: "target paper"}},
	}
}

func candidatePapers(n int) []models.Paper {
	out := make([]models.Paper, n)
	for i := range out {
		out[i] = models.Paper{
			ID:     fmt.Sprintf("cand-%02d", i),
			Pid:    fmt.Sprintf("pid-%02d", i),
			Titles: []models.TextAndLang{{Lang: "en", Text: fmt.Sprintf("candidate %d", i)}},
		}
	}
	return out
}

func TestGateCapsCandidatesKeepingTail(t *testing.T) {
	comparer := &scriptedComparer{scores: make([]float64, 20)}
	gate := NewGate(comparer, 20, 0.7)

	recommended, referenceOnly, err := gate.Rank(context.Background(), targetPaper(), candidatePapers(50))
	require.NoError(t, err)
	assert.Empty(t, recommended)
	require.Len(t, referenceOnly, 30)
	// The 30 cut entries are the head of the list; all unscored.
	assert.Equal(t, "cand-00", referenceOnly[0].PaperID)
	assert.Equal(t, "cand-29", referenceOnly[29].PaperID)
	for _, conn := range referenceOnly {
		assert.Nil(t, conn.Score)
		assert.Equal(t, models.ConnectionReferenceOnly, conn.Kind)
	}
}

func TestGateThresholdIsStrictlyGreater(t *testing.T) {
	comparer := &scriptedComparer{scores: []float64{0.69, 0.7, 0.71}}
	gate := NewGate(comparer, 20, 0.7)

	recommended, referenceOnly, err := gate.Rank(context.Background(), targetPaper(), candidatePapers(3))
	require.NoError(t, err)
	assert.Empty(t, referenceOnly)
	// Exactly at the threshold is rejected.
	require.Len(t, recommended, 1)
	assert.Equal(t, "cand-02", recommended[0].PaperID)
	require.NotNil(t, recommended[0].Score)
	assert.Equal(t, 0.71, *recommended[0].Score)
	assert.Equal(t, models.ConnectionRecommended, recommended[0].Kind)
}

func TestGateNoCandidatesSkipsComparison(t *testing.T) {
	comparer := &scriptedComparer{}
	gate := NewGate(comparer, 20, 0.7)

	recommended, referenceOnly, err := gate.Rank(context.Background(), targetPaper(), nil)
	require.NoError(t, err)
	assert.Empty(t, recommended)
	assert.Empty(t, referenceOnly)
	assert.Zero(t, comparer.calls)
}

func TestGateNoTargetTextSkipsComparison(t *testing.T) {
	comparer := &scriptedComparer{}
	gate := NewGate(comparer, 20, 0.7)

	recommended, referenceOnly, err := gate.Rank(context.Background(), models.Paper{ID: "p1"}, candidatePapers(3))
	require.NoError(t, err)
	assert.Empty(t, recommended)
	assert.Empty(t, referenceOnly)
	assert.Zero(t, comparer.calls)
}

func TestGateSnapshotCarriesCandidateMetadata(t *testing.T) {
	p := models.Paper{
		ID:         "cand-1",
		Pid:        "S1-2018",
		Collection: "scl",
		PubYear:    2018,
		DOI:        "10.1/xyz",
		Titles:     []models.TextAndLang{{Lang: "en", Text: "Title"}},
		Abstracts:  []models.TextAndLang{{Lang: "en", Text: "Abstract"}},
	}
	score := 0.9
	conn := Snapshot(p, models.ConnectionRecommended, &score)
	assert.Equal(t, "cand-1", conn.PaperID)
	assert.Equal(t, "S1-2018", conn.Pid)
	assert.Equal(t, "scl", conn.Collection)
	assert.Equal(t, 2018, conn.Year)
	assert.Equal(t, "10.1/xyz", conn.DOI)
	assert.Equal(t, p.Titles, conn.Titles)
	assert.Equal(t, p.Abstracts, conn.Abstracts)
	require.NotNil(t, conn.Score)
	assert.Equal(t, 0.9, *conn.Score)
	assert.False(t, conn.CreatedAt.IsZero())
}
