package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"paperlink/internal/compare"
	"paperlink/internal/config"
	"paperlink/internal/linking"
	"paperlink/internal/models"
	"paperlink/internal/storage"
)

// ErrTypeNotSettled marks the retryable "sources not yet settled" failure so
// the workflow retry policy can spin on it without burying real faults.
const ErrTypeNotSettled = "sources_not_settled"

type Activities struct {
	cfg      config.Config
	papers   *storage.PaperRepo
	sources  *storage.SourceRepo
	resolver *linking.Resolver
	selector linking.Selector
	gate     *linking.Gate
	log      *zap.Logger
}

func New(cfg config.Config, db *storage.DB, log *zap.Logger) (*Activities, error) {
	comparer, err := compare.New(cfg)
	if err != nil {
		return nil, err
	}
	selector, err := linking.NewSelector(cfg)
	if err != nil {
		return nil, err
	}
	papers := storage.NewPaperRepo(db)
	sources := storage.NewSourceRepo(db)
	return &Activities{
		cfg:      cfg,
		papers:   papers,
		sources:  sources,
		resolver: linking.NewResolver(sources, papers),
		selector: selector,
		gate:     linking.NewGate(comparer, cfg.MaxCandidates, cfg.MinScore),
		log:      log,
	}, nil
}

// RegisterPaperActivity normalizes and upserts a paper. Registration is a
// full replace-and-recompute unless skip_update is set and the pid already
// exists.
func (a *Activities) RegisterPaperActivity(ctx context.Context, in RegisterPaperInput) (RegisterPaperOutput, error) {
	p := in.Paper
	if p.Pid == "" {
		return RegisterPaperOutput{}, temporal.NewNonRetryableApplicationError("paper requires a pid", "invalid_paper", nil)
	}

	if in.SkipUpdate {
		existing, err := a.papers.GetByPid(ctx, p.Pid)
		if err == nil {
			return RegisterPaperOutput{
				PaperID:        existing.ID,
				Pid:            existing.Pid,
				Status:         string(existing.ProcStatus),
				Skipped:        true,
				ReferenceCount: len(existing.References),
			}, nil
		}
		if !errors.Is(err, storage.ErrPaperNotFound) {
			return RegisterPaperOutput{}, err
		}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.References {
		p.References[i].Normalize()
	}
	p.RecomputeStatus()

	id, err := a.papers.Upsert(ctx, p)
	if err != nil {
		return RegisterPaperOutput{}, err
	}
	a.log.Info("paper registered",
		zap.String("pid", p.Pid),
		zap.String("status", string(p.ProcStatus)),
		zap.Int("references", len(p.References)))
	return RegisterPaperOutput{
		PaperID:          id,
		Pid:              p.Pid,
		Status:           string(p.ProcStatus),
		ReferenceCount:   len(p.References),
		StrongReferences: p.StrongReferences(),
	}, nil
}

func (a *Activities) SetExpectedSourcesActivity(ctx context.Context, in SetExpectedSourcesInput) error {
	return a.papers.SetExpectedSources(ctx, in.PaperID, in.Expected)
}

// ResolveReferenceActivity deduplicates one reference into the source index
// and ticks the paper's completion counter.
func (a *Activities) ResolveReferenceActivity(ctx context.Context, in ResolveReferenceInput) (ResolveReferenceOutput, error) {
	paper, err := a.papers.GetByID(ctx, in.PaperID)
	if err != nil {
		return ResolveReferenceOutput{}, err
	}
	outcome, err := a.resolver.Resolve(ctx, paper, in.Reference)
	if err != nil {
		return ResolveReferenceOutput{}, err
	}
	if err := a.papers.IncrementResolvedSources(ctx, in.PaperID); err != nil {
		return ResolveReferenceOutput{}, err
	}
	return ResolveReferenceOutput{Outcome: string(outcome)}, nil
}

// CheckSourcesSettledActivity decides whether enough of the paper's
// reference fan-out has landed to start link discovery. The completion
// counters answer cheaply; when they fall short it polls the source index
// directly, which also covers counters lost to a crashed resolution job.
// An unsettled result is a typed retryable error, left to the caller's
// retry policy.
func (a *Activities) CheckSourcesSettledActivity(ctx context.Context, in CheckSourcesSettledInput) (CheckSourcesSettledOutput, error) {
	paper, err := a.papers.GetByID(ctx, in.PaperID)
	if err != nil {
		return CheckSourcesSettledOutput{}, err
	}
	out := CheckSourcesSettledOutput{
		Expected: paper.ExpectedSources,
		Resolved: paper.ResolvedSources,
	}
	if paper.ExpectedSources == 0 || paper.ResolvedSources >= paper.ExpectedSources {
		out.Settled = true
		return out, nil
	}

	found, err := a.sources.CountByCiter(ctx, in.PaperID)
	if err != nil {
		return CheckSourcesSettledOutput{}, err
	}
	out.Found = found
	if float64(found)/float64(paper.ExpectedSources) >= a.cfg.SettleTolerance {
		out.Settled = true
		return out, nil
	}
	return out, temporal.NewApplicationError(
		fmt.Sprintf("sources not yet settled: %d of %d resolved", found, paper.ExpectedSources),
		ErrTypeNotSettled)
}

// SelectCandidatesActivity gathers candidate papers through the sources the
// paper cites. A paper outside TODO reports its status and no candidates;
// the workflow turns that into a no-op.
func (a *Activities) SelectCandidatesActivity(ctx context.Context, in SelectCandidatesInput) (SelectCandidatesOutput, error) {
	paper, err := a.papers.GetByID(ctx, in.PaperID)
	if err != nil {
		return SelectCandidatesOutput{}, err
	}
	out := SelectCandidatesOutput{Status: string(paper.ProcStatus)}
	if paper.ProcStatus != models.StatusTODO {
		return out, nil
	}
	shared, err := a.sources.ListByCiter(ctx, in.PaperID)
	if err != nil {
		return SelectCandidatesOutput{}, err
	}
	out.CandidateIDs = a.selector.Select(paper, shared)
	return out, nil
}

// RankCandidatesActivity runs the comparison gate and persists the result:
// the paper's connection list is rebuilt from scratch and each recommended
// candidate gets the reverse edge.
func (a *Activities) RankCandidatesActivity(ctx context.Context, in RankCandidatesInput) (RankCandidatesOutput, error) {
	paper, err := a.papers.GetByID(ctx, in.PaperID)
	if err != nil {
		return RankCandidatesOutput{}, err
	}
	candidates, err := a.papers.ListByIDs(ctx, in.CandidateIDs)
	if err != nil {
		return RankCandidatesOutput{}, err
	}
	recommended, referenceOnly, err := a.gate.Rank(ctx, paper, candidates)
	if err != nil {
		return RankCandidatesOutput{}, err
	}

	conns := make([]models.Connection, 0, len(recommended)+len(referenceOnly))
	conns = append(conns, recommended...)
	conns = append(conns, referenceOnly...)
	if err := a.papers.ReplaceConnections(ctx, paper.ID, conns, true); err != nil {
		return RankCandidatesOutput{}, err
	}
	for _, conn := range recommended {
		reverse := linking.Snapshot(paper, models.ConnectionRecommended, conn.Score)
		if err := a.papers.AppendConnection(ctx, conn.PaperID, reverse); err != nil {
			return RankCandidatesOutput{}, err
		}
	}
	a.log.Info("linking pass persisted",
		zap.String("pid", paper.Pid),
		zap.Int("recommended", len(recommended)),
		zap.Int("reference_only", len(referenceOnly)))
	compared := len(candidates) - len(referenceOnly)
	return RankCandidatesOutput{
		Recommended:   len(recommended),
		ReferenceOnly: len(referenceOnly),
		Compared:      compared,
	}, nil
}
