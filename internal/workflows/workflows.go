package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"paperlink/internal/activities"
	"paperlink/internal/models"
)

const (
	QueryGetProgress   = "GetProgress"
	QueryGetLinkStatus = "GetLinkStatus"
)

// QueueForReferenceCount routes a link discovery run by citation volume.
// Papers citing the most works join the most shared sources and seed the
// most connections, so they take the least loaded lane.
func QueueForReferenceCount(n int, r Routing) string {
	switch {
	case n > 100:
		return r.PapersQueue
	case n > 50:
		return r.SourcesQueue
	default:
		return r.LinksQueue
	}
}

// PaperRegisterWorkflow runs the full ingestion pipeline for one paper:
// register, fan out reference resolution on the sources lane, then hand off
// to link discovery.
func PaperRegisterWorkflow(ctx workflow.Context, input RegisterInput) (RegisterResult, error) {
	progress := PipelineProgress{Pid: input.Paper.Pid, CurrentStep: "register"}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (PipelineProgress, error) {
		return progress, nil
	}); err != nil {
		return RegisterResult{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var reg activities.RegisterPaperOutput
	if err := workflow.ExecuteActivity(ctx, "RegisterPaperActivity", activities.RegisterPaperInput{
		Paper:      input.Paper,
		SkipUpdate: input.SkipUpdate,
	}).Get(ctx, &reg); err != nil {
		return RegisterResult{}, err
	}
	result := RegisterResult{
		PaperID: reg.PaperID,
		Pid:     reg.Pid,
		Status:  reg.Status,
		Skipped: reg.Skipped,
	}
	if reg.Skipped || len(reg.StrongReferences) == 0 {
		progress.CurrentStep = "done"
		return result, nil
	}

	progress.CurrentStep = "resolve_sources"
	progress.Total = len(reg.StrongReferences)
	if err := workflow.ExecuteActivity(ctx, "SetExpectedSourcesActivity", activities.SetExpectedSourcesInput{
		PaperID:  reg.PaperID,
		Expected: len(reg.StrongReferences),
	}).Get(ctx, nil); err != nil {
		return result, err
	}

	srcCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:           input.Routing.SourcesQueue,
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	futures := make([]workflow.Future, 0, len(reg.StrongReferences))
	for _, ref := range reg.StrongReferences {
		futures = append(futures, workflow.ExecuteActivity(srcCtx, "ResolveReferenceActivity", activities.ResolveReferenceInput{
			PaperID:   reg.PaperID,
			Reference: ref,
		}))
	}
	for _, f := range futures {
		var out activities.ResolveReferenceOutput
		if err := f.Get(srcCtx, &out); err != nil {
			// One lost reference must not sink the pipeline; the settle
			// check tolerates partial resolution.
			result.Outcomes.Failed++
			progress.Failed++
			continue
		}
		progress.Resolved++
		switch out.Outcome {
		case "created":
			result.Outcomes.Created++
		case "linked":
			result.Outcomes.Linked++
		case "noop":
			result.Outcomes.Noop++
		default:
			result.Outcomes.Skipped++
		}
	}

	progress.CurrentStep = "link_discovery"
	queue := QueueForReferenceCount(reg.ReferenceCount, input.Routing)
	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: "link-" + reg.Pid,
		TaskQueue:  queue,
	})
	var link LinkResult
	if err := workflow.ExecuteChildWorkflow(childCtx, LinkDiscoveryWorkflow, LinkInput{
		PaperID: reg.PaperID,
		Routing: input.Routing,
	}).Get(ctx, &link); err != nil {
		// Registration itself succeeded; a failed linking pass is reported,
		// not fatal. The paper stays TODO for a later pass.
		link = LinkResult{Status: LinkStatusFailed}
	}
	result.Linking = &link
	progress.CurrentStep = "done"
	return result, nil
}

// LinkDiscoveryWorkflow waits for the paper's sources to settle, selects
// candidates through its shared sources and runs the comparison gate. A
// paper outside TODO produces a no-op result.
func LinkDiscoveryWorkflow(ctx workflow.Context, input LinkInput) (LinkResult, error) {
	status := LinkStatusDone
	if err := workflow.SetQueryHandler(ctx, QueryGetLinkStatus, func() (string, error) {
		return status, nil
	}); err != nil {
		return LinkResult{}, err
	}

	settleDelay := time.Duration(orDefault(input.Routing.SettleDelaySeconds, 2)) * time.Second
	settleCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    settleDelay,
			BackoffCoefficient: 1,
			MaximumInterval:    settleDelay,
			MaximumAttempts:    int32(orDefault(input.Routing.SettleMaxAttempts, 5)),
		},
	})
	var settled activities.CheckSourcesSettledOutput
	if err := workflow.ExecuteActivity(settleCtx, "CheckSourcesSettledActivity", activities.CheckSourcesSettledInput{
		PaperID: input.PaperID,
	}).Get(settleCtx, &settled); err != nil {
		// Retries exhausted without settling. The paper stays TODO; a later
		// linking pass picks it up once the stragglers land.
		status = LinkStatusFailed
		return LinkResult{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var sel activities.SelectCandidatesOutput
	if err := workflow.ExecuteActivity(ctx, "SelectCandidatesActivity", activities.SelectCandidatesInput{
		PaperID: input.PaperID,
	}).Get(ctx, &sel); err != nil {
		return LinkResult{}, err
	}
	if sel.Status != string(models.StatusTODO) {
		status = LinkStatusNothing
		return LinkResult{Status: LinkStatusNothing}, nil
	}

	// The gate's comparison call dominates this activity, so its timeout
	// follows the configured compare deadline with headroom for storage.
	rankCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(orDefault(input.Routing.CompareTimeoutSeconds, 60)+30) * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	var rank activities.RankCandidatesOutput
	if err := workflow.ExecuteActivity(rankCtx, "RankCandidatesActivity", activities.RankCandidatesInput{
		PaperID:      input.PaperID,
		CandidateIDs: sel.CandidateIDs,
	}).Get(rankCtx, &rank); err != nil {
		return LinkResult{}, err
	}
	return LinkResult{
		Status:        status,
		Recommended:   rank.Recommended,
		ReferenceOnly: rank.ReferenceOnly,
		Compared:      rank.Compared,
	}, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
