package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"paperlink/internal/activities"
	"paperlink/internal/models"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func testRouting() Routing {
	return Routing{
		PapersQueue:        "papers",
		SourcesQueue:       "sources",
		LinksQueue:         "links",
		SettleMaxAttempts:  5,
		SettleDelaySeconds: 2,
	}
}

func notSettled(found, expected int) error {
	return temporal.NewApplicationError("sources not yet settled", activities.ErrTypeNotSettled)
}

func TestLinkDiscoveryWaitsForSourcesToSettle(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(LinkDiscoveryWorkflow)

	settleCalls := 0
	registerActivityName(env, "CheckSourcesSettledActivity", func(context.Context, activities.CheckSourcesSettledInput) (activities.CheckSourcesSettledOutput, error) {
		settleCalls++
		// Two of three resolved is below the 0.7 tolerance; the third
		// attempt sees everything landed.
		if settleCalls < 3 {
			return activities.CheckSourcesSettledOutput{Expected: 3, Found: 2}, notSettled(2, 3)
		}
		return activities.CheckSourcesSettledOutput{Expected: 3, Found: 3, Settled: true}, nil
	})
	registerActivityName(env, "SelectCandidatesActivity", func(context.Context, activities.SelectCandidatesInput) (activities.SelectCandidatesOutput, error) {
		return activities.SelectCandidatesOutput{Status: string(models.StatusTODO), CandidateIDs: []string{"cand-1"}}, nil
	})
	registerActivityName(env, "RankCandidatesActivity", func(context.Context, activities.RankCandidatesInput) (activities.RankCandidatesOutput, error) {
		return activities.RankCandidatesOutput{Recommended: 1, Compared: 1}, nil
	})

	env.ExecuteWorkflow(LinkDiscoveryWorkflow, LinkInput{PaperID: "p1", Routing: testRouting()})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out LinkResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, LinkStatusDone, out.Status)
	require.Equal(t, 1, out.Recommended)
	require.Equal(t, 3, settleCalls)
}

func TestLinkDiscoveryFailsWhenSettleBudgetExhausted(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(LinkDiscoveryWorkflow)

	settleCalls := 0
	registerActivityName(env, "CheckSourcesSettledActivity", func(context.Context, activities.CheckSourcesSettledInput) (activities.CheckSourcesSettledOutput, error) {
		settleCalls++
		return activities.CheckSourcesSettledOutput{Expected: 10, Found: 1}, notSettled(1, 10)
	})
	ranked := false
	registerActivityName(env, "SelectCandidatesActivity", func(context.Context, activities.SelectCandidatesInput) (activities.SelectCandidatesOutput, error) {
		return activities.SelectCandidatesOutput{Status: string(models.StatusTODO), CandidateIDs: []string{"cand-1"}}, nil
	})
	registerActivityName(env, "RankCandidatesActivity", func(context.Context, activities.RankCandidatesInput) (activities.RankCandidatesOutput, error) {
		ranked = true
		return activities.RankCandidatesOutput{}, nil
	})

	env.ExecuteWorkflow(LinkDiscoveryWorkflow, LinkInput{PaperID: "p1", Routing: testRouting()})
	require.True(t, env.IsWorkflowCompleted())
	// The pass fails terminally; the paper is left TODO for a later run.
	require.Error(t, env.GetWorkflowError())
	require.False(t, ranked)
	require.Equal(t, 5, settleCalls)
}

func TestPaperRegisterWorkflowToleratesFailedLinkingPass(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperRegisterWorkflow)
	env.RegisterWorkflow(LinkDiscoveryWorkflow)

	ref := models.Reference{PubYear: "2015", Journal: "Vaccine", Surname: "Smith"}
	registerActivityName(env, "RegisterPaperActivity", func(_ context.Context, in activities.RegisterPaperInput) (activities.RegisterPaperOutput, error) {
		return activities.RegisterPaperOutput{
			PaperID:          "p1",
			Pid:              in.Paper.Pid,
			Status:           string(models.StatusSourceRegistered),
			ReferenceCount:   1,
			StrongReferences: []models.Reference{ref},
		}, nil
	})
	registerActivityName(env, "SetExpectedSourcesActivity", func(context.Context, activities.SetExpectedSourcesInput) error { return nil })
	registerActivityName(env, "ResolveReferenceActivity", func(context.Context, activities.ResolveReferenceInput) (activities.ResolveReferenceOutput, error) {
		return activities.ResolveReferenceOutput{Outcome: "linked"}, nil
	})
	registerActivityName(env, "CheckSourcesSettledActivity", func(context.Context, activities.CheckSourcesSettledInput) (activities.CheckSourcesSettledOutput, error) {
		return activities.CheckSourcesSettledOutput{Expected: 1}, notSettled(0, 1)
	})
	registerActivityName(env, "SelectCandidatesActivity", func(context.Context, activities.SelectCandidatesInput) (activities.SelectCandidatesOutput, error) {
		return activities.SelectCandidatesOutput{Status: string(models.StatusTODO)}, nil
	})
	registerActivityName(env, "RankCandidatesActivity", func(context.Context, activities.RankCandidatesInput) (activities.RankCandidatesOutput, error) {
		return activities.RankCandidatesOutput{}, nil
	})

	env.ExecuteWorkflow(PaperRegisterWorkflow, RegisterInput{
		Paper:   models.Paper{Pid: "S1-2018", PubYear: 2018},
		Routing: testRouting(),
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out RegisterResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 1, out.Outcomes.Linked)
	require.NotNil(t, out.Linking)
	require.Equal(t, LinkStatusFailed, out.Linking.Status)
}

func TestLinkDiscoveryNothingToDoOutsideTODO(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(LinkDiscoveryWorkflow)

	registerActivityName(env, "CheckSourcesSettledActivity", func(context.Context, activities.CheckSourcesSettledInput) (activities.CheckSourcesSettledOutput, error) {
		return activities.CheckSourcesSettledOutput{Settled: true}, nil
	})
	ranked := false
	registerActivityName(env, "SelectCandidatesActivity", func(context.Context, activities.SelectCandidatesInput) (activities.SelectCandidatesOutput, error) {
		return activities.SelectCandidatesOutput{Status: string(models.StatusSourceRegistered)}, nil
	})
	registerActivityName(env, "RankCandidatesActivity", func(context.Context, activities.RankCandidatesInput) (activities.RankCandidatesOutput, error) {
		ranked = true
		return activities.RankCandidatesOutput{}, nil
	})

	env.ExecuteWorkflow(LinkDiscoveryWorkflow, LinkInput{PaperID: "p1", Routing: testRouting()})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out LinkResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, LinkStatusNothing, out.Status)
	require.False(t, ranked)
}

func TestPaperRegisterWorkflowEndToEnd(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperRegisterWorkflow)
	env.RegisterWorkflow(LinkDiscoveryWorkflow)

	ref := models.Reference{PubYear: "2015", Journal: "Vaccine", Surname: "Smith"}
	registerActivityName(env, "RegisterPaperActivity", func(_ context.Context, in activities.RegisterPaperInput) (activities.RegisterPaperOutput, error) {
		return activities.RegisterPaperOutput{
			PaperID:          "p1",
			Pid:              in.Paper.Pid,
			Status:           string(models.StatusSourceRegistered),
			ReferenceCount:   1,
			StrongReferences: []models.Reference{ref},
		}, nil
	})
	registerActivityName(env, "SetExpectedSourcesActivity", func(_ context.Context, in activities.SetExpectedSourcesInput) error {
		require.Equal(t, 1, in.Expected)
		return nil
	})
	registerActivityName(env, "ResolveReferenceActivity", func(_ context.Context, in activities.ResolveReferenceInput) (activities.ResolveReferenceOutput, error) {
		require.Equal(t, ref, in.Reference)
		return activities.ResolveReferenceOutput{Outcome: "linked"}, nil
	})
	registerActivityName(env, "CheckSourcesSettledActivity", func(context.Context, activities.CheckSourcesSettledInput) (activities.CheckSourcesSettledOutput, error) {
		return activities.CheckSourcesSettledOutput{Expected: 1, Resolved: 1, Settled: true}, nil
	})
	registerActivityName(env, "SelectCandidatesActivity", func(context.Context, activities.SelectCandidatesInput) (activities.SelectCandidatesOutput, error) {
		return activities.SelectCandidatesOutput{Status: string(models.StatusTODO), CandidateIDs: []string{"p2"}}, nil
	})
	registerActivityName(env, "RankCandidatesActivity", func(_ context.Context, in activities.RankCandidatesInput) (activities.RankCandidatesOutput, error) {
		require.Equal(t, []string{"p2"}, in.CandidateIDs)
		return activities.RankCandidatesOutput{Recommended: 1, Compared: 1}, nil
	})

	env.ExecuteWorkflow(PaperRegisterWorkflow, RegisterInput{
		Paper:   models.Paper{Pid: "S1-2018", PubYear: 2018},
		Routing: testRouting(),
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out RegisterResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "p1", out.PaperID)
	require.Equal(t, 1, out.Outcomes.Linked)
	require.NotNil(t, out.Linking)
	require.Equal(t, LinkStatusDone, out.Linking.Status)
	require.Equal(t, 1, out.Linking.Recommended)
}

func TestPaperRegisterWorkflowSkipsLinkingWithoutStrongReferences(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperRegisterWorkflow)

	registerActivityName(env, "RegisterPaperActivity", func(_ context.Context, in activities.RegisterPaperInput) (activities.RegisterPaperOutput, error) {
		return activities.RegisterPaperOutput{PaperID: "p1", Pid: in.Paper.Pid, Status: string(models.StatusNA)}, nil
	})

	env.ExecuteWorkflow(PaperRegisterWorkflow, RegisterInput{
		Paper:   models.Paper{Pid: "S1-2018"},
		Routing: testRouting(),
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out RegisterResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, string(models.StatusNA), out.Status)
	require.Nil(t, out.Linking)
}

func TestQueueForReferenceCount(t *testing.T) {
	r := testRouting()
	require.Equal(t, "papers", QueueForReferenceCount(150, r))
	require.Equal(t, "sources", QueueForReferenceCount(51, r))
	require.Equal(t, "links", QueueForReferenceCount(50, r))
	require.Equal(t, "links", QueueForReferenceCount(0, r))
}
