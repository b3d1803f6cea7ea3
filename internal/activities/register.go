package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.RegisterPaperActivity)
	w.RegisterActivity(a.SetExpectedSourcesActivity)
	w.RegisterActivity(a.ResolveReferenceActivity)
	w.RegisterActivity(a.CheckSourcesSettledActivity)
	w.RegisterActivity(a.SelectCandidatesActivity)
	w.RegisterActivity(a.RankCandidatesActivity)
}
