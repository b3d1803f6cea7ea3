package activities

import "paperlink/internal/models"

type RegisterPaperInput struct {
	Paper      models.Paper `json:"paper"`
	SkipUpdate bool         `json:"skip_update"`
}

type RegisterPaperOutput struct {
	PaperID          string             `json:"paper_id"`
	Pid              string             `json:"pid"`
	Status           string             `json:"status"`
	Skipped          bool               `json:"skipped"`
	ReferenceCount   int                `json:"reference_count"`
	StrongReferences []models.Reference `json:"strong_references,omitempty"`
}

type SetExpectedSourcesInput struct {
	PaperID  string `json:"paper_id"`
	Expected int    `json:"expected"`
}

type ResolveReferenceInput struct {
	PaperID   string           `json:"paper_id"`
	Reference models.Reference `json:"reference"`
}

type ResolveReferenceOutput struct {
	Outcome string `json:"outcome"`
}

type CheckSourcesSettledInput struct {
	PaperID string `json:"paper_id"`
}

type CheckSourcesSettledOutput struct {
	Expected int  `json:"expected"`
	Resolved int  `json:"resolved"`
	Found    int  `json:"found"`
	Settled  bool `json:"settled"`
}

type SelectCandidatesInput struct {
	PaperID string `json:"paper_id"`
}

type SelectCandidatesOutput struct {
	Status       string   `json:"status"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
}

type RankCandidatesInput struct {
	PaperID      string   `json:"paper_id"`
	CandidateIDs []string `json:"candidate_ids"`
}

type RankCandidatesOutput struct {
	Recommended   int `json:"recommended"`
	ReferenceOnly int `json:"reference_only"`
	Compared      int `json:"compared"`
}
