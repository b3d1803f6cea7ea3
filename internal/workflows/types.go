package workflows

import "paperlink/internal/models"

// Routing carries the queue names and orchestration knobs the workflows
// need; the caller fills it from config so workflow code stays free of
// environment reads.
type Routing struct {
	PapersQueue  string `json:"papers_queue"`
	SourcesQueue string `json:"sources_queue"`
	LinksQueue   string `json:"links_queue"`

	SettleMaxAttempts     int `json:"settle_max_attempts"`
	SettleDelaySeconds    int `json:"settle_delay_seconds"`
	CompareTimeoutSeconds int `json:"compare_timeout_seconds"`
}

type RegisterInput struct {
	Paper      models.Paper `json:"paper"`
	SkipUpdate bool         `json:"skip_update"`
	Routing    Routing      `json:"routing"`
}

type RegisterResult struct {
	PaperID  string      `json:"paper_id"`
	Pid      string      `json:"pid"`
	Status   string      `json:"status"`
	Skipped  bool        `json:"skipped"`
	Outcomes Outcomes    `json:"outcomes"`
	Linking  *LinkResult `json:"linking,omitempty"`
}

// Outcomes tallies the reference-resolution fan-out.
type Outcomes struct {
	Created int `json:"created"`
	Linked  int `json:"linked"`
	Noop    int `json:"noop"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type LinkInput struct {
	PaperID string  `json:"paper_id"`
	Routing Routing `json:"routing"`
}

type LinkResult struct {
	Status        string `json:"status"`
	Recommended   int    `json:"recommended"`
	ReferenceOnly int    `json:"reference_only"`
	Compared      int    `json:"compared"`
}

// LinkStatusDone and friends are the terminal states a link discovery run
// reports.
const (
	LinkStatusDone    = "done"
	LinkStatusNothing = "nothing to do"
	LinkStatusFailed  = "failed"
)

type PipelineProgress struct {
	Pid         string `json:"pid"`
	CurrentStep string `json:"current_step"`
	Total       int    `json:"total_references"`
	Resolved    int    `json:"resolved_references"`
	Failed      int    `json:"failed_references"`
}
