package models

import (
	"strings"
	"time"
)

// ProcStatus tracks a paper's readiness for link discovery. It is a total
// order of readiness, not of time: a full re-registration recomputes it from
// scratch, otherwise it never regresses.
type ProcStatus string

const (
	StatusNA               ProcStatus = "NA"
	StatusSourceRegistered ProcStatus = "SOURCE_REGISTERED"
	StatusTODO             ProcStatus = "TODO"
	StatusDone             ProcStatus = "DONE"
)

func (s ProcStatus) Rank() int {
	switch s {
	case StatusSourceRegistered:
		return 1
	case StatusTODO:
		return 2
	case StatusDone:
		return 3
	default:
		return 0
	}
}

// Connection kinds. Reference-only connections carry no score: the papers
// share cited works but were never compared semantically (either cut by the
// candidate cap or linked before a comparison ran).
const (
	ConnectionRecommended   = "recommended"
	ConnectionReferenceOnly = "reference_only"
)

type TextAndLang struct {
	Lang string `json:"lang"`
	Text string `json:"text"`
}

// Reference is one citation inside a Paper. It has no identity of its own;
// it exists only embedded in its owning paper's reference list.
type Reference struct {
	PubYear             string `json:"pub_year,omitempty"`
	Vol                 string `json:"vol,omitempty"`
	Num                 string `json:"num,omitempty"`
	Suppl               string `json:"suppl,omitempty"`
	Page                string `json:"page,omitempty"`
	Surname             string `json:"surname,omitempty"`
	OrganizationAuthor  string `json:"organization_author,omitempty"`
	DOI                 string `json:"doi,omitempty"`
	Journal             string `json:"journal,omitempty"`
	PaperTitle          string `json:"paper_title,omitempty"`
	Source              string `json:"source,omitempty"`
	ISSN                string `json:"issn,omitempty"`
	ThesisDate          string `json:"thesis_date,omitempty"`
	ThesisLoc           string `json:"thesis_loc,omitempty"`
	ThesisCountry       string `json:"thesis_country,omitempty"`
	ThesisDegree        string `json:"thesis_degree,omitempty"`
	ThesisOrg           string `json:"thesis_org,omitempty"`
	ConfDate            string `json:"conf_date,omitempty"`
	ConfLoc             string `json:"conf_loc,omitempty"`
	ConfCountry         string `json:"conf_country,omitempty"`
	ConfName            string `json:"conf_name,omitempty"`
	ConfOrg             string `json:"conf_org,omitempty"`
	PublisherLoc        string `json:"publisher_loc,omitempty"`
	PublisherCountry    string `json:"publisher_country,omitempty"`
	PublisherName       string `json:"publisher_name,omitempty"`
	Edition             string `json:"edition,omitempty"`
	SourceAuthorSurname string `json:"source_person_author_surname,omitempty"`
	SourceOrgAuthor     string `json:"source_organization_author,omitempty"`
}

// Normalize maps blank-ish field values to empty strings. Malformed field
// combinations are tolerated, never rejected; citation extraction is noisy.
func (r *Reference) Normalize() {
	fields := []*string{
		&r.PubYear, &r.Vol, &r.Num, &r.Suppl, &r.Page, &r.Surname,
		&r.OrganizationAuthor, &r.DOI, &r.Journal, &r.PaperTitle, &r.Source,
		&r.ISSN, &r.ThesisDate, &r.ThesisLoc, &r.ThesisCountry,
		&r.ThesisDegree, &r.ThesisOrg, &r.ConfDate, &r.ConfLoc,
		&r.ConfCountry, &r.ConfName, &r.ConfOrg, &r.PublisherLoc,
		&r.PublisherCountry, &r.PublisherName, &r.Edition,
		&r.SourceAuthorSurname, &r.SourceOrgAuthor,
	}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// HasDataEnough reports whether the reference is strong enough to
// participate in source deduplication: it needs a publication year and
// either a journal with an author, or a generic source title.
func (r Reference) HasDataEnough() bool {
	if r.PubYear == "" {
		return false
	}
	if r.Journal != "" && (r.Surname != "" || r.OrganizationAuthor != "") {
		return true
	}
	return r.Source != ""
}

func (r Reference) RefType() string {
	switch {
	case r.Journal != "":
		return "journal"
	case r.ConfName != "":
		return "conference"
	case r.ThesisDegree != "" || r.ThesisDate != "" || r.ThesisOrg != "" || r.ThesisLoc != "" || r.ThesisCountry != "":
		return "thesis"
	case r.Source != "":
		return "book"
	default:
		return "unidentified"
	}
}

// Reflink caches citing-paper metadata on a Source so filtered candidate
// queries never have to re-fetch the citing Paper.
type Reflink struct {
	PaperID      string   `json:"paper_id"`
	Pid          string   `json:"pid"`
	Year         int      `json:"year"`
	SubjectAreas []string `json:"subject_areas"`
}

// Source is the canonical record for a cited work, shared across every paper
// that cites an equivalent reference. ReferencedBy holds each citing paper id
// at most once and is the authoritative "already linked" check; Reflinks may
// carry duplicates across distinct citing events.
type Source struct {
	ID                  string    `json:"id"`
	PubYear             string    `json:"pub_year,omitempty"`
	Vol                 string    `json:"vol,omitempty"`
	Num                 string    `json:"num,omitempty"`
	Suppl               string    `json:"suppl,omitempty"`
	Page                string    `json:"page,omitempty"`
	Surname             string    `json:"surname,omitempty"`
	OrganizationAuthor  string    `json:"organization_author,omitempty"`
	DOI                 string    `json:"doi,omitempty"`
	Journal             string    `json:"journal,omitempty"`
	PaperTitle          string    `json:"paper_title,omitempty"`
	Source              string    `json:"source,omitempty"`
	ISSN                string    `json:"issn,omitempty"`
	ThesisDate          string    `json:"thesis_date,omitempty"`
	ThesisLoc           string    `json:"thesis_loc,omitempty"`
	ThesisCountry       string    `json:"thesis_country,omitempty"`
	ThesisDegree        string    `json:"thesis_degree,omitempty"`
	ThesisOrg           string    `json:"thesis_org,omitempty"`
	ConfDate            string    `json:"conf_date,omitempty"`
	ConfLoc             string    `json:"conf_loc,omitempty"`
	ConfCountry         string    `json:"conf_country,omitempty"`
	ConfName            string    `json:"conf_name,omitempty"`
	ConfOrg             string    `json:"conf_org,omitempty"`
	PublisherLoc        string    `json:"publisher_loc,omitempty"`
	PublisherCountry    string    `json:"publisher_country,omitempty"`
	PublisherName       string    `json:"publisher_name,omitempty"`
	Edition             string    `json:"edition,omitempty"`
	SourceAuthorSurname string    `json:"source_person_author_surname,omitempty"`
	SourceOrgAuthor     string    `json:"source_organization_author,omitempty"`
	ReferencedBy        []string  `json:"referenced_by"`
	Reflinks            []Reflink `json:"reflinks"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func SourceFromReference(r Reference) Source {
	return Source{
		PubYear:             r.PubYear,
		Vol:                 r.Vol,
		Num:                 r.Num,
		Suppl:               r.Suppl,
		Page:                r.Page,
		Surname:             r.Surname,
		OrganizationAuthor:  r.OrganizationAuthor,
		DOI:                 r.DOI,
		Journal:             r.Journal,
		PaperTitle:          r.PaperTitle,
		Source:              r.Source,
		ISSN:                r.ISSN,
		ThesisDate:          r.ThesisDate,
		ThesisLoc:           r.ThesisLoc,
		ThesisCountry:       r.ThesisCountry,
		ThesisDegree:        r.ThesisDegree,
		ThesisOrg:           r.ThesisOrg,
		ConfDate:            r.ConfDate,
		ConfLoc:             r.ConfLoc,
		ConfCountry:         r.ConfCountry,
		ConfName:            r.ConfName,
		ConfOrg:             r.ConfOrg,
		PublisherLoc:        r.PublisherLoc,
		PublisherCountry:    r.PublisherCountry,
		PublisherName:       r.PublisherName,
		Edition:             r.Edition,
		SourceAuthorSurname: r.SourceAuthorSurname,
		SourceOrgAuthor:     r.SourceOrgAuthor,
	}
}

// Connection is a persisted link from one paper to another. The target
// fields are a denormalized snapshot recomputed from the canonical Paper on
// every linking pass, never a live reference. Score is nil for links made by
// shared references alone.
type Connection struct {
	PaperID    string        `json:"paper_id"`
	Pid        string        `json:"pid"`
	Collection string        `json:"collection,omitempty"`
	Year       int           `json:"year,omitempty"`
	DOI        string        `json:"doi,omitempty"`
	Titles     []TextAndLang `json:"titles,omitempty"`
	Abstracts  []TextAndLang `json:"abstracts,omitempty"`
	Score      *float64      `json:"score,omitempty"`
	Kind       string        `json:"kind"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Paper is a recommendable, citable work. ID is the internal record id;
// Pid is the collection-scoped external identifier, unique system-wide.
type Paper struct {
	ID           string        `json:"id"`
	Pid          string        `json:"pid"`
	Collection   string        `json:"collection,omitempty"`
	MainLang     string        `json:"main_lang,omitempty"`
	DOI          string        `json:"doi,omitempty"`
	PubYear      int           `json:"pub_year,omitempty"`
	SubjectAreas []string      `json:"subject_areas,omitempty"`
	Titles       []TextAndLang `json:"titles,omitempty"`
	Abstracts    []TextAndLang `json:"abstracts,omitempty"`
	Keywords     []TextAndLang `json:"keywords,omitempty"`
	References   []Reference   `json:"references,omitempty"`
	Connections  []Connection  `json:"connections,omitempty"`

	Recommendable bool       `json:"recommendable"`
	ProcStatus    ProcStatus `json:"proc_status"`

	// Completion counters for the reference-resolution fan-out: expected is
	// set at dispatch time, resolved is incremented atomically by each
	// finished resolution job. The settle check compares them before falling
	// back to polling the source back-reference index.
	ExpectedSources int `json:"expected_sources"`
	ResolvedSources int `json:"resolved_sources"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasText reports whether at least one title, abstract or keyword carries
// text; it is what makes a paper recommendable.
func (p Paper) HasText() bool {
	for _, items := range [][]TextAndLang{p.Titles, p.Abstracts, p.Keywords} {
		for _, item := range items {
			if strings.TrimSpace(item.Text) != "" {
				return true
			}
		}
	}
	return false
}

// StrongReferences returns the references eligible for source resolution.
func (p Paper) StrongReferences() []Reference {
	out := make([]Reference, 0, len(p.References))
	for _, r := range p.References {
		if r.HasDataEnough() {
			out = append(out, r)
		}
	}
	return out
}

// ComparisonText concatenates every multilingual title, abstract and keyword
// into the single text handed to the comparison service.
func (p Paper) ComparisonText() string {
	parts := make([]string, 0, len(p.Titles)+len(p.Abstracts)+len(p.Keywords))
	for _, items := range [][]TextAndLang{p.Titles, p.Abstracts, p.Keywords} {
		for _, item := range items {
			if t := strings.TrimSpace(item.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// RecomputeStatus derives recommendable and the initial lifecycle status
// from scratch, as a full re-registration must.
func (p *Paper) RecomputeStatus() {
	p.Recommendable = p.HasText()
	if p.Recommendable && len(p.StrongReferences()) > 0 {
		p.ProcStatus = StatusSourceRegistered
		return
	}
	p.ProcStatus = StatusNA
}

// YearWindow is the default candidate recency horizon around the paper's
// publication year.
func (p Paper) YearWindow(diff int) (int, int) {
	return p.PubYear - diff, p.PubYear + diff
}
