package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceHasDataEnough(t *testing.T) {
	cases := []struct {
		name string
		ref  Reference
		want bool
	}{
		{"empty", Reference{}, false},
		{"year only", Reference{PubYear: "2015"}, false},
		{"year and journal, no author", Reference{PubYear: "2015", Journal: "Vaccine"}, false},
		{"year, journal, surname", Reference{PubYear: "2015", Journal: "Vaccine", Surname: "Smith"}, true},
		{"year, journal, org author", Reference{PubYear: "2015", Journal: "Vaccine", OrganizationAuthor: "WHO"}, true},
		{"year and source", Reference{PubYear: "2015", Source: "Annual health report"}, true},
		{"journal and surname, no year", Reference{Journal: "Vaccine", Surname: "Smith"}, false},
		{"source, no year", Reference{Source: "Annual health report"}, false},
		{"surname without journal or source", Reference{PubYear: "2015", Surname: "Smith"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ref.HasDataEnough())
		})
	}
}

func TestReferenceNormalizeTrimsEveryField(t *testing.T) {
	ref := Reference{PubYear: " 2015 ", Journal: "\tVaccine\n", Surname: "  "}
	ref.Normalize()
	assert.Equal(t, "2015", ref.PubYear)
	assert.Equal(t, "Vaccine", ref.Journal)
	assert.Equal(t, "", ref.Surname)
}

func TestReferenceRefType(t *testing.T) {
	assert.Equal(t, "journal", Reference{Journal: "Vaccine", Source: "x"}.RefType())
	assert.Equal(t, "conference", Reference{ConfName: "ICML"}.RefType())
	assert.Equal(t, "thesis", Reference{ThesisDegree: "PhD"}.RefType())
	assert.Equal(t, "book", Reference{Source: "Textbook of Medicine"}.RefType())
	assert.Equal(t, "unidentified", Reference{Surname: "Smith"}.RefType())
}

func TestPaperRecomputeStatus(t *testing.T) {
	strong := Reference{PubYear: "2015", Journal: "Vaccine", Surname: "Smith"}

	p := Paper{}
	p.RecomputeStatus()
	assert.False(t, p.Recommendable)
	assert.Equal(t, StatusNA, p.ProcStatus)

	// Text but no usable references: recommendable, nothing to resolve.
	p = Paper{Titles: []TextAndLang{{Lang: "en", Text: "A title"}}}
	p.RecomputeStatus()
	assert.True(t, p.Recommendable)
	assert.Equal(t, StatusNA, p.ProcStatus)

	// References but no text: not recommendable, not worth resolving.
	p = Paper{References: []Reference{strong}}
	p.RecomputeStatus()
	assert.False(t, p.Recommendable)
	assert.Equal(t, StatusNA, p.ProcStatus)

	p = Paper{
		Titles:     []TextAndLang{{Lang: "en", Text: "A title"}},
		References: []Reference{strong},
	}
	p.RecomputeStatus()
	assert.True(t, p.Recommendable)
	assert.Equal(t, StatusSourceRegistered, p.ProcStatus)
}

func TestPaperHasTextIgnoresBlankEntries(t *testing.T) {
	p := Paper{Titles: []TextAndLang{{Lang: "en", Text: "   "}}}
	assert.False(t, p.HasText())
	p.Keywords = []TextAndLang{{Lang: "pt", Text: "vacina"}}
	assert.True(t, p.HasText())
}

func TestPaperStrongReferences(t *testing.T) {
	p := Paper{References: []Reference{
		{PubYear: "2015", Journal: "Vaccine", Surname: "Smith"},
		{Journal: "Vaccine"},
		{PubYear: "2010", Source: "Report"},
	}}
	assert.Len(t, p.StrongReferences(), 2)
}

func TestPaperComparisonText(t *testing.T) {
	p := Paper{
		Titles:    []TextAndLang{{Lang: "en", Text: "Title"}, {Lang: "pt", Text: ""}},
		Abstracts: []TextAndLang{{Lang: "en", Text: "Abstract"}},
		Keywords:  []TextAndLang{{Lang: "en", Text: "keyword"}},
	}
	assert.Equal(t, "Title\nAbstract\nkeyword", p.ComparisonText())
}

func TestProcStatusRankIsMonotonic(t *testing.T) {
	assert.Less(t, StatusNA.Rank(), StatusSourceRegistered.Rank())
	assert.Less(t, StatusSourceRegistered.Rank(), StatusTODO.Rank())
	assert.Less(t, StatusTODO.Rank(), StatusDone.Rank())
}

func TestYearWindow(t *testing.T) {
	p := Paper{PubYear: 2018}
	from, to := p.YearWindow(5)
	assert.Equal(t, 2013, from)
	assert.Equal(t, 2023, to)
}
