package storage

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS papers (
    id               TEXT PRIMARY KEY,
    pid              TEXT NOT NULL UNIQUE,
    collection       TEXT,
    main_lang        TEXT,
    doi              TEXT,
    pub_year         INT,
    subject_areas    TEXT[] NOT NULL DEFAULT '{}',
    titles           JSONB NOT NULL DEFAULT '[]',
    abstracts        JSONB NOT NULL DEFAULT '[]',
    keywords         JSONB NOT NULL DEFAULT '[]',
    refs             JSONB NOT NULL DEFAULT '[]',
    connections      JSONB NOT NULL DEFAULT '[]',
    search_text      TEXT NOT NULL DEFAULT '',
    recommendable    BOOLEAN NOT NULL DEFAULT FALSE,
    proc_status      TEXT NOT NULL DEFAULT 'NA',
    expected_sources INT NOT NULL DEFAULT 0,
    resolved_sources INT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS papers_pub_year_idx ON papers (pub_year);
CREATE INDEX IF NOT EXISTS papers_subject_areas_idx ON papers USING GIN (subject_areas);
CREATE INDEX IF NOT EXISTS papers_search_text_idx ON papers USING GIN (to_tsvector('simple', search_text));

CREATE TABLE IF NOT EXISTS sources (
    id                  TEXT PRIMARY KEY,
    pub_year            TEXT,
    vol                 TEXT,
    num                 TEXT,
    suppl               TEXT,
    page                TEXT,
    surname             TEXT,
    organization_author TEXT,
    doi                 TEXT,
    journal             TEXT,
    paper_title         TEXT,
    source              TEXT,
    issn                TEXT,
    thesis_date         TEXT,
    thesis_loc          TEXT,
    thesis_country      TEXT,
    thesis_degree       TEXT,
    thesis_org          TEXT,
    conf_date           TEXT,
    conf_loc            TEXT,
    conf_country        TEXT,
    conf_name           TEXT,
    conf_org            TEXT,
    publisher_loc       TEXT,
    publisher_country   TEXT,
    publisher_name      TEXT,
    edition             TEXT,
    source_person_author_surname TEXT,
    source_organization_author   TEXT,
    referenced_by       TEXT[] NOT NULL DEFAULT '{}',
    reflinks            JSONB NOT NULL DEFAULT '[]',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS sources_doi_idx ON sources (doi);
CREATE INDEX IF NOT EXISTS sources_pub_year_idx ON sources (pub_year);
CREATE INDEX IF NOT EXISTS sources_surname_idx ON sources (surname);
CREATE INDEX IF NOT EXISTS sources_journal_idx ON sources (journal);
CREATE INDEX IF NOT EXISTS sources_source_idx ON sources (source);
CREATE INDEX IF NOT EXISTS sources_referenced_by_idx ON sources USING GIN (referenced_by);
`

// Migrate applies the schema. Statements are idempotent so every process can
// run it at startup.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
