package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"paperlink/internal/models"
)

type PaperRepo struct {
	db *DB
}

func NewPaperRepo(db *DB) *PaperRepo {
	return &PaperRepo{db: db}
}

// Upsert performs a full replace-and-recompute registration keyed by pid.
// Derived fields, references, connections and the fan-out counters are all
// replaced; only the internal record id and created_at survive.
func (r *PaperRepo) Upsert(ctx context.Context, p models.Paper) (string, error) {
	titles, err := json.Marshal(p.Titles)
	if err != nil {
		return "", fmt.Errorf("marshal titles: %w", err)
	}
	abstracts, err := json.Marshal(p.Abstracts)
	if err != nil {
		return "", fmt.Errorf("marshal abstracts: %w", err)
	}
	keywords, err := json.Marshal(p.Keywords)
	if err != nil {
		return "", fmt.Errorf("marshal keywords: %w", err)
	}
	refs, err := json.Marshal(p.References)
	if err != nil {
		return "", fmt.Errorf("marshal references: %w", err)
	}
	subjectAreas := p.SubjectAreas
	if subjectAreas == nil {
		subjectAreas = []string{}
	}

	var id string
	err = r.db.Pool.QueryRow(ctx, `
INSERT INTO papers (id, pid, collection, main_lang, doi, pub_year, subject_areas,
                    titles, abstracts, keywords, refs, search_text,
                    recommendable, proc_status)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, $7,
        $8::jsonb, $9::jsonb, $10::jsonb, $11::jsonb, $12, $13, $14)
ON CONFLICT (pid)
DO UPDATE SET
  collection       = EXCLUDED.collection,
  main_lang        = EXCLUDED.main_lang,
  doi              = EXCLUDED.doi,
  pub_year         = EXCLUDED.pub_year,
  subject_areas    = EXCLUDED.subject_areas,
  titles           = EXCLUDED.titles,
  abstracts        = EXCLUDED.abstracts,
  keywords         = EXCLUDED.keywords,
  refs             = EXCLUDED.refs,
  search_text      = EXCLUDED.search_text,
  recommendable    = EXCLUDED.recommendable,
  proc_status      = EXCLUDED.proc_status,
  connections      = '[]'::jsonb,
  expected_sources = 0,
  resolved_sources = 0,
  updated_at       = NOW()
RETURNING id`,
		p.ID, p.Pid, p.Collection, p.MainLang, p.DOI, nullYear(p.PubYear),
		subjectAreas, titles, abstracts, keywords, refs,
		p.ComparisonText(), p.Recommendable, string(p.ProcStatus),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert paper %s: %w", p.Pid, err)
	}
	return id, nil
}

func (r *PaperRepo) GetByPid(ctx context.Context, pid string) (models.Paper, error) {
	return r.getOne(ctx, `WHERE pid=$1`, pid)
}

func (r *PaperRepo) GetByID(ctx context.Context, id string) (models.Paper, error) {
	return r.getOne(ctx, `WHERE id=$1`, id)
}

const paperColumns = `
SELECT id, pid, COALESCE(collection,''), COALESCE(main_lang,''), COALESCE(doi,''),
       COALESCE(pub_year,0), subject_areas, titles, abstracts, keywords, refs,
       connections, recommendable, proc_status, expected_sources, resolved_sources,
       created_at, updated_at
FROM papers `

func (r *PaperRepo) getOne(ctx context.Context, where string, arg any) (models.Paper, error) {
	row := r.db.Pool.QueryRow(ctx, paperColumns+where, arg)
	p, err := scanPaper(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Paper{}, ErrPaperNotFound
	}
	if err != nil {
		return models.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	return p, nil
}

func (r *PaperRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Paper, error) {
	if len(ids) == 0 {
		return []models.Paper{}, nil
	}
	rows, err := r.db.Pool.Query(ctx, paperColumns+`WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list papers by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Paper, len(ids))
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	// Preserve input order; absent ids are skipped, not errors.
	out := make([]models.Paper, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// MarkTODO promotes a paper to TODO only from SOURCE_REGISTERED, keeping the
// lifecycle monotonic under concurrent resolution jobs.
func (r *PaperRepo) MarkTODO(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE papers SET proc_status=$2, updated_at=NOW()
WHERE id=$1 AND proc_status=$3`,
		id, string(models.StatusTODO), string(models.StatusSourceRegistered))
	if err != nil {
		return fmt.Errorf("mark paper todo: %w", err)
	}
	return nil
}

// SetExpectedSources records the fan-out size for the settle check.
func (r *PaperRepo) SetExpectedSources(ctx context.Context, id string, n int) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE papers SET expected_sources=$2, resolved_sources=0, updated_at=NOW() WHERE id=$1`, id, n)
	if err != nil {
		return fmt.Errorf("set expected sources: %w", err)
	}
	return nil
}

// IncrementResolvedSources is the per-job completion tick; a single atomic
// update, so interleavings of the fan-out jobs cannot lose counts.
func (r *PaperRepo) IncrementResolvedSources(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE papers SET resolved_sources = resolved_sources + 1, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("increment resolved sources: %w", err)
	}
	return nil
}

// ReplaceConnections clears and rebuilds the paper's connection list and,
// when the ranking gate actually ran, marks the paper DONE. Clearing first
// keeps full pipeline re-runs idempotent.
func (r *PaperRepo) ReplaceConnections(ctx context.Context, id string, conns []models.Connection, done bool) error {
	payload, err := json.Marshal(conns)
	if err != nil {
		return fmt.Errorf("marshal connections: %w", err)
	}
	status := ""
	if done {
		status = string(models.StatusDone)
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE papers
SET connections = $2::jsonb,
    proc_status = CASE WHEN $3 <> '' THEN $3 ELSE proc_status END,
    updated_at  = NOW()
WHERE id=$1`, id, payload, status)
	if err != nil {
		return fmt.Errorf("replace connections: %w", err)
	}
	return nil
}

// AppendConnection adds the reverse edge on a recommended candidate unless
// an equivalent connection to the same paper already exists there.
func (r *PaperRepo) AppendConnection(ctx context.Context, id string, conn models.Connection) error {
	payload, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE papers
SET connections = connections || $2::jsonb, updated_at = NOW()
WHERE id=$1
  AND NOT EXISTS (
    SELECT 1 FROM jsonb_array_elements(connections) c
    WHERE c->>'paper_id' = $3 AND c->>'kind' = $4
  )`, id, payload, conn.PaperID, conn.Kind)
	if err != nil {
		return fmt.Errorf("append connection: %w", err)
	}
	return nil
}

// SearchByText is the keyword-search entry point: full-text over the
// flattened title/abstract/keyword text, relevance ordered, optionally
// narrowed by subject area and year window.
func (r *PaperRepo) SearchByText(ctx context.Context, text string, subjectAreas []string, fromYear, toYear, limit int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("search requires text")
	}
	if limit <= 0 {
		limit = 10
	}
	where := `to_tsvector('simple', search_text) @@ websearch_to_tsquery('simple', $1)`
	args := []any{text}
	if len(subjectAreas) > 0 {
		args = append(args, subjectAreas)
		where += fmt.Sprintf(" AND subject_areas && $%d", len(args))
	}
	if fromYear > 0 {
		args = append(args, fromYear)
		where += fmt.Sprintf(" AND pub_year >= $%d", len(args))
	}
	if toYear > 0 {
		args = append(args, toYear)
		where += fmt.Sprintf(" AND pub_year <= $%d", len(args))
	}
	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT id FROM papers
WHERE %s
ORDER BY ts_rank(to_tsvector('simple', search_text), websearch_to_tsquery('simple', $1)) DESC
LIMIT $%d`, where, len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search papers by text: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (models.Paper, error) {
	var (
		p                                     models.Paper
		pubYear                               int
		titles, abstracts, keywords, refs, cs []byte
		status                                string
		createdAt, updatedAt                  time.Time
	)
	if err := row.Scan(&p.ID, &p.Pid, &p.Collection, &p.MainLang, &p.DOI,
		&pubYear, &p.SubjectAreas, &titles, &abstracts, &keywords, &refs, &cs,
		&p.Recommendable, &status, &p.ExpectedSources, &p.ResolvedSources,
		&createdAt, &updatedAt); err != nil {
		return models.Paper{}, err
	}
	p.PubYear = pubYear
	p.ProcStatus = models.ProcStatus(status)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{titles, &p.Titles},
		{abstracts, &p.Abstracts},
		{keywords, &p.Keywords},
		{refs, &p.References},
		{cs, &p.Connections},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return models.Paper{}, fmt.Errorf("decode paper field: %w", err)
		}
	}
	return p, nil
}

func nullYear(y int) *int {
	if y == 0 {
		return nil
	}
	return &y
}
