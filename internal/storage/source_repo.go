package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperlink/internal/models"
)

type SourceRepo struct {
	db *DB
}

func NewSourceRepo(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const sourceColumns = `
SELECT id, COALESCE(pub_year,''), COALESCE(vol,''), COALESCE(num,''), COALESCE(suppl,''),
       COALESCE(page,''), COALESCE(surname,''), COALESCE(organization_author,''),
       COALESCE(doi,''), COALESCE(journal,''), COALESCE(paper_title,''), COALESCE(source,''),
       COALESCE(issn,''), COALESCE(thesis_date,''), COALESCE(thesis_loc,''),
       COALESCE(thesis_country,''), COALESCE(thesis_degree,''), COALESCE(thesis_org,''),
       COALESCE(conf_date,''), COALESCE(conf_loc,''), COALESCE(conf_country,''),
       COALESCE(conf_name,''), COALESCE(conf_org,''), COALESCE(publisher_loc,''),
       COALESCE(publisher_country,''), COALESCE(publisher_name,''), COALESCE(edition,''),
       COALESCE(source_person_author_surname,''), COALESCE(source_organization_author,''),
       referenced_by, reflinks, created_at, updated_at
FROM sources `

// SearchByDOI looks up sources by exact DOI, most recently updated first, so
// ties resolve to the liveliest record.
func (r *SourceRepo) SearchByDOI(ctx context.Context, doi string) ([]models.Source, error) {
	if doi == "" {
		return nil, fmt.Errorf("doi search requires doi")
	}
	return r.query(ctx, sourceColumns+`WHERE doi=$1 ORDER BY updated_at DESC`, doi)
}

// SearchByFields builds a conjunctive filter over whichever dedup fields are
// non-empty on the reference. Empty input fields are left out entirely: an
// absent filter value never excludes a stored source, which is what lets
// sparse citations match richer records.
func (r *SourceRepo) SearchByFields(ctx context.Context, ref models.Reference) ([]models.Source, error) {
	filters := []struct {
		column string
		value  string
	}{
		{"pub_year", ref.PubYear},
		{"surname", ref.Surname},
		{"organization_author", ref.OrganizationAuthor},
		{"source", ref.Source},
		{"journal", ref.Journal},
		{"vol", ref.Vol},
	}
	where := ""
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if f.value == "" {
			continue
		}
		args = append(args, f.value)
		if where != "" {
			where += " AND "
		}
		where += fmt.Sprintf("%s=$%d", f.column, len(args))
	}
	if where == "" {
		return nil, fmt.Errorf("field search requires at least one of pub_year, surname, organization_author, source, journal, vol")
	}
	return r.query(ctx, sourceColumns+"WHERE "+where+" ORDER BY updated_at DESC LIMIT 100", args...)
}

// Create stores a new source seeded with its first citer.
func (r *SourceRepo) Create(ctx context.Context, s models.Source, link models.Reflink) (string, error) {
	id := uuid.NewString()
	reflinks, err := json.Marshal([]models.Reflink{link})
	if err != nil {
		return "", fmt.Errorf("marshal reflinks: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO sources (id, pub_year, vol, num, suppl, page, surname, organization_author,
                     doi, journal, paper_title, source, issn,
                     thesis_date, thesis_loc, thesis_country, thesis_degree, thesis_org,
                     conf_date, conf_loc, conf_country, conf_name, conf_org,
                     publisher_loc, publisher_country, publisher_name, edition,
                     source_person_author_surname, source_organization_author,
                     referenced_by, reflinks)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''),
        NULLIF($7,''), NULLIF($8,''), NULLIF($9,''), NULLIF($10,''), NULLIF($11,''),
        NULLIF($12,''), NULLIF($13,''), NULLIF($14,''), NULLIF($15,''), NULLIF($16,''),
        NULLIF($17,''), NULLIF($18,''), NULLIF($19,''), NULLIF($20,''), NULLIF($21,''),
        NULLIF($22,''), NULLIF($23,''), NULLIF($24,''), NULLIF($25,''), NULLIF($26,''),
        NULLIF($27,''), NULLIF($28,''), NULLIF($29,''), $30, $31::jsonb)`,
		id, s.PubYear, s.Vol, s.Num, s.Suppl, s.Page, s.Surname, s.OrganizationAuthor,
		s.DOI, s.Journal, s.PaperTitle, s.Source, s.ISSN,
		s.ThesisDate, s.ThesisLoc, s.ThesisCountry, s.ThesisDegree, s.ThesisOrg,
		s.ConfDate, s.ConfLoc, s.ConfCountry, s.ConfName, s.ConfOrg,
		s.PublisherLoc, s.PublisherCountry, s.PublisherName, s.Edition,
		s.SourceAuthorSurname, s.SourceOrgAuthor,
		[]string{link.PaperID}, reflinks)
	if err != nil {
		return "", fmt.Errorf("create source: %w", err)
	}
	return id, nil
}

// AppendCiter registers another citing paper on an existing source. The
// presence check and the append are one statement, so two papers citing the
// same work concurrently cannot lose an update, and re-registration of the
// same citer is a no-op. Returns whether the citer was actually appended.
func (r *SourceRepo) AppendCiter(ctx context.Context, sourceID string, link models.Reflink) (bool, error) {
	payload, err := json.Marshal(link)
	if err != nil {
		return false, fmt.Errorf("marshal reflink: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE sources
SET referenced_by = array_append(referenced_by, $2),
    reflinks      = reflinks || $3::jsonb,
    updated_at    = NOW()
WHERE id=$1 AND NOT ($2 = ANY(referenced_by))`,
		sourceID, link.PaperID, payload)
	if err != nil {
		return false, fmt.Errorf("append citer to source: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByCiter fetches every source whose back-reference set contains the
// paper: the raw material for candidate selection.
func (r *SourceRepo) ListByCiter(ctx context.Context, paperID string) ([]models.Source, error) {
	return r.query(ctx, sourceColumns+`WHERE $1 = ANY(referenced_by)`, paperID)
}

// CountByCiter is the settle-check fallback poll.
func (r *SourceRepo) CountByCiter(ctx context.Context, paperID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sources WHERE $1 = ANY(referenced_by)`, paperID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sources by citer: %w", err)
	}
	return n, nil
}

func (r *SourceRepo) query(ctx context.Context, sql string, args ...any) ([]models.Source, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	out := make([]models.Source, 0)
	for rows.Next() {
		var (
			s                    models.Source
			reflinks             []byte
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&s.ID, &s.PubYear, &s.Vol, &s.Num, &s.Suppl, &s.Page,
			&s.Surname, &s.OrganizationAuthor, &s.DOI, &s.Journal, &s.PaperTitle,
			&s.Source, &s.ISSN, &s.ThesisDate, &s.ThesisLoc, &s.ThesisCountry,
			&s.ThesisDegree, &s.ThesisOrg, &s.ConfDate, &s.ConfLoc, &s.ConfCountry,
			&s.ConfName, &s.ConfOrg, &s.PublisherLoc, &s.PublisherCountry,
			&s.PublisherName, &s.Edition, &s.SourceAuthorSurname, &s.SourceOrgAuthor,
			&s.ReferencedBy, &reflinks, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if len(reflinks) > 0 {
			if err := json.Unmarshal(reflinks, &s.Reflinks); err != nil {
				return nil, fmt.Errorf("decode reflinks: %w", err)
			}
		}
		s.CreatedAt = createdAt
		s.UpdatedAt = updatedAt
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}
