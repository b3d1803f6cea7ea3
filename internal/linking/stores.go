package linking

import (
	"context"

	"paperlink/internal/models"
)

// SourceStore is the slice of source storage the linking pipeline needs.
// *storage.SourceRepo satisfies it; tests use in-memory fakes.
type SourceStore interface {
	SearchByDOI(ctx context.Context, doi string) ([]models.Source, error)
	SearchByFields(ctx context.Context, ref models.Reference) ([]models.Source, error)
	Create(ctx context.Context, s models.Source, link models.Reflink) (string, error)
	AppendCiter(ctx context.Context, sourceID string, link models.Reflink) (bool, error)
	ListByCiter(ctx context.Context, paperID string) ([]models.Source, error)
	CountByCiter(ctx context.Context, paperID string) (int, error)
}

// PaperStore is the slice of paper storage the linking pipeline needs.
type PaperStore interface {
	GetByID(ctx context.Context, id string) (models.Paper, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Paper, error)
	MarkTODO(ctx context.Context, id string) error
	ReplaceConnections(ctx context.Context, id string, conns []models.Connection, done bool) error
	AppendConnection(ctx context.Context, id string, conn models.Connection) error
}
