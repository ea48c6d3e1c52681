package dal

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

var (
	// ErrDraftNotFound is returned when no draft has the requested id
	ErrDraftNotFound = errors.New("draft not found")
	// ErrDraftExists is returned when creating a draft whose id is taken
	ErrDraftExists = errors.New("draft already exists")
)

// DraftDAL defines the interface for the draft data access layer
type DraftDAL interface {
	CreateDraft(ctx context.Context, state *models.DraftState) error
	GetDraft(ctx context.Context, id string) (*models.DraftState, error)
	ListDrafts(ctx context.Context) ([]models.DraftSummary, error)
	RecordPick(ctx context.Context, draftID string, entry models.DraftLogEntry) error
	BlockPlayer(ctx context.Context, draftID, name string) error
	DeleteDraft(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}
