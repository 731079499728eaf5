package ideas

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
)

// IdeaStore owns every Idea record. Get, Update and AdjustVotes return
// (nil, nil) for an unknown id. Returned records are copies; mutating them
// does not change the store.
type IdeaStore interface {
	// List returns visible ideas in collection order (most recent create first).
	List(dbc dbctx.Context) ([]*types.Idea, error)
	// ListAll is List including hidden ideas.
	ListAll(dbc dbctx.Context) ([]*types.Idea, error)
	Get(dbc dbctx.Context, id string) (*types.Idea, error)
	// Create inserts at the front of the collection. A blank ID is generated;
	// a supplied ID that already exists fails with ErrIDConflict.
	Create(dbc dbctx.Context, fields *types.Idea) (*types.Idea, error)
	Update(dbc dbctx.Context, id string, patch types.IdeaPatch) (*types.Idea, error)
	// UpsertBulk merges rows whose ID exists and appends the rest. It returns
	// the number of rows processed. A row that would be inserted without a
	// title fails the whole batch with ErrInvalidIdea and nothing is written.
	UpsertBulk(dbc dbctx.Context, rows []*types.Idea) (int, error)
	AdjustVotes(dbc dbctx.Context, id string, up, down int) (*types.Idea, error)
	Count(dbc dbctx.Context) (int64, error)
}

func newID() string { return uuid.New().String() }

// advance returns now, or a microsecond past prev when the clock has not
// moved beyond it. Postgres keeps microsecond precision.
func advance(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

// validateNew checks a row about to be inserted, after normalisation.
func validateNew(idx int, in *types.Idea) error {
	row := in.Clone()
	types.Normalize(row)
	if err := types.Validate(row); err != nil {
		return fmt.Errorf("row %d: %w", idx, err)
	}
	return nil
}

func prepareNew(row *types.Idea, now time.Time) {
	if row.ID == "" {
		row.ID = newID()
	}
	row.Visible = true
	row.CreatedAt = now
	row.UpdatedAt = now
}
