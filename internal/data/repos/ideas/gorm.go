package ideas

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

// NewGormStore persists ideas as one row per id, with JSON columns for the
// nested enrichment documents.
func NewGormStore(db *gorm.DB, baseLog *logger.Logger) IdeaStore {
	return &gormStore{
		db:  db,
		log: baseLog.With("repo", "IdeaStore"),
		now: time.Now,
	}
}

func (r *gormStore) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context())
}

func (r *gormStore) List(dbc dbctx.Context) ([]*types.Idea, error) {
	var out []*types.Idea
	if err := r.tx(dbc).
		Where("visible = ?", true).
		Order("position ASC, created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormStore) ListAll(dbc dbctx.Context) ([]*types.Idea, error) {
	var out []*types.Idea
	if err := r.tx(dbc).
		Order("position ASC, created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormStore) Get(dbc dbctx.Context, id string) (*types.Idea, error) {
	if id == "" {
		return nil, nil
	}
	return r.get(r.tx(dbc), id)
}

func (r *gormStore) get(t *gorm.DB, id string) (*types.Idea, error) {
	var rows []*types.Idea
	if err := t.Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *gormStore) Create(dbc dbctx.Context, fields *types.Idea) (*types.Idea, error) {
	if fields == nil {
		return nil, types.ErrInvalidIdea
	}
	row := fields.Clone()
	types.Normalize(row)
	prepareNew(row, advance(r.now(), time.Time{}))

	err := r.tx(dbc).Transaction(func(txx *gorm.DB) error {
		var front struct{ MinPosition *int64 }
		if err := txx.Model(&types.Idea{}).Select("MIN(position) AS min_position").Scan(&front).Error; err != nil {
			return err
		}
		if front.MinPosition != nil {
			row.Position = *front.MinPosition - 1
		}
		return txx.Create(row).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrIDConflict
		}
		return nil, err
	}
	return row, nil
}

func (r *gormStore) Update(dbc dbctx.Context, id string, patch types.IdeaPatch) (*types.Idea, error) {
	if id == "" {
		return nil, nil
	}
	var out *types.Idea
	err := r.tx(dbc).Transaction(func(txx *gorm.DB) error {
		row, err := r.get(txx, id)
		if err != nil || row == nil {
			return err
		}
		prevUpdated := row.UpdatedAt
		patch.Apply(row)
		types.Normalize(row)
		row.ID = id
		row.UpdatedAt = advance(r.now(), prevUpdated)
		if err := txx.Save(row).Error; err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormStore) UpsertBulk(dbc dbctx.Context, rows []*types.Idea) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	processed := 0
	err := r.tx(dbc).Transaction(func(txx *gorm.DB) error {
		ids := make([]string, 0, len(rows))
		for _, in := range rows {
			if in != nil && in.ID != "" {
				ids = append(ids, in.ID)
			}
		}
		existing := map[string]*types.Idea{}
		if len(ids) > 0 {
			var found []*types.Idea
			if err := txx.Where("id IN ?", ids).Find(&found).Error; err != nil {
				return err
			}
			for _, f := range found {
				existing[f.ID] = f
			}
		}

		var back struct{ MaxPosition *int64 }
		if err := txx.Model(&types.Idea{}).Select("MAX(position) AS max_position").Scan(&back).Error; err != nil {
			return err
		}
		next := int64(0)
		if back.MaxPosition != nil {
			next = *back.MaxPosition + 1
		}

		for idx, in := range rows {
			if in == nil {
				continue
			}
			processed++
			if cur := existing[in.ID]; cur != nil {
				prevUpdated := cur.UpdatedAt
				types.Merge(cur, in)
				types.Normalize(cur)
				cur.UpdatedAt = advance(r.now(), prevUpdated)
				if err := txx.Save(cur).Error; err != nil {
					return err
				}
				continue
			}
			if err := validateNew(idx, in); err != nil {
				return err
			}
			row := in.Clone()
			types.Normalize(row)
			prepareNew(row, advance(r.now(), time.Time{}))
			row.Position = next
			next++
			if err := txx.Create(row).Error; err != nil {
				return err
			}
			// Later rows in the same batch with this id merge onto it.
			existing[row.ID] = row
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrIDConflict
		}
		return 0, err
	}
	r.log.Debug("UpsertBulk applied", "processed", processed)
	return processed, nil
}

func (r *gormStore) AdjustVotes(dbc dbctx.Context, id string, up, down int) (*types.Idea, error) {
	if id == "" {
		return nil, nil
	}
	var out *types.Idea
	err := r.tx(dbc).Transaction(func(txx *gorm.DB) error {
		res := txx.Model(&types.Idea{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"votes_up":   gorm.Expr("votes_up + ?", up),
				"votes_down": gorm.Expr("votes_down + ?", down),
				"updated_at": advance(r.now(), time.Time{}),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		row, err := r.get(txx, id)
		out = row
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormStore) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := r.tx(dbc).Model(&types.Idea{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
