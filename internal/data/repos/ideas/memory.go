package ideas

import (
	"sync"
	"time"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

type memoryStore struct {
	log *logger.Logger
	now func() time.Time

	mu    sync.RWMutex
	order []string
	byID  map[string]*types.Idea
}

// NewMemoryStore keeps the collection in process memory. Concurrent writers
// to the same id are last-write-wins.
func NewMemoryStore(baseLog *logger.Logger) IdeaStore {
	return &memoryStore{
		log:  baseLog.With("repo", "MemoryIdeaStore"),
		now:  time.Now,
		byID: map[string]*types.Idea{},
	}
}

func (s *memoryStore) List(dbc dbctx.Context) ([]*types.Idea, error) {
	return s.list(false), nil
}

func (s *memoryStore) ListAll(dbc dbctx.Context) ([]*types.Idea, error) {
	return s.list(true), nil
}

func (s *memoryStore) list(includeHidden bool) []*types.Idea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Idea, 0, len(s.order))
	for _, id := range s.order {
		row := s.byID[id]
		if row == nil || (!includeHidden && !row.Visible) {
			continue
		}
		out = append(out, row.Clone())
	}
	return out
}

func (s *memoryStore) Get(dbc dbctx.Context, id string) (*types.Idea, error) {
	if id == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id].Clone(), nil
}

func (s *memoryStore) Create(dbc dbctx.Context, fields *types.Idea) (*types.Idea, error) {
	if fields == nil {
		return nil, types.ErrInvalidIdea
	}
	row := fields.Clone()
	types.Normalize(row)

	s.mu.Lock()
	defer s.mu.Unlock()
	if row.ID != "" {
		if _, exists := s.byID[row.ID]; exists {
			return nil, types.ErrIDConflict
		}
	}
	prepareNew(row, advance(s.now(), time.Time{}))
	row.Position = s.frontPosition()
	s.byID[row.ID] = row
	s.order = append([]string{row.ID}, s.order...)
	return row.Clone(), nil
}

func (s *memoryStore) Update(dbc dbctx.Context, id string, patch types.IdeaPatch) (*types.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.byID[id]
	if row == nil {
		return nil, nil
	}
	next := row.Clone()
	patch.Apply(next)
	types.Normalize(next)
	next.ID = row.ID
	next.UpdatedAt = advance(s.now(), row.UpdatedAt)
	s.byID[id] = next
	return next.Clone(), nil
}

func (s *memoryStore) UpsertBulk(dbc dbctx.Context, rows []*types.Idea) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := map[string]bool{}
	for idx, in := range rows {
		if in == nil {
			continue
		}
		if in.ID != "" && (s.byID[in.ID] != nil || inserted[in.ID]) {
			continue
		}
		if err := validateNew(idx, in); err != nil {
			return 0, err
		}
		if in.ID != "" {
			inserted[in.ID] = true
		}
	}
	n := 0
	for _, in := range rows {
		if in == nil {
			continue
		}
		n++
		if existing := s.byID[in.ID]; in.ID != "" && existing != nil {
			next := existing.Clone()
			types.Merge(next, in)
			types.Normalize(next)
			next.UpdatedAt = advance(s.now(), existing.UpdatedAt)
			s.byID[next.ID] = next
			continue
		}
		row := in.Clone()
		types.Normalize(row)
		prepareNew(row, advance(s.now(), time.Time{}))
		row.Position = s.backPosition()
		s.byID[row.ID] = row
		s.order = append(s.order, row.ID)
	}
	s.log.Debug("UpsertBulk applied", "processed", n, "size", len(s.order))
	return n, nil
}

func (s *memoryStore) AdjustVotes(dbc dbctx.Context, id string, up, down int) (*types.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.byID[id]
	if row == nil {
		return nil, nil
	}
	next := row.Clone()
	next.VotesUp += up
	next.VotesDown += down
	next.UpdatedAt = advance(s.now(), row.UpdatedAt)
	s.byID[id] = next
	return next.Clone(), nil
}

func (s *memoryStore) Count(dbc dbctx.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.order)), nil
}

// frontPosition and backPosition expect s.mu to be held.
func (s *memoryStore) frontPosition() int64 {
	if len(s.order) == 0 {
		return 0
	}
	return s.byID[s.order[0]].Position - 1
}

func (s *memoryStore) backPosition() int64 {
	if len(s.order) == 0 {
		return 0
	}
	return s.byID[s.order[len(s.order)-1]].Position + 1
}
