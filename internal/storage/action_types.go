package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// actionTypeCache memoizes action type rows. The table is read-mostly
// reference data consulted on every dispatch, so one read per pair is enough.
type actionTypeCache struct {
	mu    sync.RWMutex
	types map[string]*domain.ActionType
}

var atCacheKey = func(marketplace, code string) string { return marketplace + "/" + code }

// GetActionType returns the reference metadata for a (marketplace, code)
// pair, serving repeat lookups from the in-memory cache.
func (s *Storage) GetActionType(ctx context.Context, marketplace, code string) (*domain.ActionType, error) {
	key := atCacheKey(marketplace, code)

	s.atCache.mu.RLock()
	cached, ok := s.atCache.types[key]
	s.atCache.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var at domain.ActionType
	err := s.db.GetContext(ctx, &at, `
		SELECT marketplace, code, display_name, default_priority,
		       default_max_retries, rate_limit_per_min
		FROM action_types
		WHERE marketplace = $1 AND code = $2
	`, marketplace, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrActionTypeNotFound, marketplace, code)
		}
		return nil, fmt.Errorf("failed to get action type: %w", err)
	}

	s.atCache.mu.Lock()
	if s.atCache.types == nil {
		s.atCache.types = make(map[string]*domain.ActionType)
	}
	s.atCache.types[key] = &at
	s.atCache.mu.Unlock()

	return &at, nil
}
