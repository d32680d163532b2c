package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	syncdomain "pxocore/internal/domain/sync"
)

func (s *Store) AppendChange(_ context.Context, userID string, change *syncdomain.SyncChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	if slices.ContainsFunc(u.changes, func(c syncdomain.SyncChange) bool { return c.ID == change.ID }) {
		return fmt.Errorf("%w: change %s", ErrDuplicate, change.ID)
	}
	u.changes = append(u.changes, *change)
	return nil
}

func (s *Store) HasChange(_ context.Context, userID, changeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.ContainsFunc(s.user(userID).changes, func(c syncdomain.SyncChange) bool {
		return c.ID == changeID
	}), nil
}

// GetChangesAfter изменения строго позже after в порядке времени
func (s *Store) GetChangesAfter(_ context.Context, userID string, after time.Time) ([]syncdomain.SyncChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []syncdomain.SyncChange
	for _, c := range s.user(userID).changes {
		if c.Timestamp.After(after) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b syncdomain.SyncChange) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *Store) LatestChanges(_ context.Context, userID string) ([]syncdomain.SyncChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		typ syncdomain.ResourceType
		id  string
	}

	changes := s.user(userID).changes
	seen := make(map[key]struct{})
	var out []syncdomain.SyncChange
	for i := len(changes) - 1; i >= 0; i-- {
		k := key{typ: changes[i].ResourceType, id: changes[i].ResourceID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, changes[i])
	}
	return out, nil
}

func (s *Store) CountDeviceChanges(_ context.Context, userID, deviceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.user(userID).changes {
		if c.DeviceID == deviceID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SaveConflict(_ context.Context, userID string, conflict *syncdomain.SyncConflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	u.conflicts = append(u.conflicts, *conflict)
	return nil
}

func (s *Store) GetConflict(_ context.Context, userID, conflictID string) (*syncdomain.SyncConflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.user(userID).conflicts {
		if c.ID == conflictID {
			return &c, nil
		}
	}
	return nil, syncdomain.ErrConflictNotFound
}

// ListConflicts новые первыми
func (s *Store) ListConflicts(_ context.Context, userID string) ([]syncdomain.SyncConflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.user(userID).conflicts)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b syncdomain.SyncConflict) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteConflict(_ context.Context, userID, conflictID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	i := slices.IndexFunc(u.conflicts, func(c syncdomain.SyncConflict) bool {
		return c.ID == conflictID
	})
	if i < 0 {
		return syncdomain.ErrConflictNotFound
	}
	u.conflicts = slices.Delete(u.conflicts, i, i+1)
	return nil
}

func (s *Store) CountConflicts(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.user(userID).conflicts), nil
}

func (s *Store) RecordSync(_ context.Context, entry *syncdomain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(entry.UserID)
	u.history = append(u.history, *entry)
	return nil
}

func (s *Store) LastSync(_ context.Context, userID, deviceID string) (*syncdomain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		last  syncdomain.HistoryEntry
		found bool
	)
	for _, h := range s.user(userID).history {
		if h.DeviceID != deviceID {
			continue
		}
		if !found || !h.Timestamp.Before(last.Timestamp) {
			last, found = h, true
		}
	}
	if !found {
		return nil, nil
	}
	return &last, nil
}

// GetHistory записи устройства, новые первыми, и их общее количество
func (s *Store) GetHistory(_ context.Context, userID, deviceID string, limit, offset int) ([]syncdomain.HistoryEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []syncdomain.HistoryEntry
	for _, h := range s.user(userID).history {
		if h.DeviceID == deviceID {
			all = append(all, h)
		}
	}
	slices.Reverse(all)
	slices.SortStableFunc(all, func(a, b syncdomain.HistoryEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	total := len(all)
	if offset >= total {
		return []syncdomain.HistoryEntry{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}
