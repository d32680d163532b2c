package memory

import (
	"context"
	"slices"

	"pxocore/internal/domain/backup"
)

func (s *Store) SaveBackup(_ context.Context, info *backup.Info, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(info.UserID)
	u.backups = append(u.backups, backupRecord{info: *info, blob: slices.Clone(blob)})
	return nil
}

func (s *Store) GetBackup(_ context.Context, userID, backupID string) (*backup.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.user(userID).backups {
		if b.info.ID == backupID {
			info := b.info
			return &info, nil
		}
	}
	return nil, backup.ErrNotFound
}

func (s *Store) GetBackupData(_ context.Context, userID, backupID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.user(userID).backups {
		if b.info.ID == backupID {
			return slices.Clone(b.blob), nil
		}
	}
	return nil, backup.ErrNotFound
}

func (s *Store) ListBackups(_ context.Context, userID string) ([]backup.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backups := s.user(userID).backups
	out := make([]backup.Info, 0, len(backups))
	for i := len(backups) - 1; i >= 0; i-- {
		out = append(out, backups[i].info)
	}
	slices.SortStableFunc(out, func(a, b backup.Info) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}
