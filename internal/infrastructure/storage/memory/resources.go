package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"pxocore/internal/domain/resource"
)

func (s *Store) ListContents(_ context.Context, userID string) ([]resource.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := slices.Collect(maps.Values(s.user(userID).contents))
	slices.SortFunc(contents, func(a, b resource.Content) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
	})
	return contents, nil
}

func (s *Store) GetContent(_ context.Context, userID, contentID string) (*resource.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user(userID).contents[contentID]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &c, nil
}

func (s *Store) SaveContent(_ context.Context, content *resource.Content, expectedBelow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(content.UserID)
	cur, exists := u.contents[content.ID]

	version, err := nextVersion(cur.Version, exists, expectedBelow)
	if err != nil {
		return err
	}
	content.Version = version
	if exists && !cur.CreatedAt.IsZero() {
		content.CreatedAt = cur.CreatedAt
	}

	c := *content
	c.Tags = slices.Clone(content.Tags)
	u.contents[c.ID] = c
	return nil
}

func (s *Store) DeleteContent(_ context.Context, userID, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	if _, ok := u.contents[contentID]; !ok {
		return resource.ErrNotFound
	}
	delete(u.contents, contentID)
	return nil
}

func (s *Store) ListAnnotations(_ context.Context, userID string) ([]resource.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	annotations := slices.Collect(maps.Values(s.user(userID).annotations))
	slices.SortFunc(annotations, func(a, b resource.Annotation) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
	})
	return annotations, nil
}

func (s *Store) GetAnnotation(_ context.Context, userID, annotationID string) (*resource.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.user(userID).annotations[annotationID]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &a, nil
}

func (s *Store) SaveAnnotation(_ context.Context, annotation *resource.Annotation, expectedBelow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(annotation.UserID)
	cur, exists := u.annotations[annotation.ID]

	version, err := nextVersion(cur.Version, exists, expectedBelow)
	if err != nil {
		return err
	}
	annotation.Version = version
	if exists && !cur.CreatedAt.IsZero() {
		annotation.CreatedAt = cur.CreatedAt
	}

	a := *annotation
	a.Tags = slices.Clone(annotation.Tags)
	u.annotations[a.ID] = a
	return nil
}

func (s *Store) DeleteAnnotation(_ context.Context, userID, annotationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(userID)
	if _, ok := u.annotations[annotationID]; !ok {
		return resource.ErrNotFound
	}
	delete(u.annotations, annotationID)
	return nil
}

func (s *Store) GetPreferences(_ context.Context, userID string) (resource.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.user(userID).preferences), nil
}

func (s *Store) ReplacePreferences(_ context.Context, userID string, prefs resource.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prefs == nil {
		prefs = resource.Preferences{}
	}
	s.user(userID).preferences = maps.Clone(prefs)
	return nil
}

func (s *Store) GetMemory(_ context.Context, userID string) (*resource.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.user(userID).memory
	if m == nil {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (s *Store) ReplaceMemory(_ context.Context, memory *resource.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *memory
	s.user(memory.UserID).memory = &m
	return nil
}

func (s *Store) ListConversations(_ context.Context, userID string) ([]resource.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := slices.Collect(maps.Values(s.user(userID).conversations))
	slices.SortFunc(conversations, func(a, b resource.Conversation) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
	})
	return conversations, nil
}

func (s *Store) SaveConversation(_ context.Context, conversation *resource.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *conversation
	c.Messages = slices.Clone(conversation.Messages)
	s.user(conversation.UserID).conversations[c.ID] = c
	return nil
}

// nextVersion версия после записи с учетом compare-and-swap
func nextVersion(current int, exists bool, expectedBelow int) (int, error) {
	if expectedBelow <= 0 {
		return current + 1, nil
	}
	if exists && current >= expectedBelow {
		return 0, resource.ErrVersionConflict
	}
	return expectedBelow, nil
}
