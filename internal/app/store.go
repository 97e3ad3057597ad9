package app

import (
	"context"

	"github.com/tastevin/tastevin/internal/domain"
)

// SeedState is what the persistence collaborator knows about a session
// when its room is first materialized in memory.
type SeedState struct {
	Session       domain.Session
	Messages      []domain.Message
	Muted         []domain.ModerationRecord
	Kicked        []domain.ModerationRecord
	CustomTags    []string
	LivestreamURL string
}

// ModerationKind names the durable moderation lists.
type ModerationKind string

const (
	ModerationMuted  ModerationKind = "muted"
	ModerationKicked ModerationKind = "kicked"
)

// Store is the persistence collaborator. The room authority seeds from
// it on first join and records every accepted mutation so history,
// moderation state and summarization outlive the in-memory room.
type Store interface {
	Seed(ctx context.Context, id domain.SessionID) (*SeedState, error)
	RecordMessage(ctx context.Context, id domain.SessionID, msg *domain.Message) error
	UpdateMessage(ctx context.Context, id domain.SessionID, msgID domain.MessageID, content string) error
	DeleteMessage(ctx context.Context, id domain.SessionID, msgID domain.MessageID) error
	DeleteUserMessages(ctx context.Context, id domain.SessionID, userID domain.UserID) error
	RecordRating(ctx context.Context, id domain.SessionID, userID domain.UserID, productIndex int, value *float64) error
	RecordGrade(ctx context.Context, id domain.SessionID, userID domain.UserID, productIndex int, grade domain.Grade) error
	RecordModeration(ctx context.Context, id domain.SessionID, kind ModerationKind, rec domain.ModerationRecord) error
	RemoveModeration(ctx context.Context, id domain.SessionID, kind ModerationKind, userID domain.UserID) error
	MarkEnded(ctx context.Context, id domain.SessionID) error
}

// NopStore backs rooms when no database is configured: every session
// starts fresh with its first joiner as host and nothing survives the
// room's in-memory lifetime.
type NopStore struct{}

func (NopStore) Seed(context.Context, domain.SessionID) (*SeedState, error) {
	return nil, domain.ErrNotFound
}
func (NopStore) RecordMessage(context.Context, domain.SessionID, *domain.Message) error {
	return nil
}
func (NopStore) UpdateMessage(context.Context, domain.SessionID, domain.MessageID, string) error {
	return nil
}
func (NopStore) DeleteMessage(context.Context, domain.SessionID, domain.MessageID) error {
	return nil
}
func (NopStore) DeleteUserMessages(context.Context, domain.SessionID, domain.UserID) error {
	return nil
}
func (NopStore) RecordRating(context.Context, domain.SessionID, domain.UserID, int, *float64) error {
	return nil
}
func (NopStore) RecordGrade(context.Context, domain.SessionID, domain.UserID, int, domain.Grade) error {
	return nil
}
func (NopStore) RecordModeration(context.Context, domain.SessionID, ModerationKind, domain.ModerationRecord) error {
	return nil
}
func (NopStore) RemoveModeration(context.Context, domain.SessionID, ModerationKind, domain.UserID) error {
	return nil
}
func (NopStore) MarkEnded(context.Context, domain.SessionID) error { return nil }
