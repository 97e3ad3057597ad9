package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/app"
	"github.com/tastevin/tastevin/internal/domain"
)

// PostgresStore implements app.Store against the relational
// collaborator. The room authority is the only caller; rooms seed
// from here on first join and write back every accepted mutation.
type PostgresStore struct {
	pool          *pgxpool.Pool
	historyWindow int
}

func NewPostgresStore(ctx context.Context, connString string, historyWindow int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pgx ping: %w", err)
	}
	return &PostgresStore{pool: pool, historyWindow: historyWindow}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Seed(ctx context.Context, id domain.SessionID) (*app.SeedState, error) {
	seed := &app.SeedState{Session: domain.Session{ID: id}}

	row := s.pool.QueryRow(ctx,
		`SELECT host_id, product_count, ended, COALESCE(livestream_url, ''), custom_tags
		 FROM sessions WHERE id = $1`, string(id))
	err := row.Scan(&seed.Session.HostID, &seed.Session.ProductCount, &seed.Session.Ended,
		&seed.LivestreamURL, &seed.CustomTags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("seed session %s: %w", id, err)
	}

	if seed.Messages, err = s.recentMessages(ctx, id); err != nil {
		return nil, err
	}
	if seed.Muted, seed.Kicked, err = s.moderation(ctx, id); err != nil {
		return nil, err
	}

	log.Info().Str("module", "adapters.store").Str("session", string(id)).
		Int("messages", len(seed.Messages)).Msg("seeded room state")
	return seed, nil
}

func (s *PostgresStore) recentMessages(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, author_id, content, COALESCE(phase, ''), product_index, tags, created_at
		 FROM messages
		 WHERE session_id = $1 AND NOT deleted
		 ORDER BY created_at DESC
		 LIMIT $2`, string(id), s.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("seed messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []domain.Message
	for rows.Next() {
		var m domain.Message
		var authorID *string
		if err := rows.Scan(&m.ID, &authorID, &m.Content, &m.Phase, &m.ProductIndex, &m.Tags, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if authorID == nil {
			m.Author = domain.SystemAuthor()
		} else {
			m.Author = domain.UserAuthor(domain.UserID(*authorID))
		}
		m.Spoilers = domain.ScanSpoilers(m.Content)
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("seed messages: %w", err)
	}

	// Oldest first for replay.
	out := make([]domain.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(out)-1-i] = m
	}
	return out, nil
}

func (s *PostgresStore) moderation(ctx context.Context, id domain.SessionID) (muted, kicked []domain.ModerationRecord, err error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, display_name, kind FROM session_moderation WHERE session_id = $1`, string(id))
	if err != nil {
		return nil, nil, fmt.Errorf("seed moderation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.ModerationRecord
		var kind string
		if err := rows.Scan(&rec.UserID, &rec.DisplayName, &kind); err != nil {
			return nil, nil, fmt.Errorf("scan moderation: %w", err)
		}
		switch kind {
		case "muted":
			muted = append(muted, rec)
		case "kicked":
			kicked = append(kicked, rec)
		}
	}
	return muted, kicked, rows.Err()
}

func (s *PostgresStore) RecordMessage(ctx context.Context, id domain.SessionID, msg *domain.Message) error {
	var authorID *string
	if !msg.Author.System {
		v := string(msg.Author.UserID)
		authorID = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, session_id, author_id, content, phase, product_index, tags, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		string(msg.ID), string(id), authorID, msg.Content, msg.Phase, msg.ProductIndex, msg.Tags, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMessage(ctx context.Context, id domain.SessionID, msgID domain.MessageID, content string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET content = $1 WHERE id = $2 AND session_id = $3`,
		content, string(msgID), string(id))
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id domain.SessionID, msgID domain.MessageID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET deleted = TRUE WHERE id = $1 AND session_id = $2`,
		string(msgID), string(id))
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUserMessages(ctx context.Context, id domain.SessionID, userID domain.UserID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET deleted = TRUE WHERE session_id = $1 AND author_id = $2`,
		string(id), string(userID))
	if err != nil {
		return fmt.Errorf("erase user messages: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordRating(ctx context.Context, id domain.SessionID, userID domain.UserID, productIndex int, value *float64) error {
	var err error
	if value == nil {
		_, err = s.pool.Exec(ctx,
			`DELETE FROM ratings WHERE session_id = $1 AND user_id = $2 AND product_index = $3`,
			string(id), string(userID), productIndex)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO ratings (session_id, user_id, product_index, rating)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (session_id, user_id, product_index) DO UPDATE SET rating = EXCLUDED.rating`,
			string(id), string(userID), productIndex, *value)
	}
	if err != nil {
		return fmt.Errorf("record rating: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordGrade(ctx context.Context, id domain.SessionID, userID domain.UserID, productIndex int, grade domain.Grade) error {
	var err error
	if grade == "" {
		_, err = s.pool.Exec(ctx,
			`DELETE FROM value_grades WHERE session_id = $1 AND user_id = $2 AND product_index = $3`,
			string(id), string(userID), productIndex)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO value_grades (session_id, user_id, product_index, grade)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (session_id, user_id, product_index) DO UPDATE SET grade = EXCLUDED.grade`,
			string(id), string(userID), productIndex, string(grade))
	}
	if err != nil {
		return fmt.Errorf("record grade: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordModeration(ctx context.Context, id domain.SessionID, kind app.ModerationKind, rec domain.ModerationRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_moderation (session_id, user_id, display_name, kind)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, user_id, kind) DO UPDATE SET display_name = EXCLUDED.display_name`,
		string(id), string(rec.UserID), rec.DisplayName, string(kind))
	if err != nil {
		return fmt.Errorf("record moderation: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveModeration(ctx context.Context, id domain.SessionID, kind app.ModerationKind, userID domain.UserID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM session_moderation WHERE session_id = $1 AND user_id = $2 AND kind = $3`,
		string(id), string(userID), string(kind))
	if err != nil {
		return fmt.Errorf("remove moderation: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkEnded(ctx context.Context, id domain.SessionID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET ended = TRUE WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("mark ended: %w", err)
	}
	return nil
}
