// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/kefu-tui/internal/content"
	"github.com/jeranaias/kefu-tui/internal/model"
)

var (
	// ErrNotFound is returned for an unknown conversation.
	ErrNotFound = errors.New("conversation not found")

	// ErrAmbiguous is returned by Resolve when a prefix matches several
	// conversations.
	ErrAmbiguous = errors.New("conversation id prefix is ambiguous")
)

// Summary describes an archived conversation.
type Summary struct {
	ID           string
	Owner        string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Store is the SQLite archive. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the archive at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, log: logger.Named("history")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITES
// =============================================================================

// Record upserts the conversation row and stores msg at position seq.
// Recording the same message twice is a no-op.
func (s *Store) Record(ctx context.Context, meta model.ConversationMeta, owner string, seq int, msg model.Message) error {
	var blocks []byte
	if len(msg.Blocks) > 0 {
		var err error
		if blocks, err = content.MarshalBlocks(msg.Blocks); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, owner, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		meta.ID, owner, meta.Title, meta.CreatedAt.UnixNano(), msg.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages
		    (id, conversation_id, seq, role, content, blocks, intent, related_order, related_documents, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, meta.ID, seq, string(msg.Role), msg.Content, nullable(blocks), msg.Intent,
		nullable(msg.RelatedOrder), nullable(msg.RelatedDocuments), msg.Failed, msg.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return tx.Commit()
}

func nullable(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Prune deletes conversations not updated since before. Their messages go
// with them.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE updated_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// READS
// =============================================================================

// List returns the newest conversations first. An empty owner lists all;
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, owner string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.owner, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE ? = '' OR c.owner = ?
		GROUP BY c.id
		ORDER BY c.updated_at DESC, c.id
		LIMIT ?`, owner, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created, updated int64
		if err := rows.Scan(&sum.ID, &sum.Owner, &sum.Title, &created, &updated, &sum.MessageCount); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.Unix(0, created)
		sum.UpdatedAt = time.Unix(0, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the summary of one conversation.
func (s *Store) Get(ctx context.Context, id string) (Summary, error) {
	var sum Summary
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.owner, c.title, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c WHERE c.id = ?`, id).
		Scan(&sum.ID, &sum.Owner, &sum.Title, &created, &updated, &sum.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read conversation: %w", err)
	}
	sum.CreatedAt = time.Unix(0, created)
	sum.UpdatedAt = time.Unix(0, updated)
	return sum, nil
}

// Resolve expands a conversation id prefix to the full id.
func (s *Store) Resolve(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM conversations WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("failed to resolve conversation: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

// Messages returns the transcript of one conversation in order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	if _, err := s.Get(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, blocks, intent, related_order, related_documents, failed, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var (
			m                   model.Message
			role                string
			blocks, order, docs sql.NullString
			created             int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &blocks, &m.Intent, &order, &docs, &m.Failed, &created); err != nil {
			return nil, err
		}
		m.Role = model.Role(role)
		m.Timestamp = time.Unix(0, created)
		if order.Valid {
			m.RelatedOrder = []byte(order.String)
		}
		if docs.Valid {
			m.RelatedDocuments = []byte(docs.String)
		}
		if blocks.Valid && blocks.String != "" && blocks.String != "null" {
			if m.Blocks, err = content.UnmarshalBlocks([]byte(blocks.String)); err != nil {
				return nil, fmt.Errorf("message %s: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// LIVE ARCHIVING
// =============================================================================

// Attach records every message appended to conv from now on, plus the
// messages already in it. The returned function stops recording. Write
// failures are logged; they never affect the conversation.
func (s *Store) Attach(conv *model.Conversation, owner string) (detach func()) {
	log := s.log.With(zap.String("conversation", conv.ID()))
	record := func(seq int, msg model.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Record(ctx, conv.Meta(), owner, seq, msg); err != nil {
			log.Error("failed to archive message", zap.String("message", msg.ID), zap.Error(err))
		}
	}

	detach = conv.Subscribe(func(e model.Event) {
		if e.Kind == model.EventAppended {
			record(e.Index, e.Message)
		}
	})
	for i, msg := range conv.Transcript() {
		record(i, msg)
	}
	return detach
}
