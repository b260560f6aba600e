// Package archive persists conversation transcripts to a local SQLite
// database so a technician can review past jobs offline.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fieldvoice/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.ArchiveStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id            TEXT PRIMARY KEY,
		work_order_id TEXT,
		model         TEXT,
		title         TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_wo ON conversations(work_order_id);

	CREATE TABLE IF NOT EXISTS turns (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role            TEXT NOT NULL,
		content         TEXT,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conv ON turns(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, conv domain.ConversationRecord) error {
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, work_order_id, model, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.WorkOrderID, conv.Model, conv.Title, conv.CreatedAt, conv.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.ConversationRecord, error) {
	var conv domain.ConversationRecord
	var workOrderID, model, title sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, work_order_id, model, title, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &workOrderID, &model, &title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	conv.WorkOrderID = workOrderID.String
	conv.Model = model.String
	conv.Title = title.String
	return &conv, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]domain.ConversationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, work_order_id, model, title, created_at, updated_at
		 FROM conversations ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.ConversationRecord
	for rows.Next() {
		var c domain.ConversationRecord
		var workOrderID, model, title sql.NullString
		if err := rows.Scan(&c.ID, &workOrderID, &model, &title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.WorkOrderID = workOrderID.String
		c.Model = model.String
		c.Title = title.String
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) AddTurn(ctx context.Context, convID string, turn domain.Turn) error {
	now := time.Now()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		convID, string(turn.Role), turn.Content, turn.Timestamp,
	)
	if err != nil {
		return err
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, convID,
	)
	return nil
}

func (s *SQLiteStore) GetTurns(ctx context.Context, convID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = 100
	}

	// Last N turns, returned oldest first
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at
		 FROM turns WHERE conversation_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, convID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var role string
		if err := rows.Scan(&role, &t.Content, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Role = domain.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Prune deletes conversations not updated since olderThan, along with
// their turns, and reports how many conversations were removed.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM turns WHERE conversation_id IN
		 (SELECT id FROM conversations WHERE updated_at < ?)`, olderThan,
	); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE updated_at < ?`, olderThan,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned archived conversations", "count", n)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
