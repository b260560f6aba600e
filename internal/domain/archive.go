package domain

import (
	"context"
	"time"
)

// ArchiveStore persists conversation transcripts locally. Writes are
// best-effort from the controller's point of view: an archive failure
// is logged, never surfaced as a conversation error.
type ArchiveStore interface {
	CreateConversation(ctx context.Context, conv ConversationRecord) error
	GetConversation(ctx context.Context, id string) (*ConversationRecord, error)
	ListConversations(ctx context.Context, limit int) ([]ConversationRecord, error)
	DeleteConversation(ctx context.Context, id string) error

	AddTurn(ctx context.Context, convID string, turn Turn) error
	GetTurns(ctx context.Context, convID string, limit int) ([]Turn, error)

	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// ConversationRecord is one archived conversation, keyed by the work
// order it supported.
type ConversationRecord struct {
	ID          string    `json:"id"`
	WorkOrderID string    `json:"work_order_id,omitempty"`
	Model       string    `json:"model,omitempty"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
