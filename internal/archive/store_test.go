package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fieldvoice/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "archive.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := domain.ConversationRecord{
		ID:          "conv-1",
		WorkOrderID: "wo-42",
		Model:       "RAS-X40M2",
		Title:       "真空引きの相談",
	}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("conversation not found")
	}
	if got.WorkOrderID != "wo-42" || got.Model != "RAS-X40M2" || got.Title != "真空引きの相談" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not populated")
	}
}

func TestGetConversationMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetConversation(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing conversation, got %+v", got)
	}
}

func TestCreateConversationIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := domain.ConversationRecord{ID: "conv-1", Title: "first"}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatal(err)
	}
	conv.Title = "second"
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("second create should be a no-op, got %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "first" {
		t.Fatalf("existing record overwritten: %+v", got)
	}
}

func TestTurnsChronologicalOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.ConversationRecord{ID: "conv-1"}); err != nil {
		t.Fatal(err)
	}

	base := time.Now().Add(-time.Minute)
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "真空引きの手順を教えて", Timestamp: base},
		{Role: domain.RoleAssistant, Content: "手順は次の通りです", Timestamp: base.Add(2 * time.Second)},
		{Role: domain.RoleUser, Content: "ゲージの読み方は？", Timestamp: base.Add(4 * time.Second)},
	}
	for _, turn := range turns {
		if err := store.AddTurn(ctx, "conv-1", turn); err != nil {
			t.Fatalf("add turn: %v", err)
		}
	}

	got, err := store.GetTurns(ctx, "conv-1", 0)
	if err != nil {
		t.Fatalf("get turns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(got))
	}
	for i, want := range turns {
		if got[i].Role != want.Role || got[i].Content != want.Content {
			t.Fatalf("turn %d: got %+v, want %+v", i, got[i], want)
		}
	}
}

func TestGetTurnsLimitKeepsLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.ConversationRecord{ID: "conv-1"}); err != nil {
		t.Fatal(err)
	}
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		turn := domain.Turn{
			Role:      domain.RoleUser,
			Content:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.AddTurn(ctx, "conv-1", turn); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetTurns(ctx, "conv-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Content != "d" || got[1].Content != "e" {
		t.Fatalf("expected the two latest turns in order, got %q then %q", got[0].Content, got[1].Content)
	}
}

func TestAddTurnBumpsUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	conv := domain.ConversationRecord{ID: "conv-1", CreatedAt: old, UpdatedAt: old}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatal(err)
	}
	if err := store.AddTurn(ctx, "conv-1", domain.Turn{Role: domain.RoleUser, Content: "hi", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.UpdatedAt.After(old) {
		t.Fatalf("updated_at not bumped: %v", got.UpdatedAt)
	}
}

func TestListConversationsRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	times := []time.Time{
		time.Now().Add(-3 * time.Hour),
		time.Now().Add(-1 * time.Hour),
		time.Now().Add(-2 * time.Hour),
	}
	for i, ts := range times {
		conv := domain.ConversationRecord{
			ID:        string(rune('a' + i)),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := store.CreateConversation(ctx, conv); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListConversations(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
		t.Fatalf("wrong order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestDeleteConversationRemovesTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.ConversationRecord{ID: "conv-1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddTurn(ctx, "conv-1", domain.Turn{Role: domain.RoleUser, Content: "hi", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteConversation(ctx, "conv-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := store.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("conversation still present after delete")
	}
	turns, err := store.GetTurns(ctx, "conv-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns after delete, got %d", len(turns))
	}
}

func TestPruneByAge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	for id, ts := range map[string]time.Time{"old": old, "recent": recent} {
		conv := domain.ConversationRecord{ID: id, CreatedAt: ts, UpdatedAt: ts}
		if err := store.CreateConversation(ctx, conv); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned conversation, got %d", n)
	}

	if got, _ := store.GetConversation(ctx, "old"); got != nil {
		t.Fatal("old conversation survived prune")
	}
	if got, _ := store.GetConversation(ctx, "recent"); got == nil {
		t.Fatal("recent conversation pruned")
	}
}
