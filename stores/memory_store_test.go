package stores

import (
	"testing"
	"time"
)

func TestMemoryStoreSaveAndFetchOrder(t *testing.T) {
	store := NewMemoryStore()

	msgs := []struct {
		role, msgType string
	}{
		{"user", "user_message"},
		{"model", "function_call"},
		{"user", "function_response"},
		{"model", "model_message"},
	}
	for _, m := range msgs {
		if err := store.SaveMessage("conv-1", m.role, m.msgType, []map[string]string{{"text": "x"}}, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := store.FetchHistory("conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != len(msgs) {
		t.Fatalf("expected %d messages, got %d", len(msgs), len(history))
	}
	for i, msg := range history {
		if msg.Sequence != i+1 {
			t.Errorf("message %d: expected sequence %d, got %d", i, i+1, msg.Sequence)
		}
		if msg.Type != msgs[i].msgType {
			t.Errorf("message %d: expected type %q, got %q", i, msgs[i].msgType, msg.Type)
		}
	}
}

func TestMemoryStoreIsolatesConversations(t *testing.T) {
	store := NewMemoryStore()

	if err := store.SaveMessage("conv-a", "user", "user_message", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveMessage("conv-b", "user", "user_message", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	historyA, _ := store.FetchHistory("conv-a")
	historyB, _ := store.FetchHistory("conv-b")
	if len(historyA) != 1 || len(historyB) != 1 {
		t.Errorf("expected 1 message each, got %d and %d", len(historyA), len(historyB))
	}

	ids, err := store.ListConversations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 conversations, got %d", len(ids))
	}
}

func TestMemoryStoreFetchHistoryEmptyConversation(t *testing.T) {
	store := NewMemoryStore()
	history, err := store.FetchHistory("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
}

func TestMemoryStoreCreateConversationDuplicate(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateConversation("conv-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.CreateConversation("conv-1", "user-1"); err == nil {
		t.Fatal("expected an error creating a duplicate conversation")
	}
}

func TestMemoryStoreListConversationsForUser(t *testing.T) {
	store := NewMemoryStore()
	if err := store.CreateConversation("conv-1", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.CreateConversation("conv-2", "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	convos, err := store.ListConversationsForUser("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(convos) != 1 || convos[0].ConversationID != "conv-1" {
		t.Errorf("expected only alice's conversation, got %v", convos)
	}
}

func TestMemoryStoreDeleteConversationsBefore(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveMessage("old-conv", "user", "user_message", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Cutoff in the future removes everything updated so far
	removed, err := store.DeleteConversationsBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 conversation removed, got %d", removed)
	}

	history, _ := store.FetchHistory("old-conv")
	if len(history) != 0 {
		t.Errorf("expected messages to be gone, found %d", len(history))
	}

	// Cutoff in the past removes nothing
	if err := store.SaveMessage("new-conv", "user", "user_message", nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed, err = store.DeleteConversationsBefore(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected no conversations removed, got %d", removed)
	}
}
