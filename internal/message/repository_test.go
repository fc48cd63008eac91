package message

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestEnsureConversationIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()

	first, err := repo.EnsureConversation("buyer", "seller", strPtr("listing-1"))
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}

	// Swapped participant order resolves to the same thread.
	second, err := repo.EnsureConversation("seller", "buyer", strPtr("listing-1"))
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("swapped order created a new conversation: %s != %s", second.ID, first.ID)
	}
	if first.ParticipantA != "buyer" || first.ParticipantB != "seller" {
		t.Errorf("participants not stored in canonical order: %q, %q", first.ParticipantA, first.ParticipantB)
	}
}

func TestEnsureConversationScopedByListing(t *testing.T) {
	repo := NewInMemoryRepository()

	withListing, err := repo.EnsureConversation("buyer", "seller", strPtr("listing-1"))
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}
	otherListing, err := repo.EnsureConversation("buyer", "seller", strPtr("listing-2"))
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}
	noListing, err := repo.EnsureConversation("buyer", "seller", nil)
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}

	if withListing.ID == otherListing.ID || withListing.ID == noListing.ID || otherListing.ID == noListing.ID {
		t.Error("conversations for different listings should be distinct threads")
	}

	again, err := repo.EnsureConversation("seller", "buyer", nil)
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}
	if again.ID != noListing.ID {
		t.Error("listing-less conversation should be reused")
	}
}

func TestEnsureConversationRejectsSelf(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.EnsureConversation("user", "user", nil); err != ErrNotParticipant {
		t.Errorf("self conversation error = %v, want ErrNotParticipant", err)
	}
}

func TestSendMessage(t *testing.T) {
	repo := NewInMemoryRepository()
	c, err := repo.EnsureConversation("buyer", "seller", nil)
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}

	m, err := repo.SendMessage(c.ID, "buyer", "is this still available?")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be set")
	}
	if m.ReadAt != nil {
		t.Error("new message should be unread")
	}

	got, err := repo.GetConversation(c.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(m.CreatedAt) {
		t.Errorf("LastMessageAt = %v, want %v", got.LastMessageAt, m.CreatedAt)
	}
}

func TestSendMessageErrors(t *testing.T) {
	repo := NewInMemoryRepository()
	c, err := repo.EnsureConversation("buyer", "seller", nil)
	if err != nil {
		t.Fatalf("EnsureConversation failed: %v", err)
	}

	tests := []struct {
		name           string
		conversationID string
		senderID       string
		body           string
		expected       error
	}{
		{name: "unknown conversation", conversationID: "nope", senderID: "buyer", body: "hi", expected: ErrConversationNotFound},
		{name: "outsider", conversationID: c.ID, senderID: "stranger", body: "hi", expected: ErrNotParticipant},
		{name: "empty body", conversationID: c.ID, senderID: "buyer", body: "   ", expected: ErrEmptyBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.SendMessage(tt.conversationID, tt.senderID, tt.body); err != tt.expected {
				t.Errorf("error = %v, want %v", err, tt.expected)
			}
		})
	}
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	repo := NewInMemoryRepository()

	stale, _ := repo.EnsureConversation("alice", "bob", nil)
	fresh, _ := repo.EnsureConversation("alice", "carol", nil)

	if _, err := repo.SendMessage(stale.ID, "bob", "old thread"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	// Backdate the first thread so the second one's message wins.
	earlier := time.Now().UTC().Add(-time.Hour)
	repo.conversations[stale.ID].LastMessageAt = &earlier
	if _, err := repo.SendMessage(fresh.ID, "carol", "new thread"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	got, err := repo.ListConversations("alice")
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(got))
	}
	if got[0].ID != fresh.ID {
		t.Errorf("most recently active conversation should sort first")
	}

	other, err := repo.ListConversations("bob")
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(other) != 1 || other[0].ID != stale.ID {
		t.Errorf("bob should only see his own thread")
	}
}

func TestListMessagesPagination(t *testing.T) {
	repo := NewInMemoryRepository()
	c, _ := repo.EnsureConversation("buyer", "seller", nil)

	const total = 25
	for i := 0; i < total; i++ {
		if _, err := repo.SendMessage(c.ID, "buyer", "message"); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := repo.ListMessages(c.ID, 10, cursor)
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		pages++

		for _, m := range page.Messages {
			if seen[m.ID] {
				t.Fatalf("message %s appeared on two pages", m.ID)
			}
			seen[m.ID] = true
		}
		for i := 1; i < len(page.Messages); i++ {
			if page.Messages[i].CreatedAt.After(page.Messages[i-1].CreatedAt) {
				t.Fatal("messages within a page should be newest first")
			}
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != total {
		t.Errorf("walked %d messages across %d pages, want %d", len(seen), pages, total)
	}
	if pages != 3 {
		t.Errorf("expected 3 pages of 10/10/5, got %d", pages)
	}
}

func TestListMessagesClampsLimit(t *testing.T) {
	repo := NewInMemoryRepository()
	c, _ := repo.EnsureConversation("buyer", "seller", nil)

	for i := 0; i < MaxPageSize+5; i++ {
		if _, err := repo.SendMessage(c.ID, "seller", "message"); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	page, err := repo.ListMessages(c.ID, 1000, "")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(page.Messages) != MaxPageSize {
		t.Errorf("oversized limit returned %d messages, want %d", len(page.Messages), MaxPageSize)
	}

	page, err = repo.ListMessages(c.ID, 0, "")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(page.Messages) != DefaultPageSize {
		t.Errorf("zero limit returned %d messages, want default %d", len(page.Messages), DefaultPageSize)
	}
}

func TestListMessagesInvalidCursor(t *testing.T) {
	repo := NewInMemoryRepository()
	c, _ := repo.EnsureConversation("buyer", "seller", nil)

	if _, err := repo.ListMessages(c.ID, 10, "!!!bad!!!"); err != ErrInvalidCursor {
		t.Errorf("error = %v, want ErrInvalidCursor", err)
	}
}

func TestMarkRead(t *testing.T) {
	repo := NewInMemoryRepository()
	c, _ := repo.EnsureConversation("buyer", "seller", nil)

	if _, err := repo.SendMessage(c.ID, "seller", "still available"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, err := repo.SendMessage(c.ID, "buyer", "great, ill take it"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := repo.MarkRead(c.ID, "buyer"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	page, err := repo.ListMessages(c.ID, 10, "")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	for _, m := range page.Messages {
		switch m.SenderID {
		case "seller":
			if m.ReadAt == nil {
				t.Error("seller's message should be read after buyer MarkRead")
			}
		case "buyer":
			if m.ReadAt != nil {
				t.Error("buyer's own message should stay unread")
			}
		}
	}

	if err := repo.MarkRead(c.ID, "stranger"); err != ErrNotParticipant {
		t.Errorf("outsider MarkRead error = %v, want ErrNotParticipant", err)
	}
}
