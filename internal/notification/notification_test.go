package notification

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndList(t *testing.T) {
	repo := NewInMemoryRepository()

	n := &Notification{
		UserID: "user-1",
		Type:   TypeMessageReceived,
		Title:  "New message",
		Body:   "someone asked about your textbook",
	}
	if err := repo.Create(n); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n.ID == "" || n.CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be set")
	}

	got, err := repo.ListByUser("user-1", false)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "New message" {
		t.Errorf("unexpected notifications: %+v", got)
	}

	other, err := repo.ListByUser("user-2", false)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("user-2 should have no notifications, got %d", len(other))
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	repo := NewInMemoryRepository()
	n := &Notification{UserID: "user-1", Type: "carrier_pigeon", Title: "hi"}
	if err := repo.Create(n); err != ErrInvalidType {
		t.Errorf("error = %v, want ErrInvalidType", err)
	}
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	repo := NewInMemoryRepository()

	first := &Notification{UserID: "user-1", Type: TypeMessageReceived, Title: "a"}
	second := &Notification{UserID: "user-1", Type: TypeReviewReceived, Title: "b"}
	for _, n := range []*Notification{first, second} {
		if err := repo.Create(n); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	count, err := repo.UnreadCount("user-1")
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("unread = %d, want 2", count)
	}

	if err := repo.MarkRead(first.ID, "user-1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	// Marking twice is a no-op.
	if err := repo.MarkRead(first.ID, "user-1"); err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}

	count, err = repo.UnreadCount("user-1")
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("unread = %d, want 1", count)
	}

	unread, err := repo.ListByUser("user-1", true)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != second.ID {
		t.Errorf("unread list = %+v, want only %s", unread, second.ID)
	}

	// Another user cannot mark someone else's notification.
	if err := repo.MarkRead(second.ID, "user-2"); err != ErrNotificationNotFound {
		t.Errorf("cross-user MarkRead error = %v, want ErrNotificationNotFound", err)
	}
}

type recordingSender struct {
	to, subject, body string
	calls             int
	err               error
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	s.calls++
	s.to, s.subject, s.body = to, subject, body
	return s.err
}

func TestNotifierStoresAndEmails(t *testing.T) {
	repo := NewInMemoryRepository()
	sender := &recordingSender{}
	directory := NewInMemoryDirectory()
	directory.Register("user-1", "user1@campus.edu")
	notifier := NewNotifier(repo, sender, nil).WithDirectory(directory)

	n := &Notification{
		UserID: "user-1",
		Type:   TypeReviewReceived,
		Title:  "New review",
		Body:   "you got 5 stars",
	}
	if err := notifier.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if sender.calls != 1 || sender.to != "user1@campus.edu" || sender.subject != "New review" {
		t.Errorf("unexpected email: %+v", sender)
	}
	stored, err := repo.ListByUser("user-1", false)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("expected stored notification, got %d", len(stored))
	}
}

func TestNotifierSkipsEmailWithoutAddress(t *testing.T) {
	repo := NewInMemoryRepository()
	sender := &recordingSender{}

	// No directory at all.
	notifier := NewNotifier(repo, sender, nil)
	n := &Notification{UserID: "user-1", Type: TypeReportClosed, Title: "Report closed"}
	if err := notifier.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("expected no email without a directory, got %d sends", sender.calls)
	}

	// Directory present but the recipient has no registered address.
	notifier = notifier.WithDirectory(NewInMemoryDirectory())
	n2 := &Notification{UserID: "user-2", Type: TypeReportClosed, Title: "Report closed"}
	if err := notifier.Notify(context.Background(), n2); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("expected no email for unknown recipient, got %d sends", sender.calls)
	}
}

func TestNotifierEmailFailureIsNonFatal(t *testing.T) {
	repo := NewInMemoryRepository()
	sender := &recordingSender{err: errors.New("ses throttled")}
	directory := NewInMemoryDirectory()
	directory.Register("user-1", "user1@campus.edu")
	notifier := NewNotifier(repo, sender, nil).WithDirectory(directory)

	n := &Notification{UserID: "user-1", Type: TypeMessageReceived, Title: "New message"}
	if err := notifier.Notify(context.Background(), n); err != nil {
		t.Errorf("email failure should not fail Notify, got %v", err)
	}

	stored, err := repo.ListByUser("user-1", false)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("notification should be stored despite email failure")
	}
}
