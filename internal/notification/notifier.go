package notification

import (
	"context"
	"log/slog"
)

// Notifier stores in-app notifications and optionally mirrors them to email.
// Email delivery is best-effort: a failed send never fails the notification.
type Notifier struct {
	repo      Repository
	sender    EmailSender
	directory Directory
	logger    *slog.Logger
}

// NewNotifier creates a Notifier. A nil sender disables email delivery.
func NewNotifier(repo Repository, sender EmailSender, logger *slog.Logger) *Notifier {
	if sender == nil {
		sender = NoopSender{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{repo: repo, sender: sender, logger: logger}
}

// WithDirectory sets the directory used to resolve recipient email
// addresses. Without one, notifications stay in-app only.
func (n *Notifier) WithDirectory(d Directory) *Notifier {
	n.directory = d
	return n
}

// Notify stores the notification and, when the recipient's email address can
// be resolved through the directory, sends a matching email.
func (n *Notifier) Notify(ctx context.Context, notif *Notification) error {
	if err := n.repo.Create(notif); err != nil {
		return err
	}

	if n.directory == nil {
		return nil
	}
	email, err := n.directory.EmailFor(ctx, notif.UserID)
	if err != nil {
		n.logger.Warn("recipient email lookup failed",
			"notification_id", notif.ID,
			"user_id", notif.UserID,
			"error", err,
		)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := n.sender.Send(ctx, email, notif.Title, notif.Body); err != nil {
		n.logger.Warn("notification email delivery failed",
			"notification_id", notif.ID,
			"type", notif.Type,
			"error", err,
		)
	}
	return nil
}
