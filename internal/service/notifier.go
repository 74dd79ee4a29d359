package service

import "context"

// Notifier schedules a user-facing message after a state mutation has
// committed. Implementations are fire-and-forget: delivery failures are logged
// and swallowed, never surfaced to the caller. Duplicate delivery is tolerable;
// silently dropping a requested notification is not.
type Notifier interface {
	Notify(ctx context.Context, userID string, projectID uint, notificationType, message string)
}
