package adapter

import "context"

// Notifier delivers a user-facing message. Failures never roll back grants.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) error
}

// OpsAlerter pages operators about integrity and upstream faults.
type OpsAlerter interface {
	Alert(ctx context.Context, text string) error
}
