package notify

import (
	"context"

	"github.com/CosmoTheDev/feishu-notifier/models"
)

// Notification is a rendered message ready for delivery.
type Notification struct {
	ID       string // per-event id, doubles as the delivery idempotency key
	Category models.Category
	Title    string
	Text     string
}

// Channel is implemented by the delivery provider.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) (messageID string, err error)
}
