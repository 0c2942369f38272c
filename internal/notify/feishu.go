package notify

import (
	"context"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
	"github.com/CosmoTheDev/feishu-notifier/internal/feishu"
)

// FeishuChannel delivers notifications as Feishu text messages.
type FeishuChannel struct {
	client *feishu.Client
}

// NewFeishu creates a FeishuChannel from cfg.
func NewFeishu(cfg config.Config, opts ...feishu.Option) *FeishuChannel {
	return &FeishuChannel{client: feishu.New(cfg, opts...)}
}

func (f *FeishuChannel) Name() string { return "feishu" }

func (f *FeishuChannel) Send(ctx context.Context, n Notification) (string, error) {
	return f.client.Send(ctx, n.Text, feishu.WithUUID(n.ID))
}
