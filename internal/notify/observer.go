package notify

import (
	"context"
	"log/slog"

	"github.com/CosmoTheDev/feishu-notifier/models"
)

// Stage names the pipeline step a Record describes.
type Stage string

const (
	StageIgnored   Stage = "ignored"   // event type not mapped to a category
	StageConfig    Stage = "config"    // configuration could not be resolved
	StageSkipped   Stage = "skipped"   // delivery skipped, config unavailable
	StageFallback  Stage = "fallback"  // structured rendering failed
	StageDelivered Stage = "delivered" // message accepted by the channel
	StageFailed    Stage = "failed"    // channel returned an error
)

// Record is what the pipeline reports to its Observer.
type Record struct {
	Stage     Stage
	EventID   string
	EventType string
	Category  models.Category
	Channel   string
	MessageID string
	Err       error
}

// Observer receives pipeline records. Calls are fire-and-forget: the
// pipeline ignores panics raised by an Observer.
type Observer interface {
	Observe(ctx context.Context, r Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r Record)

func (f ObserverFunc) Observe(ctx context.Context, r Record) { f(ctx, r) }

// Observers fans a record out to several observers.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, r Record) {
	for _, obs := range o {
		observe(ctx, obs, r)
	}
}

func observe(ctx context.Context, obs Observer, r Record) {
	if obs == nil {
		return
	}
	defer func() { _ = recover() }()
	obs.Observe(ctx, r)
}

// SlogObserver writes records to a slog.Logger.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver logs to l, or to slog.Default() when l is nil.
func NewSlogObserver(l *slog.Logger) *SlogObserver {
	return &SlogObserver{Logger: l}
}

func (s *SlogObserver) Observe(ctx context.Context, r Record) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	attrs := []any{"event_id", r.EventID, "event", r.EventType}
	if r.Category != "" {
		attrs = append(attrs, "category", r.Category)
	}
	if r.Channel != "" {
		attrs = append(attrs, "channel", r.Channel)
	}
	if r.Err != nil {
		attrs = append(attrs, "error", r.Err)
	}

	switch r.Stage {
	case StageIgnored:
		l.DebugContext(ctx, "notify: event ignored", attrs...)
	case StageConfig:
		l.ErrorContext(ctx, "notify: configuration unavailable, notifications disabled", attrs...)
	case StageSkipped:
		l.DebugContext(ctx, "notify: delivery skipped", attrs...)
	case StageFallback:
		l.WarnContext(ctx, "notify: structured message failed, using fallback", attrs...)
	case StageDelivered:
		l.InfoContext(ctx, "notify: notification sent", append(attrs, "message_id", r.MessageID)...)
	case StageFailed:
		l.ErrorContext(ctx, "notify: failed to send notification", attrs...)
	}
}
