// Package notify turns host events into delivered Feishu notifications:
// classify, enrich, render, deliver.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/message"
	"github.com/CosmoTheDev/feishu-notifier/internal/progress"
	"github.com/CosmoTheDev/feishu-notifier/internal/project"
	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

// Outcome is the result of handling one event.
type Outcome int

const (
	OutcomeIgnored   Outcome = iota // event type has no category
	OutcomeSkipped                  // configuration unavailable
	OutcomeDelivered                // channel accepted the message
	OutcomeFailed                   // channel returned an error (logged, not propagated)
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result describes what happened to one event.
type Result struct {
	Outcome   Outcome
	Category  models.Category
	Message   models.RenderedMessage
	MessageID string
	Fallback  bool  // message came from the legacy renderer
	Err       error // delivery error when Outcome is OutcomeFailed
}

// Pipeline handles events one at a time. It is safe for sequential use;
// each event gets fresh project and progress context.
type Pipeline struct {
	projects *project.Extractor
	progress *progress.Extractor
	observer Observer
	dir      string
	newID    func() string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithObserver sets the observer. The default logs through slog.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithDir sets the working directory used for project and git lookups.
func WithDir(dir string) Option {
	return func(p *Pipeline) { p.dir = dir }
}

// WithProgress replaces the progress extractor, e.g. to pin the clock.
func WithProgress(e *progress.Extractor) Option {
	return func(p *Pipeline) { p.progress = e }
}

// WithIDs replaces the event id generator.
func WithIDs(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// New creates a Pipeline. client may be nil, in which case git details
// are omitted from messages.
func New(client vcs.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		projects: project.NewExtractor(client),
		progress: progress.NewExtractor(client),
		observer: NewSlogObserver(nil),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Dir returns the configured working directory.
func (p *Pipeline) Dir() string { return p.dir }

// Render builds the message for ev under category c without delivering it.
// fallback reports whether the legacy renderer was used.
func (p *Pipeline) Render(ctx context.Context, ev event.Event, c models.Category) (msg models.RenderedMessage, fallback bool) {
	return p.render(ctx, "", ev, c)
}

func (p *Pipeline) render(ctx context.Context, id string, ev event.Event, c models.Category) (models.RenderedMessage, bool) {
	mc := models.MessageContext{
		Project:      p.projects.Extract(ctx, p.dir),
		Progress:     p.progress.Extract(ctx, ev.Payload, p.dir),
		Category:     c,
		Payload:      ev.Payload,
		OriginalType: ev.Type,
	}
	msg, err := message.Render(mc)
	if err != nil {
		observe(ctx, p.observer, Record{Stage: StageFallback, EventID: id, EventType: ev.Type, Category: c, Err: err})
		return msg, true
	}
	return msg, false
}

// Handle runs ev through the pipeline and delivers it to the resolved
// target. targets is only consulted for accepted events. A delivery
// failure is reported in the Result and to the observer; it is never
// returned as an error.
func (p *Pipeline) Handle(ctx context.Context, ev event.Event, targets Resolver) Result {
	id := p.newID()

	c, ok := event.Classify(ev.Type, ev.Payload)
	if !ok {
		observe(ctx, p.observer, Record{Stage: StageIgnored, EventID: id, EventType: ev.Type})
		return Result{Outcome: OutcomeIgnored}
	}
	return p.deliver(ctx, id, ev, c, targets.Get(ctx))
}

// HandleAs delivers ev under a fixed category, bypassing classification.
// Used for the setup test notification.
func (p *Pipeline) HandleAs(ctx context.Context, ev event.Event, c models.Category, targets Resolver) Result {
	return p.deliver(ctx, p.newID(), ev, c, targets.Get(ctx))
}

func (p *Pipeline) deliver(ctx context.Context, id string, ev event.Event, c models.Category, target Target) Result {
	if !target.Ready() {
		observe(ctx, p.observer, Record{Stage: StageSkipped, EventID: id, EventType: ev.Type, Category: c, Err: target.Err})
		return Result{Outcome: OutcomeSkipped, Category: c}
	}

	msg, fallback := p.render(ctx, id, ev, c)
	res := Result{Category: c, Message: msg, Fallback: fallback}

	n := Notification{ID: id, Category: c, Title: msg.Title, Text: msg.Text}
	rec := Record{EventID: id, EventType: ev.Type, Category: c, Channel: target.Channel.Name()}
	mid, err := target.Channel.Send(ctx, n)
	if err != nil {
		rec.Stage, rec.Err = StageFailed, err
		observe(ctx, p.observer, rec)
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	rec.Stage, rec.MessageID = StageDelivered, mid
	observe(ctx, p.observer, rec)
	res.Outcome, res.MessageID = OutcomeDelivered, mid
	return res
}
