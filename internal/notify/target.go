package notify

import (
	"context"
	"sync"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
	"github.com/CosmoTheDev/feishu-notifier/internal/feishu"
)

// Target is where accepted events are delivered. Err is set when the
// configuration could not be resolved; such a target never delivers.
type Target struct {
	Channel Channel
	Err     error
}

// Resolver yields the delivery target. Both Target and *LazyTarget
// implement it.
type Resolver interface {
	Get(ctx context.Context) Target
}

// Get returns t itself.
func (t Target) Get(context.Context) Target { return t }

// Ready reports whether the target can deliver.
func (t Target) Ready() bool { return t.Err == nil && t.Channel != nil }

// TargetFrom builds a Feishu target from a resolved configuration.
func TargetFrom(res config.Result, opts ...feishu.Option) Target {
	if !res.OK() {
		return Target{Err: res.Err}
	}
	return Target{Channel: NewFeishu(*res.Config, opts...)}
}

// LazyTarget resolves a Target on first use and memoises it, including a
// failure. The failure is reported to the observer exactly once.
type LazyTarget struct {
	once     sync.Once
	resolve  func() Target
	observer Observer
	target   Target
}

// NewLazyTarget defers resolve until the first Get.
func NewLazyTarget(resolve func() Target, observer Observer) *LazyTarget {
	return &LazyTarget{resolve: resolve, observer: observer}
}

// Get returns the memoised target.
func (l *LazyTarget) Get(ctx context.Context) Target {
	l.once.Do(func() {
		l.target = l.resolve()
		if l.target.Err != nil {
			observe(ctx, l.observer, Record{Stage: StageConfig, Err: l.target.Err})
		}
	})
	return l.target
}
