// Package progress builds the "what just happened" part of a notification.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

// DefaultLastAction is used when the payload carries no description.
const DefaultLastAction = "OpenCode 正在处理任务"

// TimeLayout matches the zh-CN locale rendering of a timestamp.
const TimeLayout = "2006/01/02 15:04:05"

// Extractor derives ProgressInfo from an event payload and git status.
type Extractor struct {
	vcs vcs.Client
	now func() time.Time
}

// NewExtractor creates an Extractor. client may be nil to skip file changes.
func NewExtractor(client vcs.Client) *Extractor {
	return &Extractor{vcs: client, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract never fails. File changes are only looked up when dir is set.
func (e *Extractor) Extract(ctx context.Context, payload any, dir string) models.ProgressInfo {
	info := models.ProgressInfo{Timestamp: e.now()}

	if s, ok := event.StringField(payload, "message", "description", "action"); ok {
		info.LastAction = s
	}
	if info.LastAction == "" {
		info.LastAction = DefaultLastAction
	}
	if s, ok := event.StringField(payload, "task", "currentTask"); ok {
		info.CurrentTask = s
	}

	if dir != "" && e.vcs != nil {
		entries, err := e.vcs.Status(ctx, dir)
		if err != nil {
			slog.Debug("progress: status unavailable", "dir", dir, "backend", e.vcs.Name(), "error", err)
		} else {
			info.FileChanges = CountChanges(entries)
		}
	}
	return info
}

// CountChanges tallies porcelain entries. Untracked files count as added;
// renames, copies and conflicts are not counted. Returns nil when nothing
// was counted.
func CountChanges(entries []vcs.FileStatus) *models.FileChanges {
	var fc models.FileChanges
	for _, e := range entries {
		code := strings.TrimSpace(e.Code)
		switch {
		case code == "??":
			fc.Added++
		case strings.HasPrefix(code, "A"):
			fc.Added++
		case strings.HasPrefix(code, "M"):
			fc.Modified++
		case strings.HasPrefix(code, "D"):
			fc.Deleted++
		}
	}
	if fc.Empty() {
		return nil
	}
	return &fc
}

// Format renders progress as bullet lines: time, last action, current
// task and a file change summary when there is one.
func Format(p models.ProgressInfo) string {
	lines := []string{"• 时间：" + p.Timestamp.Local().Format(TimeLayout)}
	if p.LastAction != "" {
		lines = append(lines, "• 最近操作："+p.LastAction)
	}
	if p.CurrentTask != "" {
		lines = append(lines, "• 当前任务："+p.CurrentTask)
	}
	if summary := ChangeSummary(p.FileChanges); summary != "" {
		lines = append(lines, "• 文件变更："+summary)
	}
	return strings.Join(lines, "\n")
}

// ChangeSummary joins the nonzero counters, e.g. "新增 1 个文件，修改 1 个文件".
func ChangeSummary(fc *models.FileChanges) string {
	if fc == nil {
		return ""
	}
	var parts []string
	if fc.Added > 0 {
		parts = append(parts, fmt.Sprintf("新增 %d 个文件", fc.Added))
	}
	if fc.Modified > 0 {
		parts = append(parts, fmt.Sprintf("修改 %d 个文件", fc.Modified))
	}
	if fc.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("删除 %d 个文件", fc.Deleted))
	}
	return strings.Join(parts, "，")
}
