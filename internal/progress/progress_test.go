package progress

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CosmoTheDev/feishu-notifier/internal/testutil"
	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)

func newTestExtractor(client vcs.Client) *Extractor {
	return NewExtractor(client).WithClock(func() time.Time { return fixedNow })
}

func TestLastActionPriority(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{"message first", map[string]any{"message": "m", "description": "d", "action": "a"}, "m"},
		{"description second", map[string]any{"description": "d", "action": "a"}, "d"},
		{"action third", map[string]any{"action": "a"}, "a"},
		{"non-string skipped", map[string]any{"message": 1, "action": "a"}, "a"},
		{"none", map[string]any{"task": "t"}, DefaultLastAction},
		{"nil payload", nil, DefaultLastAction},
		{"non-object payload", "hello", DefaultLastAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := newTestExtractor(nil).Extract(context.Background(), tc.payload, "")
			if got.LastAction != tc.want {
				t.Fatalf("LastAction = %q, want %q", got.LastAction, tc.want)
			}
			if !got.Timestamp.Equal(fixedNow) {
				t.Fatalf("timestamp = %v", got.Timestamp)
			}
		})
	}
}

func TestCurrentTask(t *testing.T) {
	e := newTestExtractor(nil)
	if got := e.Extract(context.Background(), map[string]any{"task": "a", "currentTask": "b"}, ""); got.CurrentTask != "a" {
		t.Fatalf("task should win, got %q", got.CurrentTask)
	}
	if got := e.Extract(context.Background(), map[string]any{"currentTask": "b"}, ""); got.CurrentTask != "b" {
		t.Fatalf("currentTask fallback, got %q", got.CurrentTask)
	}
	if got := e.Extract(context.Background(), map[string]any{}, ""); got.CurrentTask != "" {
		t.Fatalf("expected no task, got %q", got.CurrentTask)
	}
}

func TestFileChangesFromStatus(t *testing.T) {
	fake := &testutil.FakeVCS{Entries: []vcs.FileStatus{
		{Code: "??", Path: "new.txt"},
		{Code: " M", Path: "main.go"},
	}}
	got := newTestExtractor(fake).Extract(context.Background(), nil, "/repo")
	if got.FileChanges == nil {
		t.Fatal("expected file changes")
	}
	if *got.FileChanges != (models.FileChanges{Added: 1, Modified: 1}) {
		t.Fatalf("got %+v", *got.FileChanges)
	}
	if line := lastLine(Format(got)); line != "• 文件变更：新增 1 个文件，修改 1 个文件" {
		t.Fatalf("summary line = %q", line)
	}
}

func TestFileChangesOmitted(t *testing.T) {
	ctx := context.Background()

	fake := &testutil.FakeVCS{StatusErr: errors.New("not a git repository")}
	if got := newTestExtractor(fake).Extract(ctx, nil, "/tmp"); got.FileChanges != nil {
		t.Fatalf("status failure should omit file changes, got %+v", got.FileChanges)
	}

	fake = &testutil.FakeVCS{}
	if got := newTestExtractor(fake).Extract(ctx, nil, "/tmp"); got.FileChanges != nil {
		t.Fatalf("clean tree should omit file changes, got %+v", got.FileChanges)
	}

	fake = &testutil.FakeVCS{Entries: []vcs.FileStatus{{Code: "A ", Path: "x"}}}
	newTestExtractor(fake).Extract(ctx, nil, "")
	if len(fake.Calls) != 0 {
		t.Fatalf("status must not run without a directory: %v", fake.Calls)
	}
}

func TestCountChanges(t *testing.T) {
	got := CountChanges([]vcs.FileStatus{
		{Code: "A ", Path: "a"},
		{Code: "AM", Path: "b"},
		{Code: "M ", Path: "c"},
		{Code: " M", Path: "d"},
		{Code: "MM", Path: "e"},
		{Code: "D ", Path: "f"},
		{Code: " D", Path: "g"},
		{Code: "R ", Path: "h"},
		{Code: "UU", Path: "i"},
		{Code: "??", Path: "j"},
	})
	want := models.FileChanges{Added: 3, Modified: 3, Deleted: 2}
	if got == nil || *got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if CountChanges([]vcs.FileStatus{{Code: "R ", Path: "x"}}) != nil {
		t.Fatal("renames alone should not produce file changes")
	}
}

func TestFormat(t *testing.T) {
	p := models.ProgressInfo{
		Timestamp:   fixedNow,
		LastAction:  "已完成代码审查",
		CurrentTask: "重构消息系统",
		FileChanges: &models.FileChanges{Deleted: 2},
	}
	want := strings.Join([]string{
		"• 时间：2026/03/04 05:06:07",
		"• 最近操作：已完成代码审查",
		"• 当前任务：重构消息系统",
		"• 文件变更：删除 2 个文件",
	}, "\n")
	if got := Format(p); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}

	p = models.ProgressInfo{Timestamp: fixedNow, FileChanges: &models.FileChanges{}}
	if got := Format(p); got != "• 时间：2026/03/04 05:06:07" {
		t.Fatalf("zero counters must not render a summary, got %q", got)
	}
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}
