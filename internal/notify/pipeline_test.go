package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/feishu"
	"github.com/CosmoTheDev/feishu-notifier/internal/progress"
	"github.com/CosmoTheDev/feishu-notifier/internal/testutil"
	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

type recordingChannel struct {
	sent []Notification
	err  error
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Send(_ context.Context, n Notification) (string, error) {
	c.sent = append(c.sent, n)
	if c.err != nil {
		return "", c.err
	}
	return "om_1", nil
}

type recordingObserver struct {
	records []Record
}

func (o *recordingObserver) Observe(_ context.Context, r Record) {
	o.records = append(o.records, r)
}

func (o *recordingObserver) stages() []Stage {
	out := make([]Stage, len(o.records))
	for i, r := range o.records {
		out[i] = r.Stage
	}
	return out
}

func newTestPipeline(t *testing.T, obs Observer) (*Pipeline, *testutil.FakeVCS) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "go.mod"), "module example.com/team/demo\n")
	fake := &testutil.FakeVCS{}
	clock := func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local) }
	p := New(fake,
		WithDir(dir),
		WithObserver(obs),
		WithProgress(progress.NewExtractor(fake).WithClock(clock)),
		WithIDs(func() string { return "evt-1" }),
	)
	return p, fake
}

func TestHandleIgnoresUnknownEvents(t *testing.T) {
	obs := &recordingObserver{}
	p, fake := newTestPipeline(t, obs)
	ch := &recordingChannel{}

	res := p.Handle(context.Background(), event.Event{Type: "message.updated"}, Target{Channel: ch})
	if res.Outcome != OutcomeIgnored {
		t.Fatalf("outcome = %v, want ignored", res.Outcome)
	}
	if len(ch.sent) != 0 {
		t.Errorf("ignored event was sent: %+v", ch.sent)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("ignored event touched git: %v", fake.Calls)
	}
	if got := obs.stages(); len(got) != 1 || got[0] != StageIgnored {
		t.Errorf("stages = %v", got)
	}
}

func TestHandleDelivers(t *testing.T) {
	obs := &recordingObserver{}
	p, _ := newTestPipeline(t, obs)
	ch := &recordingChannel{}

	ev := event.Event{Type: "permission.asked", Payload: map[string]any{
		"permissions": []any{map[string]any{"path": "src/main.go"}},
	}}
	res := p.Handle(context.Background(), ev, Target{Channel: ch})

	if res.Outcome != OutcomeDelivered {
		t.Fatalf("outcome = %v, err = %v", res.Outcome, res.Err)
	}
	if res.Category != models.CategoryPermissionRequired || res.MessageID != "om_1" || res.Fallback {
		t.Errorf("result = %+v", res)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(ch.sent))
	}
	n := ch.sent[0]
	if n.ID != "evt-1" {
		t.Errorf("notification id = %q", n.ID)
	}
	for _, want := range []string{"📦 [demo] | 需要权限确认", "• src/main.go", "📊 进度摘要"} {
		if !strings.Contains(n.Text, want) {
			t.Errorf("text missing %q:\n%s", want, n.Text)
		}
	}
	if got := obs.stages(); len(got) != 1 || got[0] != StageDelivered {
		t.Errorf("stages = %v", got)
	}
	if obs.records[0].MessageID != "om_1" {
		t.Errorf("record = %+v", obs.records[0])
	}
}

func TestHandleIdleStatus(t *testing.T) {
	p, _ := newTestPipeline(t, &recordingObserver{})
	ch := &recordingChannel{}

	ev := event.Event{Type: "session.status", Payload: map[string]any{"status": map[string]any{"type": "idle"}}}
	res := p.Handle(context.Background(), ev, Target{Channel: ch})
	if res.Outcome != OutcomeDelivered || res.Category != models.CategorySessionIdle {
		t.Fatalf("result = %+v", res)
	}

	busy := event.Event{Type: "session.status", Payload: map[string]any{"status": "busy"}}
	if res := p.Handle(context.Background(), busy, Target{Channel: ch}); res.Outcome != OutcomeIgnored {
		t.Errorf("busy status outcome = %v", res.Outcome)
	}
}

func TestHandleSkipsWithoutConfig(t *testing.T) {
	obs := &recordingObserver{}
	p, fake := newTestPipeline(t, obs)
	cfgErr := errors.New("missing appId")

	res := p.Handle(context.Background(), event.Event{Type: "session.idle"}, Target{Err: cfgErr})
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("skipped event touched git: %v", fake.Calls)
	}
	if got := obs.stages(); len(got) != 1 || got[0] != StageSkipped {
		t.Errorf("stages = %v", got)
	}
}

func TestHandleSwallowsDeliveryFailure(t *testing.T) {
	obs := &recordingObserver{}
	p, _ := newTestPipeline(t, obs)
	sendErr := errors.New("boom")
	ch := &recordingChannel{err: sendErr}

	res := p.Handle(context.Background(), event.Event{Type: "question.asked"}, Target{Channel: ch})
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if !errors.Is(res.Err, sendErr) {
		t.Errorf("err = %v", res.Err)
	}
	if got := obs.stages(); len(got) != 1 || got[0] != StageFailed {
		t.Errorf("stages = %v", got)
	}
}

func TestHandleAsSetupTest(t *testing.T) {
	p, _ := newTestPipeline(t, &recordingObserver{})
	ch := &recordingChannel{}

	res := p.HandleAs(context.Background(), event.Event{Type: "setup.test"}, models.CategorySetupTest, Target{Channel: ch})
	if res.Outcome != OutcomeDelivered {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if want := "Feishu 通知测试\nFeishu 通知已启用。"; ch.sent[0].Text != want {
		t.Errorf("text = %q, want %q", ch.sent[0].Text, want)
	}
}

func TestRenderIncludesGitDetails(t *testing.T) {
	repo := testutil.InitRepo(t)
	repo.WriteFile("a.txt", "a")
	repo.CommitAll("init")
	repo.Checkout("feature/x")
	repo.AddRemote("origin", "git@github.com:acme/demo.git")
	repo.WriteFile("b.txt", "b")

	p := New(vcs.New("gogit"), WithDir(repo.Dir), WithObserver(&recordingObserver{}))
	msg, fallback := p.Render(context.Background(), event.Event{Type: "session.idle"}, models.CategorySessionIdle)
	if fallback {
		t.Fatal("unexpected fallback")
	}
	for _, want := range []string{" feature/x | OpenCode 闲暇", "• 仓库地址：https://github.com/acme/demo", "新增 1 个文件"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestPanickingObserverDoesNotAffectOutcome(t *testing.T) {
	p, _ := newTestPipeline(t, ObserverFunc(func(context.Context, Record) { panic("observer") }))
	ch := &recordingChannel{}

	res := p.Handle(context.Background(), event.Event{Type: "session.idle"}, Target{Channel: ch})
	if res.Outcome != OutcomeDelivered {
		t.Fatalf("outcome = %v", res.Outcome)
	}
}

func TestLazyTargetMemoisesFailure(t *testing.T) {
	obs := &recordingObserver{}
	calls := 0
	lt := NewLazyTarget(func() Target {
		calls++
		return TargetFrom(config.Result{Err: config.ErrMissingKeys})
	}, obs)

	for i := 0; i < 3; i++ {
		if tgt := lt.Get(context.Background()); tgt.Ready() {
			t.Fatal("target should not be ready")
		}
	}
	if calls != 1 {
		t.Errorf("resolve called %d times, want 1", calls)
	}
	if got := obs.stages(); len(got) != 1 || got[0] != StageConfig {
		t.Errorf("stages = %v", got)
	}
}

func TestFeishuChannelEndToEnd(t *testing.T) {
	var gotUUID, gotText string
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "tenant_access_token": "t-1", "expire": 7200})
	})
	mux.HandleFunc("/open-apis/im/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UUID    string `json:"uuid"`
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var content struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal([]byte(body.Content), &content)
		gotUUID, gotText = body.UUID, content.Text
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]any{"message_id": "om_42"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := &config.Config{AppID: "a", AppSecret: "s", ReceiverType: config.ReceiverOpenID, ReceiverID: "ou_1"}
	target := TargetFrom(config.Result{Config: cfg}, feishu.WithBaseURL(srv.URL), feishu.WithHTTPClient(srv.Client()))
	if !target.Ready() || target.Channel.Name() != "feishu" {
		t.Fatalf("target = %+v", target)
	}

	p, _ := newTestPipeline(t, &recordingObserver{})
	res := p.HandleAs(context.Background(), event.Event{}, models.CategorySetupTest, target)
	if res.Outcome != OutcomeDelivered || res.MessageID != "om_42" {
		t.Fatalf("result = %+v", res)
	}
	if gotUUID != "evt-1" {
		t.Errorf("uuid = %q", gotUUID)
	}
	if !strings.HasPrefix(gotText, "Feishu 通知测试") {
		t.Errorf("text = %q", gotText)
	}
}

func TestHandleResolvesTargetOnlyForAcceptedEvents(t *testing.T) {
	p, _ := newTestPipeline(t, &recordingObserver{})
	ch := &recordingChannel{}
	calls := 0
	lt := NewLazyTarget(func() Target {
		calls++
		return Target{Channel: ch}
	}, nil)

	p.Handle(context.Background(), event.Event{Type: "message.updated"}, lt)
	if calls != 0 {
		t.Fatalf("resolved config for an ignored event")
	}
	p.Handle(context.Background(), event.Event{Type: "session.idle"}, lt)
	p.Handle(context.Background(), event.Event{Type: "question.asked"}, lt)
	if calls != 1 || len(ch.sent) != 2 {
		t.Errorf("calls = %d, sent = %d", calls, len(ch.sent))
	}
}
