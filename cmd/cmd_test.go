package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/CosmoTheDev/feishu-notifier/internal/testutil"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		projectDir, previewFile, previewCategory, previewType, previewPayload = "", "", "", "", ""
		previewCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHTTPTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"":     0,
		"0":    0,
		"15":   15 * time.Second,
		"1m":   time.Minute,
		"-3s":  0,
		"soon": 0,
	}
	for in, want := range cases {
		if got := httpTimeout(in); got != want {
			t.Errorf("httpTimeout(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPreviewFile(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "cases.yaml")
	testutil.WriteFile(t, fixture, `
- name: pick one
  type: question.asked
  payload:
    options:
      - label: Rewrite
        description: start over
      - label: Patch
- name: chatter
  type: message.updated
- category: setup_test
`)

	out, err := execute(t, "", "preview", "--dir", dir, "--file", fixture)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"1. Rewrite - start over", "2. Patch", "(ignored", "Feishu 通知已启用。"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPreviewRejectsUnknownCategory(t *testing.T) {
	if _, err := execute(t, "", "preview", "--dir", t.TempDir(), "--category", "nope"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestHookDeliversAndListenSkipsWithoutConfig(t *testing.T) {
	var messages atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "tenant_access_token": "t", "expire": 7200})
	})
	mux.HandleFunc("/open-apis/im/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		messages.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]any{"message_id": "om"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FEISHU_APP_ID", "cli_a")
	t.Setenv("FEISHU_APP_SECRET", "secret")
	t.Setenv("FEISHU_RECEIVER_TYPE", "open_id")
	t.Setenv("FEISHU_RECEIVER_ID", "ou_1")
	t.Setenv("FEISHU_BASE_URL", srv.URL)

	if _, err := execute(t, `{"type":"session.idle","properties":{}}`, "hook", "--dir", dir); err != nil {
		t.Fatalf("hook: %v", err)
	}
	if got := messages.Load(); got != 1 {
		t.Fatalf("messages = %d, want 1", got)
	}

	// Without a receiver the config is invalid; listen must still exit 0.
	t.Setenv("FEISHU_RECEIVER_ID", "")
	stream := `{"type":"session.idle"}` + "\n\nnot json\n" + `{"type":"question.asked","payload":{}}` + "\n"
	if _, err := execute(t, stream, "listen", "--dir", dir); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if got := messages.Load(); got != 1 {
		t.Errorf("messages = %d after invalid config, want 1", got)
	}
}

func TestHookSwallowsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FEISHU_APP_ID", "cli_a")
	t.Setenv("FEISHU_APP_SECRET", "secret")
	t.Setenv("FEISHU_RECEIVER_TYPE", "chat_id")
	t.Setenv("FEISHU_RECEIVER_ID", "oc_1")
	t.Setenv("FEISHU_BASE_URL", srv.URL)

	dir := t.TempDir()
	if _, err := execute(t, `{"type":"permission.asked"}`, "hook", "--dir", dir); err != nil {
		t.Fatalf("hook should not fail on delivery error: %v", err)
	}
	if _, err := execute(t, "", "test", "--dir", dir); err == nil {
		t.Fatal("test should fail on delivery error")
	}
}
