package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
	"github.com/CosmoTheDev/feishu-notifier/internal/feishu"
	"github.com/CosmoTheDev/feishu-notifier/internal/notify"
	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	verbose    bool
	gitBackend string
	projectDir string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "feishu-notifier",
	Short: "Forward OpenCode session events to Feishu",
	Long: `feishu-notifier turns OpenCode events that need your attention
(permission prompts, questions, idle sessions) into Feishu messages with
project, branch and progress context.

Get started:
  feishu-notifier onboard    Interactive setup wizard
  feishu-notifier doctor     Verify configuration and credentials
  feishu-notifier test       Send a test notification
  feishu-notifier hook       Handle one event from stdin
  feishu-notifier listen     Handle a stream of events from stdin`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")
	rootCmd.PersistentFlags().StringVar(&gitBackend, "git-backend", "gogit",
		"git backend: gogit (built in) or git (system binary)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "",
		"project directory (default: current directory)")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		onboardCmd,
		hookCmd,
		listenCmd,
		previewCmd,
		testCmd,
		configCmd,
		doctorCmd,
	)
}

// initLogging sends logs to stderr; stdout is reserved for command output.
func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
	slog.Debug("Verbose logging enabled")
}

func configOptions() config.Options {
	return config.Options{ProjectDir: projectDir}
}

func newVCS() vcs.Client {
	return vcs.New(gitBackend)
}

func newPipeline() *notify.Pipeline {
	return notify.New(newVCS(), notify.WithDir(projectDir))
}

// resolveTarget loads the configuration and builds the Feishu target.
func resolveTarget() notify.Target {
	return notify.TargetFrom(config.Resolve(configOptions()), feishuOptions()...)
}

func feishuOptions() []feishu.Option {
	return []feishu.Option{feishu.WithHTTPClient(newHTTPClient())}
}

// newHTTPClient honours FEISHU_HTTP_TIMEOUT, either a Go duration ("30s")
// or a number of seconds. Unset or 0 means no timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout(os.Getenv("FEISHU_HTTP_TIMEOUT"))}
}

func httpTimeout(v string) time.Duration {
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	slog.Warn("ignoring invalid FEISHU_HTTP_TIMEOUT", "value", v)
	return 0
}
