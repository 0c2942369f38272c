package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/notify"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

var onboardProject bool

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Interactive setup wizard",
	Long: `Walks you through configuring the Feishu app credentials and the
receiver that notifications are sent to, writes the config file and
optionally sends a test message.

You need a Feishu custom app with the im:message:send_as_bot scope.`,
	Args: cobra.NoArgs,
	RunE: runOnboard,
}

func init() {
	onboardCmd.Flags().BoolVar(&onboardProject, "project", false,
		"write the project-local .opencode/feishu-notifier.json instead of the global file")
}

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7C3AED")).
	MarginBottom(1)

var successStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#10B981"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F59E0B"))

var dimStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6B7280"))

func runOnboard(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("  feishu-notifier — OpenCode notifications in Feishu"))

	cfgPath, err := onboardPath()
	if err != nil {
		return err
	}

	// Start from whatever is already configured, valid or not.
	cfg := &config.Config{ReceiverType: config.ReceiverUserID}
	if existing, _, _ := config.Load(configOptions()); existing != nil {
		cfg = existing
		if cfg.ReceiverType == "" {
			cfg.ReceiverType = config.ReceiverUserID
		}
	}

	receiverType := string(cfg.ReceiverType)
	receiverOptions := make([]huh.Option[string], 0, len(config.ReceiverTypes))
	for _, t := range config.ReceiverTypes {
		receiverOptions = append(receiverOptions, huh.NewOption(receiverLabel(t), string(t)))
	}
	sendTest := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("App ID").
				Description("Feishu open platform → your app → Credentials & Basic Info.").
				Placeholder("cli_...").
				Validate(required("App ID")).
				Value(&cfg.AppID),
			huh.NewInput().
				Title("App Secret").
				EchoMode(huh.EchoModePassword).
				Validate(required("App Secret")).
				Value(&cfg.AppSecret),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Receiver type").
				Description("How the receiver ID below should be interpreted.").
				Options(receiverOptions...).
				Value(&receiverType),
			huh.NewInput().
				Title("Receiver ID").
				Placeholder("ou_... / oc_... / user id").
				Validate(required("Receiver ID")).
				Value(&cfg.ReceiverID),
			huh.NewInput().
				Title("API base URL (optional)").
				Description("Leave blank for open.feishu.cn. Use https://open.larksuite.com for Lark.").
				Value(&cfg.BaseURL),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Send a test notification now?").
				Value(&sendTest),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println(dimStyle.Render("  Aborted, nothing saved."))
			return nil
		}
		return fmt.Errorf("onboarding form: %w", err)
	}

	cfg.ReceiverType = config.ReceiverType(receiverType)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, cfgPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println(successStyle.Render("  Config saved to: " + cfgPath))
	slog.Debug("Onboarding complete", "config", cfgPath)

	if sendTest {
		target := notify.TargetFrom(config.Result{Config: cfg}, feishuOptions()...)
		ev := event.Event{Type: string(models.CategorySetupTest)}
		res := newPipeline().HandleAs(context.Background(), ev, models.CategorySetupTest, target)
		if res.Outcome == notify.OutcomeDelivered {
			fmt.Println(successStyle.Render("  Test notification sent."))
		} else {
			fmt.Println(warnStyle.Render(fmt.Sprintf("  Test notification failed: %v", res.Err)))
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("  Next steps:"))
	fmt.Println(dimStyle.Render("    feishu-notifier doctor   — verify config, git access and credentials"))
	fmt.Println(dimStyle.Render("    feishu-notifier preview  — see what each notification looks like"))
	fmt.Println()
	return nil
}

func onboardPath() (string, error) {
	if onboardProject {
		dir := projectDir
		if dir == "" {
			dir = "."
		}
		return config.ProjectPath(dir), nil
	}
	return config.GlobalPath()
}

func receiverLabel(t config.ReceiverType) string {
	switch t {
	case config.ReceiverUserID:
		return "user_id — a user in your tenant"
	case config.ReceiverOpenID:
		return "open_id — a user, scoped to this app"
	case config.ReceiverChatID:
		return "chat_id — a group chat the bot is in"
	}
	return string(t)
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
