package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
	"github.com/CosmoTheDev/feishu-notifier/internal/feishu"
	"github.com/CosmoTheDev/feishu-notifier/internal/project"
)

var skipAuth bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration, git access and Feishu credentials",
	Long: `Checks every configuration layer, validates the merged settings,
inspects the project with the selected git backend and exchanges the app
credentials for a tenant token.

Use --skip-auth to stay offline.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&skipAuth, "skip-auth", false,
		"do not contact the Feishu API")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()
	allOK := true

	fmt.Fprintln(out, "=== feishu-notifier doctor ===")
	fmt.Fprintln(out)

	// Config layers
	opts := configOptions()
	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	globalPath, err := config.GlobalPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Config files:")
	for _, path := range []string{config.ProjectPath(dir), globalPath} {
		fmt.Fprintf(out, "  %-50s ... %s\n", path, checkConfigFile(path))
	}
	fmt.Fprintln(out)

	res := config.Resolve(opts)
	fmt.Fprint(out, "Merged config ............ ")
	switch {
	case res.OK():
		fmt.Fprintf(out, "OK (%s)\n", joinSources(res.Sources))
	default:
		fmt.Fprintf(out, "FAIL (%s)\n", res.Err)
		allOK = false
	}
	if res.Config != nil {
		printConfigSummary(out, *res.Config)
	}

	// Git
	fmt.Fprintln(out)
	client := newVCS()
	fmt.Fprintf(out, "Git backend .............. %s\n", client.Name())
	pc := project.NewExtractor(client).Extract(ctx, dir)
	fmt.Fprintf(out, "Project .................. %s (%s)\n", pc.ProjectName, pc.WorkingDir)
	fmt.Fprint(out, "Repository ............... ")
	switch {
	case !pc.IsGitRepo:
		fmt.Fprintln(out, "not a git repository (branch and remote omitted)")
	case pc.Branch == "":
		if _, err := client.Branch(ctx, pc.WorkingDir); err != nil {
			fmt.Fprintf(out, "WARN (%s)\n", err)
			allOK = false
		} else {
			fmt.Fprintln(out, "OK (detached HEAD)")
		}
	default:
		fmt.Fprintf(out, "OK (%s", pc.Branch)
		if pc.RepoURL != "" {
			fmt.Fprintf(out, ", %s", pc.RepoURL)
		}
		fmt.Fprintln(out, ")")
	}
	if pc.IsGitRepo {
		fmt.Fprint(out, "Working tree ............. ")
		if entries, err := client.Status(ctx, pc.WorkingDir); err != nil {
			fmt.Fprintf(out, "WARN (%s)\n", err)
		} else {
			fmt.Fprintf(out, "OK (%d changed paths)\n", len(entries))
		}
	}

	// Feishu
	fmt.Fprint(out, "\nFeishu token ............. ")
	switch {
	case skipAuth:
		fmt.Fprintln(out, "skipped (--skip-auth)")
	case !res.OK():
		fmt.Fprintln(out, "skipped (config invalid)")
	default:
		fc := feishu.New(*res.Config, feishuOptions()...)
		if tok, err := fc.TenantToken(ctx); err != nil {
			fmt.Fprintf(out, "FAIL (%s)\n", err)
			allOK = false
		} else {
			fmt.Fprintf(out, "OK (expires %s)\n", tok.Expiry.Format("15:04:05"))
		}
	}

	fmt.Fprintln(out)
	if allOK {
		fmt.Fprintln(out, successStyle.Render("All checks passed — notifications are ready."))
	} else {
		fmt.Fprintln(out, warnStyle.Render("Some checks failed — run 'feishu-notifier onboard' to fix."))
	}
	return nil
}

// checkConfigFile reports on a single config layer without merging it.
func checkConfigFile(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "not found"
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return "FAIL (" + err.Error() + ")"
	}
	// A common mistake is copying the opencode.json plugin block verbatim.
	if v.IsSet("feishuNotifier") {
		return "WARN (settings nested under \"feishuNotifier\"; move them to the top level)"
	}
	return fmt.Sprintf("OK (%d keys)", len(v.AllKeys()))
}

func printConfigSummary(out io.Writer, cfg config.Config) {
	r := cfg.Redacted()
	row := func(label, key, value string) {
		if value == "" {
			value = "missing (" + config.EnvVar(key) + ")"
		}
		fmt.Fprintf(out, "  %-13s %s\n", label, value)
	}
	row("App ID", "appId", r.AppID)
	row("App Secret", "appSecret", r.AppSecret)
	row("Receiver Type", "receiverType", string(r.ReceiverType))
	row("Receiver ID", "receiverId", r.ReceiverID)
	if cfg.BaseURL != "" {
		row("Base URL", "baseUrl", cfg.BaseURL)
	} else {
		row("Base URL", "baseUrl", feishu.DefaultBaseURL+" (default)")
	}
}

func joinSources(sources []string) string {
	if len(sources) == 0 {
		return "no sources"
	}
	return strings.Join(sources, " < ")
}
