package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
)

var configProject bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and manage the Feishu configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := config.Resolve(configOptions())
		if res.Config == nil {
			return res.Err
		}
		out := struct {
			config.Config
			Sources []string `json:"sources"`
			Error   string   `json:"error,omitempty"`
		}{Config: res.Config.Redacted(), Sources: res.Sources}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := configFilePath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := configFilePath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			// Seed an empty skeleton so the editor shows the expected keys.
			if err := config.Save(&config.Config{}, p); err != nil {
				return err
			}
		}
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "nano"
		}
		fmt.Printf("Opening %s with %s...\n", p, editor)
		c := exec.Command(editor, p) // #nosec G204 -- editor is from $EDITOR env var, intentional user-controlled binary
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.PersistentFlags().BoolVar(&configProject, "project", false,
		"use the project-local .opencode/feishu-notifier.json")
	configCmd.AddCommand(configShowCmd, configPathCmd, configEditCmd)
}

func configFilePath() (string, error) {
	if configProject {
		dir := projectDir
		if dir == "" {
			dir = "."
		}
		return config.ProjectPath(dir), nil
	}
	return config.GlobalPath()
}
