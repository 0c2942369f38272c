package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

var (
	previewCategory string
	previewType     string
	previewPayload  string
	previewFile     string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render notifications without sending them",
	Long: `Renders the message an event would produce, using the real project
and git context of --dir, and prints it to stdout. Nothing is sent.

Examples:
  feishu-notifier preview --category session_idle
  feishu-notifier preview --type permission.asked --payload '{"permissions":[{"path":"go.mod"}]}'
  feishu-notifier preview --file cases.yaml

A --file holds a YAML (or JSON) list of cases:
  - name: question
    type: question.asked
    payload:
      options: [{label: A}, {label: B}]`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewCategory, "category", "",
		"render as this category ("+categoryList()+")")
	previewCmd.Flags().StringVar(&previewType, "type", "",
		"raw event type, classified as hook would")
	previewCmd.Flags().StringVar(&previewPayload, "payload", "",
		"event payload as JSON")
	previewCmd.Flags().StringVarP(&previewFile, "file", "f", "",
		"YAML or JSON file with a list of cases")
	previewCmd.MarkFlagsMutuallyExclusive("file", "category")
	previewCmd.MarkFlagsMutuallyExclusive("file", "type")
	previewCmd.MarkFlagsMutuallyExclusive("file", "payload")
}

// previewCase is one entry of a --file fixture.
type previewCase struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Payload  any    `yaml:"payload"`
}

func runPreview(cmd *cobra.Command, args []string) error {
	var cases []previewCase
	switch {
	case previewFile != "":
		loaded, err := loadPreviewCases(previewFile)
		if err != nil {
			return err
		}
		cases = loaded
	case previewCategory != "" || previewType != "":
		c := previewCase{Type: previewType, Category: previewCategory}
		if previewPayload != "" {
			if err := json.Unmarshal([]byte(previewPayload), &c.Payload); err != nil {
				return fmt.Errorf("parsing --payload: %w", err)
			}
		}
		cases = []previewCase{c}
	default:
		for _, cat := range models.AllCategories() {
			cases = append(cases, previewCase{Category: string(cat)})
		}
	}

	p := newPipeline()
	out := cmd.OutOrStdout()
	for i, c := range cases {
		if i > 0 {
			fmt.Fprintln(out)
		}
		cat, err := c.category()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, headerStyle.Render(c.heading(cat)))
		if cat == "" {
			fmt.Fprintln(out, dimStyle.Render("(ignored: no notification for this event type)"))
			continue
		}
		msg, fallback := p.Render(context.Background(), event.Event{Type: c.Type, Payload: c.Payload}, cat)
		if fallback {
			fmt.Fprintln(out, warnStyle.Render("(fallback rendering)"))
		}
		fmt.Fprintln(out, msg.Text)
	}
	return nil
}

// category resolves the explicit category, or classifies Type. An empty
// result means the event would be ignored.
func (c previewCase) category() (models.Category, error) {
	if c.Category != "" {
		cat, ok := models.ParseCategory(c.Category)
		if !ok {
			return "", fmt.Errorf("unknown category %q (expected one of %s)", c.Category, categoryList())
		}
		return cat, nil
	}
	if c.Type == "" {
		return "", fmt.Errorf("case %q needs a type or a category", c.Name)
	}
	cat, ok := event.Classify(c.Type, c.Payload)
	if !ok {
		return "", nil
	}
	return cat, nil
}

func (c previewCase) heading(cat models.Category) string {
	parts := []string{}
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	if c.Type != "" {
		parts = append(parts, c.Type)
	}
	if cat != "" {
		parts = append(parts, string(cat))
	}
	return "── " + strings.Join(parts, " · ")
}

// loadPreviewCases reads a YAML list of cases. JSON is valid YAML.
func loadPreviewCases(path string) ([]previewCase, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var cases []previewCase
	if err := yaml.NewDecoder(r).Decode(&cases); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%s contains no cases", path)
	}
	return cases, nil
}

func categoryList() string {
	cats := models.AllCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
