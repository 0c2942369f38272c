// Package message renders notification text. Compose builds the
// three-section message; Legacy is the minimal fallback used when
// composition fails.
package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/progress"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

const (
	// SetupConfirmation follows the title of a setup_test message.
	SetupConfirmation = "Feishu 通知已启用。"
	// ConfirmationWarning closes the reason section of confirmation_required.
	ConfirmationWarning = "⚠️ 此操作可能需要谨慎确认。"
)

// ErrUnknownCategory is returned by Compose for categories without reason text.
type ErrUnknownCategory struct {
	Category models.Category
}

func (e *ErrUnknownCategory) Error() string {
	return fmt.Sprintf("unknown notification category %q", e.Category)
}

// Compose renders mc as title, reason and progress sections separated by
// blank lines. setup_test skips the sections entirely.
func Compose(mc models.MessageContext) (models.RenderedMessage, error) {
	reason, ok := mc.Category.Reason()
	if !ok {
		return models.RenderedMessage{}, &ErrUnknownCategory{Category: mc.Category}
	}
	title := mc.Category.Title()

	if mc.Category == models.CategorySetupTest {
		return models.RenderedMessage{Title: title, Text: title + "\n" + SetupConfirmation}, nil
	}

	text := strings.Join([]string{
		TitleLine(mc.Project, mc.Category),
		ReasonSection(mc.Category, reason, mc.Payload),
		ProgressSection(mc.Project, mc.Progress),
	}, "\n\n")
	return models.RenderedMessage{Title: title, Text: text}, nil
}

// TitleLine renders "📦 [name] branch | title".
func TitleLine(p models.ProjectContext, c models.Category) string {
	var b strings.Builder
	b.WriteString("📦 [")
	b.WriteString(p.ProjectName)
	b.WriteString("]")
	if p.Branch != "" {
		b.WriteString(" ")
		b.WriteString(p.Branch)
	}
	b.WriteString(" | ")
	b.WriteString(c.Title())
	return b.String()
}

// ReasonSection explains why the notification was sent, followed by any
// details found in the payload.
func ReasonSection(c models.Category, r models.Reason, payload any) string {
	lines := []string{"🔔 原因：" + r.Label, r.Description}

	if details := Details(payload); len(details) > 0 {
		lines = append(lines, "")
		lines = append(lines, details...)
	}
	if c == models.CategoryConfirmationRequired {
		lines = append(lines, "", ConfirmationWarning)
	}
	return strings.Join(lines, "\n")
}

// Details turns the recognised payload shapes into bullet and numbered
// lines. A generic message is only used when nothing else matched.
func Details(payload any) []string {
	var lines []string
	var message string
	for _, s := range event.Shapes(payload) {
		switch v := s.(type) {
		case event.PermissionRequest:
			for _, p := range v.Permissions {
				lines = append(lines, "• "+p.Path)
			}
		case event.Question:
			for _, o := range v.Options {
				label := o.Label
				if label == "" {
					label = "选项 " + strconv.Itoa(o.Index)
				}
				line := strconv.Itoa(o.Index) + ". " + label
				if o.Description != "" {
					line += " - " + o.Description
				}
				lines = append(lines, line)
			}
		case event.Prompt:
			lines = append(lines, "• "+v.Text)
		case event.MissingArgs:
			for _, a := range v.Args {
				lines = append(lines, "• --"+a+": 需要提供值")
			}
		case event.Action:
			lines = append(lines, "• "+v.Text)
		case event.Message:
			message = v.Text
		case event.Unrecognized:
		}
	}
	if len(lines) == 0 && message != "" {
		lines = append(lines, "• "+message)
	}
	return lines
}

// ProgressSection renders the working directory, the progress lines and
// the repository address when known.
func ProgressSection(p models.ProjectContext, info models.ProgressInfo) string {
	lines := []string{"📊 进度摘要", "• 工作目录：" + p.WorkingDir}
	for _, line := range strings.Split(progress.Format(info), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if p.IsGitRepo && p.RepoURL != "" {
		lines = append(lines, "• 仓库地址："+p.RepoURL)
	}
	return strings.Join(lines, "\n")
}
