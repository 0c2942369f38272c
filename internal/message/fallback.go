package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/CosmoTheDev/feishu-notifier/models"
)

const (
	// LegacyPrefix opens the first line of a fallback message.
	LegacyPrefix = "[OpenCode]"
	// PayloadBudget is the number of runes of payload JSON kept in a fallback message.
	PayloadBudget = 1200
	// Ellipsis marks a truncated payload.
	Ellipsis = "…"
)

// Legacy renders the minimal two-line form: prefixed title, raw event
// type and the JSON payload. It cannot fail.
func Legacy(c models.Category, rawType string, payload any) models.RenderedMessage {
	title := c.Title()
	if c == models.CategorySetupTest {
		return models.RenderedMessage{Title: title, Text: title + "\n" + SetupConfirmation}
	}

	lines := []string{LegacyPrefix + " " + title}
	if rawType != "" {
		lines = append(lines, "事件类型: "+rawType)
	}
	if detail := FormatPayload(payload); detail != "" {
		lines = append(lines, "详情: "+detail)
	}
	return models.RenderedMessage{Title: title, Text: strings.Join(lines, "\n")}
}

// FormatPayload serialises payload as indented JSON and truncates it to
// PayloadBudget runes plus Ellipsis. Empty values render as "".
func FormatPayload(payload any) string {
	if isEmpty(payload) {
		return ""
	}
	return Truncate(marshalPayload(payload), PayloadBudget)
}

// Truncate keeps the first budget runes of s and appends Ellipsis when
// anything was cut.
func Truncate(s string, budget int) string {
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	runes := []rune(s)
	return string(runes[:budget]) + Ellipsis
}

func marshalPayload(payload any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func isEmpty(payload any) bool {
	switch v := payload.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	}
	return false
}
