package event

import "github.com/CosmoTheDev/feishu-notifier/models"

// StatusChangeType is inspected for a nested idle status before the table lookup.
const StatusChangeType = "session.status"

// table maps raw event types to categories. Anything not listed is ignored.
var table = map[string]models.Category{
	"permission.asked":    models.CategoryPermissionRequired,
	"permission.updated":  models.CategoryPermissionRequired,
	"tui.prompt.append":   models.CategoryInteractionRequired,
	"tui.command.execute": models.CategoryCommandArgsRequired,
	"tui.toast.show":      models.CategoryConfirmationRequired,
	"question.asked":      models.CategoryQuestionAsked,
	"session.idle":        models.CategorySessionIdle,
}

// Table returns a copy of the raw type to category table.
func Table() map[string]models.Category {
	out := make(map[string]models.Category, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Classify maps a raw event to a notification category.
// ok is false for events that should be dropped; that is the common case.
func Classify(rawType string, payload any) (category models.Category, ok bool) {
	if rawType == StatusChangeType && isIdleStatus(payload) {
		return models.CategorySessionIdle, true
	}
	category, ok = table[rawType]
	return category, ok
}

// isIdleStatus accepts {"status": "idle"} and {"status": {"type": "idle"}}.
func isIdleStatus(payload any) bool {
	m, ok := asMap(payload)
	if !ok {
		return false
	}
	switch st := m["status"].(type) {
	case string:
		return st == "idle"
	default:
		nested, ok := asMap(st)
		if !ok {
			return false
		}
		t, _ := nested["type"].(string)
		return t == "idle"
	}
}
