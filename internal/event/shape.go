package event

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Shape is one recognised piece of structure inside an event payload.
// A payload can carry several shapes at once; Shapes returns them in
// rendering order.
type Shape interface {
	shape()
}

// Permission is a single entry of a permission request.
type Permission struct {
	Path string `mapstructure:"path"`
	Type string `mapstructure:"type"`
}

// Option is one choice offered by a question.
type Option struct {
	Index       int    `mapstructure:"-"` // 1-based position in the original list
	Label       string `mapstructure:"label"`
	Description string `mapstructure:"description"`
}

// PermissionRequest lists the paths the agent wants to access.
type PermissionRequest struct{ Permissions []Permission }

// Question lists the options the user can pick from.
type Question struct{ Options []Option }

// Prompt is free-form input the agent is waiting for.
type Prompt struct{ Text string }

// MissingArgs names command arguments that still need a value.
type MissingArgs struct{ Args []string }

// Action describes an operation awaiting confirmation.
type Action struct{ Text string }

// Message is a generic human-readable note attached to the event.
type Message struct{ Text string }

// Unrecognized holds a payload that matched none of the known shapes.
type Unrecognized struct{ Raw any }

func (PermissionRequest) shape() {}
func (Question) shape()          {}
func (Prompt) shape()            {}
func (MissingArgs) shape()       {}
func (Action) shape()            {}
func (Message) shape()           {}
func (Unrecognized) shape()      {}

// Shapes inspects payload and returns every shape it recognises, in the
// order permissions, options, prompt, args, action, message. A non-nil
// payload with none of them yields a single Unrecognized.
func Shapes(payload any) []Shape {
	if payload == nil {
		return nil
	}
	m, ok := asMap(payload)
	if !ok {
		return []Shape{Unrecognized{Raw: payload}}
	}

	var out []Shape
	if list, ok := m["permissions"].([]any); ok {
		var perms []Permission
		for _, item := range list {
			var p Permission
			if decodeEntry(item, &p) && p.Path != "" {
				perms = append(perms, p)
			}
		}
		if len(perms) > 0 {
			out = append(out, PermissionRequest{Permissions: perms})
		}
	}
	if list, ok := m["options"].([]any); ok {
		var opts []Option
		for i, item := range list {
			var o Option
			if !decodeEntry(item, &o) || (o.Label == "" && o.Description == "") {
				continue
			}
			o.Index = i + 1
			opts = append(opts, o)
		}
		if len(opts) > 0 {
			out = append(out, Question{Options: opts})
		}
	}
	if text, ok := scalarText(m["prompt"]); ok {
		out = append(out, Prompt{Text: text})
	}
	if list, ok := m["args"].([]any); ok {
		var args []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				args = append(args, s)
			}
		}
		if len(args) > 0 {
			out = append(out, MissingArgs{Args: args})
		}
	}
	if s, ok := m["action"].(string); ok && s != "" {
		out = append(out, Action{Text: s})
	}
	if s, ok := m["message"].(string); ok && s != "" {
		out = append(out, Message{Text: s})
	}

	if len(out) == 0 {
		return []Shape{Unrecognized{Raw: payload}}
	}
	return out
}

// StringField returns the first of keys whose value is a string, even an
// empty one. ok is false when none of the keys holds a string.
func StringField(payload any, keys ...string) (value string, ok bool) {
	m, isMap := asMap(payload)
	if !isMap {
		return "", false
	}
	for _, k := range keys {
		if s, isStr := m[k].(string); isStr {
			return s, true
		}
	}
	return "", false
}

// decodeEntry converts scalar fields to the target's types, so a numeric
// type or description does not drop the whole entry.
func decodeEntry(item any, target any) bool {
	if _, ok := asMap(item); !ok {
		return false
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return false
	}
	return dec.Decode(item) == nil
}

// scalarText renders a truthy prompt value as text. Empty strings, zero,
// false and null are treated as absent.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		return "true", t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), t != 0
	case int:
		return strconv.Itoa(t), t != 0
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t), true
		}
		return string(b), true
	default:
		return fmt.Sprint(t), true
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}
