package config

import (
	"errors"
	"fmt"
	"strings"
)

// ReceiverType selects how Feishu interprets ReceiverID.
type ReceiverType string

const (
	ReceiverUserID ReceiverType = "user_id"
	ReceiverOpenID ReceiverType = "open_id"
	ReceiverChatID ReceiverType = "chat_id"
)

// ReceiverTypes lists the accepted receiver types.
var ReceiverTypes = []ReceiverType{ReceiverUserID, ReceiverOpenID, ReceiverChatID}

// Valid reports whether r is one of ReceiverTypes.
func (r ReceiverType) Valid() bool {
	for _, t := range ReceiverTypes {
		if r == t {
			return true
		}
	}
	return false
}

// Config holds the Feishu delivery settings.
// Serialised to ~/.config/opencode/feishu-notifier.json.
type Config struct {
	AppID        string       `mapstructure:"appId"        json:"appId"`
	AppSecret    string       `mapstructure:"appSecret"    json:"appSecret"`
	ReceiverType ReceiverType `mapstructure:"receiverType" json:"receiverType"`
	ReceiverID   string       `mapstructure:"receiverId"   json:"receiverId"`
	// BaseURL overrides the Feishu open platform endpoint (e.g. Lark international).
	BaseURL string `mapstructure:"baseUrl" json:"baseUrl,omitempty"`
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = []struct {
	Key string
	Env string
}{
	{"appId", "FEISHU_APP_ID"},
	{"appSecret", "FEISHU_APP_SECRET"},
	{"receiverType", "FEISHU_RECEIVER_TYPE"},
	{"receiverId", "FEISHU_RECEIVER_ID"},
	{"baseUrl", "FEISHU_BASE_URL"},
}

// EnvVar returns the environment variable bound to key, or "".
func EnvVar(key string) string {
	for _, k := range envKeys {
		if k.Key == key {
			return k.Env
		}
	}
	return ""
}

// ErrMissingKeys is matched by MissingKeysError.
var ErrMissingKeys = errors.New("missing config keys")

// ErrInvalidReceiverType is returned when receiverType is not one of ReceiverTypes.
var ErrInvalidReceiverType = errors.New("invalid receiverType")

// MissingKeysError lists the required keys that ended up empty.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	parts := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		parts[i] = fmt.Sprintf("%s (%s)", k, EnvVar(k))
	}
	return "missing config keys: " + strings.Join(parts, ", ")
}

func (e *MissingKeysError) Is(target error) bool { return target == ErrMissingKeys }

// Validate checks that all four required keys are set and the receiver
// type is known.
func (c *Config) Validate() error {
	var missing []string
	if c.AppID == "" {
		missing = append(missing, "appId")
	}
	if c.AppSecret == "" {
		missing = append(missing, "appSecret")
	}
	if c.ReceiverType == "" {
		missing = append(missing, "receiverType")
	}
	if c.ReceiverID == "" {
		missing = append(missing, "receiverId")
	}
	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}
	if !c.ReceiverType.Valid() {
		names := make([]string, len(ReceiverTypes))
		for i, t := range ReceiverTypes {
			names[i] = string(t)
		}
		return fmt.Errorf("%w: %q, expected one of %s", ErrInvalidReceiverType, c.ReceiverType, strings.Join(names, ", "))
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.AppID = Mask(c.AppID)
	c.AppSecret = Mask(c.AppSecret)
	c.ReceiverID = Mask(c.ReceiverID)
	return c
}

// Mask keeps the first and last four characters of long values.
func Mask(v string) string {
	r := []rune(v)
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 8:
		return strings.Repeat("*", len(r))
	default:
		return string(r[:4]) + strings.Repeat("*", len(r)-8) + string(r[len(r)-4:])
	}
}
