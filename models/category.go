package models

// Category is the notification classification that drives title and reason text.
type Category string

const (
	CategoryInteractionRequired  Category = "interaction_required"
	CategoryPermissionRequired   Category = "permission_required"
	CategoryCommandArgsRequired  Category = "command_args_required"
	CategoryConfirmationRequired Category = "confirmation_required"
	CategorySessionIdle          Category = "session_idle"
	CategoryQuestionAsked        Category = "question_asked"
	CategorySetupTest            Category = "setup_test"
)

// Reason describes why a notification of a given category was sent.
type Reason struct {
	Label          string
	Description    string
	RequiresAction bool
}

var titles = map[Category]string{
	CategoryInteractionRequired:  "需要交互",
	CategoryPermissionRequired:   "需要权限确认",
	CategoryCommandArgsRequired:  "需要补充参数",
	CategoryConfirmationRequired: "需要确认",
	CategorySessionIdle:          "OpenCode 闲暇",
	CategoryQuestionAsked:        "需要选择方案",
	CategorySetupTest:            "Feishu 通知测试",
}

var reasons = map[Category]Reason{
	CategorySessionIdle: {
		Label:          "闲暇等待",
		Description:    "OpenCode 已完成当前任务，等待你的下一步指示。",
		RequiresAction: true,
	},
	CategoryPermissionRequired: {
		Label:          "需要权限",
		Description:    "OpenCode 需要访问文件权限才能继续。",
		RequiresAction: true,
	},
	CategoryQuestionAsked: {
		Label:          "需要选择",
		Description:    "OpenCode 提供了多个方案，需要你选择一个。",
		RequiresAction: true,
	},
	CategoryInteractionRequired: {
		Label:          "需要输入",
		Description:    "OpenCode 需要你提供额外信息。",
		RequiresAction: true,
	},
	CategoryCommandArgsRequired: {
		Label:          "参数缺失",
		Description:    "命令需要额外参数才能执行。",
		RequiresAction: true,
	},
	CategoryConfirmationRequired: {
		Label:          "需要确认",
		Description:    "OpenCode 需要你确认是否继续操作。",
		RequiresAction: true,
	},
	CategorySetupTest: {
		Label:       "测试通知",
		Description: "Feishu 通知功能测试。",
	},
}

// AllCategories lists every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryInteractionRequired,
		CategoryPermissionRequired,
		CategoryCommandArgsRequired,
		CategoryConfirmationRequired,
		CategorySessionIdle,
		CategoryQuestionAsked,
		CategorySetupTest,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := titles[c]
	return ok
}

// Title returns the fixed display title, or the raw value for unknown categories.
func (c Category) Title() string {
	if t, ok := titles[c]; ok {
		return t
	}
	return string(c)
}

// Reason returns the fixed reason text for c.
func (c Category) Reason() (Reason, bool) {
	r, ok := reasons[c]
	return r, ok
}

// ParseCategory converts a user-supplied string to a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}
