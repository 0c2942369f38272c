package models

import "time"

// ProjectContext describes the project a notification originates from.
// It is built fresh for every notification and never mutated afterwards.
type ProjectContext struct {
	ProjectName string `json:"project_name"`
	WorkingDir  string `json:"working_dir"` // absolute
	IsGitRepo   bool   `json:"is_git_repo"`
	Branch      string `json:"branch,omitempty"`   // empty = unknown / detached
	RepoURL     string `json:"repo_url,omitempty"` // web URL of origin, empty = none
}

// FileChanges counts working tree changes reported by git status.
type FileChanges struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`
}

// Empty reports whether no counter is set.
func (f FileChanges) Empty() bool {
	return f.Added == 0 && f.Modified == 0 && f.Deleted == 0
}

// ProgressInfo summarises what just happened in the session.
type ProgressInfo struct {
	Timestamp   time.Time    `json:"timestamp"`
	LastAction  string       `json:"last_action"`
	CurrentTask string       `json:"current_task,omitempty"`
	FileChanges *FileChanges `json:"file_changes,omitempty"` // nil when unavailable or clean
}

// MessageContext is everything the composer needs to render one notification.
type MessageContext struct {
	Project      ProjectContext
	Progress     ProgressInfo
	Category     Category
	Payload      any    // decoded event payload, opaque
	OriginalType string // raw event type, may be empty
}

// RenderedMessage is the final text handed to the delivery client.
type RenderedMessage struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}
