package report

import "context"

// Task is one completed-task record as fetched from the task source.
// Immutable once fetched; Project is filled in by the caller walking the
// project list, since the task detail endpoint does not echo it back.
type Task struct {
	ID          string
	Name        string
	Assignee    string
	Completed   bool
	CompletedAt string
	Project     string
}

type Workspace struct {
	ID   string
	Name string
}

type Project struct {
	ID   string
	Name string
}

// TaskRef is the shallow task listing entry; full records come from Task().
type TaskRef struct {
	ID   string
	Name string
}

// TaskSource is the external task-tracking API the pipeline reads from.
type TaskSource interface {
	Name() string
	Workspaces(ctx context.Context) ([]Workspace, error)
	Projects(ctx context.Context, workspaceID string) ([]Project, error)
	Tasks(ctx context.Context, projectID string) ([]TaskRef, error)
	Task(ctx context.Context, taskID string) (Task, error)
	HealthCheck(ctx context.Context) error
}
