package asana

import (
	"context"

	"github.com/lvanheel/teamdigest/internal/report"
)

// Source adapts the Asana client to the report pipeline's TaskSource.
type Source struct {
	Client *Client
}

func NewSource(apiKey string) *Source {
	return &Source{Client: NewClient(apiKey)}
}

var _ report.TaskSource = (*Source)(nil)

func (s *Source) Name() string {
	return "Asana"
}

func (s *Source) HealthCheck(ctx context.Context) error {
	return s.Client.HealthCheck(ctx)
}

func (s *Source) Workspaces(ctx context.Context) ([]report.Workspace, error) {
	raw, err := s.Client.Workspaces(ctx)
	if err != nil {
		return nil, err
	}
	workspaces := make([]report.Workspace, 0, len(raw))
	for _, w := range raw {
		workspaces = append(workspaces, report.Workspace{ID: w.ID.String(), Name: w.Name})
	}
	return workspaces, nil
}

func (s *Source) Projects(ctx context.Context, workspaceID string) ([]report.Project, error) {
	raw, err := s.Client.Projects(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	projects := make([]report.Project, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, report.Project{ID: p.ID.String(), Name: p.Name})
	}
	return projects, nil
}

func (s *Source) Tasks(ctx context.Context, projectID string) ([]report.TaskRef, error) {
	raw, err := s.Client.Tasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	refs := make([]report.TaskRef, 0, len(raw))
	for _, t := range raw {
		refs = append(refs, report.TaskRef{ID: t.ID.String(), Name: t.Name})
	}
	return refs, nil
}

func (s *Source) Task(ctx context.Context, taskID string) (report.Task, error) {
	raw, err := s.Client.Task(ctx, taskID)
	if err != nil {
		return report.Task{}, err
	}
	task := report.Task{
		ID:          raw.ID.String(),
		Name:        raw.Name,
		Completed:   raw.Completed,
		CompletedAt: raw.CompletedAt,
	}
	if raw.Assignee != nil {
		task.Assignee = raw.Assignee.Name
	}
	return task, nil
}
