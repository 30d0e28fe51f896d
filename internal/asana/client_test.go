package asana

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewSource("test-key")
	s.Client.SetBaseURL(srv.URL)
	return s
}

func TestClientSendsBasicAuth(t *testing.T) {
	var gotAuth string
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data": []}`))
	})

	_, err := s.Workspaces(context.Background())
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("test-key:"))
	assert.Equal(t, want, gotAuth)
}

func TestWorkspacesAndProjects(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/workspaces":
			w.Write([]byte(`{"data": [{"id": 1337, "name": "Main"}]}`))
		case strings.HasSuffix(r.URL.Path, "/projects"):
			w.Write([]byte(`{"data": [{"id": 10, "name": "Core"}, {"id": 11, "name": "Website"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	workspaces, err := s.Workspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "1337", workspaces[0].ID)
	assert.Equal(t, "Main", workspaces[0].Name)

	projects, err := s.Projects(context.Background(), "1337")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Core", projects[0].Name)
}

func TestTaskDetail(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {
			"id": 99,
			"name": "Ship X",
			"completed": true,
			"completed_at": "2012-07-10T17:15:13.000Z",
			"assignee": {"id": 7, "name": "Alice"}
		}}`))
	})

	task, err := s.Task(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, "99", task.ID)
	assert.Equal(t, "Ship X", task.Name)
	assert.True(t, task.Completed)
	assert.Equal(t, "2012-07-10T17:15:13.000Z", task.CompletedAt)
	assert.Equal(t, "Alice", task.Assignee)
}

func TestTaskWithoutAssignee(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"id": 99, "name": "Orphan", "completed": true, "completed_at": "", "assignee": null}}`))
	})

	task, err := s.Task(context.Background(), "99")
	require.NoError(t, err)
	assert.Empty(t, task.Assignee)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors": [{"message": "Not Authorized"}]}`))
	})

	err := s.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
