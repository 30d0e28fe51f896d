package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teamdigest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `
asana_api_key: secret
reports:
  report1:
    name: Analytics Team
    frequency: weekly
    ignore_projects: [nourishment]
    team_members: [Alice, Carol]
    output:
      email:
        sender_name: Status Bot
        sender_email: bot@example.org
        recipients: [team@example.org]
        host: smtp.example.org
      wiki:
        url: https://wiki.example.org/w/api.php
        username: bot
        password: hunter2
        titles:
          All: Team/Status
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.AsanaAPIKey)
	assert.Equal(t, "templates", cfg.TemplateDir)

	require.Contains(t, cfg.Reports, "report1")
	rep := cfg.Reports["report1"]
	assert.Equal(t, "Analytics Team", rep.Name)
	assert.Equal(t, "weekly", rep.Frequency)
	assert.Equal(t, []string{"Alice", "Carol"}, rep.TeamMembers)
	assert.True(t, rep.KeepEmpty(), "empty sections are kept by default")
	assert.Len(t, rep.Output, 2)
}

func TestLoadRejectsBadFrequency(t *testing.T) {
	path := writeConfig(t, `
asana_api_key: secret
reports:
  report1:
    name: X
    frequency: fortnightly
    output:
      email:
        recipients: [a@example.org]
        host: localhost
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fortnightly")
}

func TestLoadRejectsUnknownOutputFormat(t *testing.T) {
	path := writeConfig(t, `
asana_api_key: secret
reports:
  report1:
    name: X
    frequency: weekly
    output:
      pigeon:
        coop: roof
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pigeon")
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	path := writeConfig(t, `
reports:
  report1:
    name: X
    frequency: weekly
    output:
      email:
        recipients: [a@example.org]
        host: localhost
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asana_api_key")
}

func TestLoadRejectsNonYAMLPath(t *testing.T) {
	_, err := Load("/tmp/teamdigest.conf")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestReportNamesFilterAndOrder(t *testing.T) {
	cfg := &Config{Reports: map[string]*Report{
		"report2":  {},
		"report1":  {},
		"defaults": {},
	}}
	assert.Equal(t, []string{"report1", "report2"}, cfg.ReportNames())
}

func TestKeepEmptyExplicitlyOff(t *testing.T) {
	path := writeConfig(t, `
asana_api_key: secret
reports:
  report1:
    name: X
    frequency: monthly
    keep_empty_sections: false
    output:
      excel:
        directory: /tmp/digests
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Reports["report1"].KeepEmpty())
}
