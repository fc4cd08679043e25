package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/autoflow/pkg/persistence/memory"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
)

const validDefinition = `
name: Notify editors
trigger: post_published
enabled: true
actions:
  - type: send_email
    config:
      to: editor@example.com
      subject: "New post: {{post_title}}"
      body: "{{post_title}} was published."
`

const invalidDefinition = `{
  "name": "Broken",
  "trigger": "nope",
  "actions": [{"type": "launch_rocket", "config": {}}]
}`

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestValidateFiles(t *testing.T) {
	valid := writeDefinition(t, "valid.yaml", validDefinition)
	invalid := writeDefinition(t, "invalid.json", invalidDefinition)

	t.Run("all valid", func(t *testing.T) {
		var out bytes.Buffer

		err := validateFiles(&out, newOfflineValidator(), []string{valid})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Workflow: Notify editors")
		assert.Contains(t, out.String(), "✅ VALID")
		assert.Contains(t, out.String(), "Valid: 1")
	})

	t.Run("reports every problem", func(t *testing.T) {
		var out bytes.Buffer

		err := validateFiles(&out, newOfflineValidator(), []string{valid, invalid})
		require.ErrorIs(t, err, ErrInvalidDefinition)
		assert.Contains(t, out.String(), `unknown trigger "nope"`)
		assert.Contains(t, out.String(), `unknown action "launch_rocket"`)
		assert.Contains(t, out.String(), "Invalid: 1")
	})

	t.Run("unreadable file", func(t *testing.T) {
		var out bytes.Buffer

		err := validateFiles(&out, newOfflineValidator(), []string{filepath.Join(t.TempDir(), "missing.json")})
		require.ErrorIs(t, err, ErrInvalidDefinition)
		assert.Contains(t, out.String(), "❌ INVALID")
	})
}

func newTestRoot(out *bytes.Buffer, commands ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name:     "autoflow",
		Writer:   out,
		Commands: commands,
	}
}

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer

	err := newTestRoot(&out, NewValidateCommand()).
		Run(context.Background(), []string{"autoflow", "validate", writeDefinition(t, "valid.yml", validDefinition)})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✅ VALID")

	err = newTestRoot(&out, NewValidateCommand()).Run(context.Background(), []string{"autoflow", "validate"})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestImportFiles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence().WorkflowRepository()
	repo := workflow.NewRepository(store, newOfflineValidator())

	var out bytes.Buffer

	require.NoError(t, importFiles(ctx, &out, repo, []string{writeDefinition(t, "valid.yaml", validDefinition)}))
	assert.Contains(t, out.String(), "Imported Notify editors")

	workflows, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.NotEmpty(t, workflows[0].ID)

	err = importFiles(ctx, &out, repo, []string{writeDefinition(t, "invalid.json", invalidDefinition)})
	require.Error(t, err)

	var validationErr *workflow.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", raw: "", want: map[string]any{}},
		{name: "object", raw: `{"post_id": 7}`, want: map[string]any{"post_id": float64(7)}},
		{name: "not an object", raw: `[1, 2]`, wantErr: true},
		{name: "malformed", raw: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePayload(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatchCommand_RequiresTrigger(t *testing.T) {
	err := newTestRoot(&bytes.Buffer{}, NewDispatchCommand()).
		Run(context.Background(), []string{"autoflow", "dispatch", "--database-url", "memory://"})
	assert.ErrorIs(t, err, ErrMissingTrigger)
}
