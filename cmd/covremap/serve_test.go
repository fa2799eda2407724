package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/praetorian-inc/covremap/pkg/serve"
	"github.com/praetorian-inc/covremap/pkg/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServeCmd creates a fresh serve command for testing
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "serve",
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveDatastore, "datastore", "", "Datastore")
	return cmd
}

func executeServe(t *testing.T, input string, args ...string) []serve.Response {
	t.Helper()
	var out bytes.Buffer
	cmd := newServeCmd()
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var responses []serve.Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp serve.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServeCmd_ReadyAndClose(t *testing.T) {
	responses := executeServe(t, `{"type":"close"}`+"\n")

	require.Len(t, responses, 1)
	assert.Equal(t, "ready", responses[0].Type)
	assert.True(t, responses[0].Success)
}

func TestServeCmd_RemapAndSave(t *testing.T) {
	dir, covPath := writeFixture(t)
	dbPath := filepath.Join(dir, "runs.db")

	input := fmt.Sprintf(`{"type":"remap","payload":{"sources":[%q],"save":true}}`+"\n", covPath) +
		`{"type":"runs"}` + "\n"
	responses := executeServe(t, input, "--datastore", dbPath)

	require.Len(t, responses, 3)
	require.True(t, responses[1].Success, responses[1].Error)
	assert.Equal(t, "remap", responses[1].Type)

	var data serve.RemapData
	require.NoError(t, json.Unmarshal(responses[1].Data, &data))
	assert.NotEmpty(t, data.RunID)
	assert.Contains(t, data.Coverage, filepath.Join(dir, "app.ts"))
	assert.Equal(t, 50.0, data.Total.Statements.Pct)

	var runs serve.RunsData
	require.NoError(t, json.Unmarshal(responses[2].Data, &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, data.RunID, runs.Runs[0].ID)

	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetRun(data.RunID)
	assert.NoError(t, err)
}

func TestServeCmd_SaveWithoutDatastore(t *testing.T) {
	_, covPath := writeFixture(t)

	input := fmt.Sprintf(`{"type":"remap","payload":{"sources":[%q],"save":true}}`+"\n", covPath)
	responses := executeServe(t, input)

	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Contains(t, responses[1].Error, "no datastore")
}
