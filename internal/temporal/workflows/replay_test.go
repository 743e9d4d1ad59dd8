package workflows

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	oatemporal "github.com/helixir/oa-metasearch/internal/temporal"
)

// historyDir resolves testdata/workflow_histories relative to this file.
func historyDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "testdata", "workflow_histories")
}

// TestReplayWorkflowHistory replays every captured history through the
// current HarvestWorkflow. It skips when no fixtures are present.
//
// Capture a history from a running cluster with:
//
//	temporal workflow show --workflow-id harvest-<index> --output json \
//	  > testdata/workflow_histories/<name>.json
func TestReplayWorkflowHistory(t *testing.T) {
	entries, err := os.ReadDir(historyDir())
	if err != nil {
		t.Skipf("no history directory: %v", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			files = append(files, filepath.Join(historyDir(), e.Name()))
		}
	}
	if len(files) == 0 {
		t.Skip("no workflow history fixtures")
	}

	for _, path := range files {
		name := filepath.Base(path)
		t.Run(name, func(t *testing.T) {
			replayer := worker.NewWorkflowReplayer()
			replayer.RegisterWorkflowWithOptions(HarvestWorkflow, workflow.RegisterOptions{Name: oatemporal.HarvestWorkflowName})
			require.NoError(t, replayer.ReplayWorkflowHistoryFromJSONFile(nil, path), "replay of %s is non-deterministic", name)
		})
	}
}
