package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func TestFileSink_EndToEnd(t *testing.T) {
	root := t.TempDir()
	rc, printer := newRunContext(t, root)
	sink := NewFileSink(testLogger())

	require.NoError(t, sink.OnRunStart(rc))
	require.NoError(t, sink.OnTestReport(rc, callReport("test_mod.py::test_ok", types.OutcomePassed, 20*time.Millisecond)))

	sessionDir := filepath.Join(root, "report", rc.Started.Local().Format(logging.SessionTimeFormat))
	assert.Equal(t, sessionDir, sink.Dir())
	assert.Equal(t, []string{"Report dir: " + sessionDir}, printer.lines)

	data, err := os.ReadFile(filepath.Join(sessionDir, "test_mod.py.test_ok.json"))
	require.NoError(t, err)
	require.NoError(t, ValidateRecord(data))

	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "test_mod.py::test_ok", rec.NodeID)
	assert.Equal(t, "passed", rec.Outcome)
	assert.Equal(t, "call", rec.When)
	assert.InDelta(t, 0.02, rec.Duration, 1e-9)
	assert.InDelta(t, float64(time.Now().Unix()), rec.Timestamp, 60)
}

func TestFileSink_OneFilePerTest(t *testing.T) {
	rc, _ := newRunContext(t, t.TempDir())
	sink := NewFileSink(testLogger())
	require.NoError(t, sink.OnRunStart(rc))

	const n = 25
	outcomes := []types.Outcome{types.OutcomePassed, types.OutcomeFailed, types.OutcomeSkipped}
	for i := 0; i < n; i++ {
		report := callReport(fmt.Sprintf("pkg/sub::TestCase%d/sub_%d", i, i), outcomes[i%3], time.Duration(i)*time.Millisecond)
		require.NoError(t, sink.OnTestReport(rc, report))
	}
	assert.Equal(t, n, sink.Written())

	entries, err := os.ReadDir(sink.Dir())
	require.NoError(t, err)
	require.Len(t, entries, n)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".json"), e.Name())
		data, err := os.ReadFile(filepath.Join(sink.Dir(), e.Name()))
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		require.Len(t, fields, 5)
		assert.IsType(t, "", fields["nodeid"])
		assert.IsType(t, "", fields["outcome"])
		assert.IsType(t, float64(0), fields["duration"])
		assert.IsType(t, "", fields["when"])
		assert.IsType(t, float64(0), fields["timestamp"])
	}
}

func TestFileSink_IgnoresSetupAndTeardown(t *testing.T) {
	rc, _ := newRunContext(t, t.TempDir())
	sink := NewFileSink(testLogger())
	require.NoError(t, sink.OnRunStart(rc))

	for _, when := range []types.Phase{types.PhaseSetup, types.PhaseTeardown} {
		require.NoError(t, sink.OnTestReport(rc, &types.TestReport{NodeID: "pkg", When: when, Outcome: types.OutcomeFailed}))
	}
	entries, err := os.ReadDir(sink.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileSink_Overwrites(t *testing.T) {
	rc, _ := newRunContext(t, t.TempDir())
	sink := NewFileSink(testLogger())
	require.NoError(t, sink.OnRunStart(rc))

	require.NoError(t, sink.OnTestReport(rc, callReport("pkg::TestA", types.OutcomeFailed, 0)))
	require.NoError(t, sink.OnTestReport(rc, callReport("pkg::TestA", types.OutcomePassed, 0)))

	entries, err := os.ReadDir(sink.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(sink.Dir(), entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"passed"`)
}

func TestFileSink_SessionCreateFails(t *testing.T) {
	root := t.TempDir()
	// a file where the report directory should go
	require.NoError(t, os.WriteFile(filepath.Join(root, "report"), []byte("x"), 0644))
	rc, _ := newRunContext(t, root)

	err := NewFileSink(testLogger()).OnRunStart(rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create")
}

func TestFileSink_WriteFails(t *testing.T) {
	rc, _ := newRunContext(t, t.TempDir())
	sink := NewFileSink(testLogger())
	require.NoError(t, sink.OnRunStart(rc))
	require.NoError(t, os.RemoveAll(sink.Dir()))

	err := sink.OnTestReport(rc, callReport("pkg::TestA", types.OutcomePassed, 0))
	require.Error(t, err)
	assert.Equal(t, 0, sink.Written())
}

func TestFileSink_LongNodeIDs(t *testing.T) {
	rc, _ := newRunContext(t, t.TempDir())
	sink := NewFileSink(testLogger())
	require.NoError(t, sink.OnRunStart(rc))

	caseName := strings.Repeat("a_very_descriptive_table_case_", 10)
	nodeIDs := []string{
		"pkg::TestTable/" + caseName,
		"pkg::TestTable/" + caseName + "_other",
		"pkg::TestTable/" + caseName[:235],
	}
	for _, id := range nodeIDs {
		require.NoError(t, sink.OnTestReport(rc, callReport(id, types.OutcomePassed, time.Millisecond)))
	}

	entries, err := os.ReadDir(sink.Dir())
	require.NoError(t, err)
	require.Len(t, entries, len(nodeIDs))
	got := make(map[string]bool)
	for _, e := range entries {
		assert.LessOrEqual(t, len(e.Name()), 255)
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
		data, err := os.ReadFile(filepath.Join(sink.Dir(), e.Name()))
		require.NoError(t, err)
		var rec Record
		require.NoError(t, json.Unmarshal(data, &rec))
		got[rec.NodeID] = true
	}
	for _, id := range nodeIDs {
		assert.True(t, got[id], id)
	}
}
