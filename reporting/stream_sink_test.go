package reporting

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func taggedLines(t *testing.T, out string) []Update {
	t.Helper()
	var updates []Update
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		u, ok, err := ParseUpdateLine([]byte(line))
		require.NoError(t, err)
		require.True(t, ok, "untagged line %q", line)
		updates = append(updates, u)
	}
	return updates
}

func TestStreamSink_StartThenPass(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf)
	rc, _ := newRunContext(t, t.TempDir())

	item := &types.TestItem{NodeID: "pkg::TestA", File: "pkg/a_test.go"}
	require.NoError(t, sink.OnTestStart(rc, item))
	require.NoError(t, sink.OnTestReport(rc, callReport("pkg::TestA", types.OutcomePassed, 250*time.Millisecond)))

	updates := taggedLines(t, buf.String())
	require.Len(t, updates, 2)

	assert.Equal(t, Update{NodeID: "pkg::TestA", File: "pkg/a_test.go", Status: StatusRunning}, updates[0])
	assert.Equal(t, StatusPassed, updates[1].Status)
	assert.Equal(t, "pkg/a_test.go", updates[1].File)
	require.NotNil(t, updates[1].Duration)
	assert.Equal(t, 0.25, *updates[1].Duration)
	require.NotNil(t, updates[1].When)
	assert.Equal(t, "call", *updates[1].When)
	assert.Nil(t, updates[1].Message)
}

func TestStreamSink_RunningLineShape(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf)
	rc, _ := newRunContext(t, t.TempDir())
	require.NoError(t, sink.OnTestStart(rc, &types.TestItem{NodeID: "pkg::TestA", File: "pkg"}))

	assert.Equal(t, UpdatePrefix+`{"nodeid":"pkg::TestA","file":"pkg","status":"running"}`+"\n", buf.String())
}

func TestStreamSink_Statuses(t *testing.T) {
	tests := []struct {
		name        string
		report      *types.TestReport
		wantStatus  string
		wantMessage bool
	}{
		{
			name:       "skipped",
			report:     callReport("pkg::TestA", types.OutcomeSkipped, 0),
			wantStatus: StatusSkipped,
		},
		{
			name:        "failed",
			report:      &types.TestReport{NodeID: "pkg::TestA", When: types.PhaseCall, Outcome: types.OutcomeFailed, LongRepr: "boom"},
			wantStatus:  StatusFailed,
			wantMessage: true,
		},
		{
			name:       "xfail failed",
			report:     &types.TestReport{NodeID: "pkg::TestA", When: types.PhaseCall, Outcome: types.OutcomeFailed, WasXFail: true},
			wantStatus: StatusSkipped,
		},
		{
			name:       "xfail passed",
			report:     &types.TestReport{NodeID: "pkg::TestA", When: types.PhaseCall, Outcome: types.OutcomePassed, WasXFail: true},
			wantStatus: StatusSkipped,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewStreamSink(&buf)
			rc, _ := newRunContext(t, t.TempDir())
			require.NoError(t, sink.OnTestStart(rc, &types.TestItem{NodeID: "pkg::TestA", File: "pkg"}))
			require.NoError(t, sink.OnTestReport(rc, tt.report))

			updates := taggedLines(t, buf.String())
			require.Len(t, updates, 2)
			assert.Equal(t, tt.wantStatus, updates[1].Status)
			if tt.wantMessage {
				require.NotNil(t, updates[1].Message)
				assert.Equal(t, "boom", *updates[1].Message)
			} else {
				assert.Nil(t, updates[1].Message)
			}
		})
	}
}

func TestStreamSink_IgnoresOtherPhases(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf)
	rc, _ := newRunContext(t, t.TempDir())
	require.NoError(t, sink.OnTestReport(rc, &types.TestReport{NodeID: "pkg", When: types.PhaseSetup, Outcome: types.OutcomePassed}))
	require.NoError(t, sink.OnTestReport(rc, &types.TestReport{NodeID: "pkg", When: types.PhaseTeardown, Outcome: types.OutcomeFailed}))
	assert.Empty(t, buf.String())
}

func TestStreamSink_InterleavedTests(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf)
	rc, _ := newRunContext(t, t.TempDir())
	require.NoError(t, sink.OnTestStart(rc, &types.TestItem{NodeID: "pkg::TestA", File: "pkg"}))
	require.NoError(t, sink.OnTestStart(rc, &types.TestItem{NodeID: "pkg::TestB", File: "pkg"}))
	report := callReport("pkg::TestA", types.OutcomePassed, 0)
	report.Location = "pkg/a_test.go"
	require.NoError(t, sink.OnTestReport(rc, report))

	updates := taggedLines(t, buf.String())
	require.Len(t, updates, 3)
	assert.Equal(t, "pkg::TestA", updates[2].NodeID)
	assert.Equal(t, "pkg/a_test.go", updates[2].File)
	assert.Equal(t, "pkg::TestA", sink.Current().NodeID)
}

func TestStreamSink_Flushes(t *testing.T) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	sink := NewStreamSink(w)
	rc, _ := newRunContext(t, t.TempDir())
	require.NoError(t, sink.OnTestStart(rc, &types.TestItem{NodeID: "pkg::TestA"}))

	// visible without an explicit flush by the caller
	assert.True(t, strings.HasPrefix(out.String(), UpdatePrefix))
}

func TestParseUpdateLine(t *testing.T) {
	u, ok, err := ParseUpdateLine([]byte("ok  \texample.com/mod\t0.1s\n"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Update{}, u)

	_, ok, err = ParseUpdateLine([]byte(UpdatePrefix + "{broken"))
	assert.True(t, ok)
	require.Error(t, err)

	msg := "a\nb"
	line, err := Update{NodeID: "p::T", File: "p", Status: StatusFailed, Message: &msg}.MarshalLine()
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(line, []byte("\n")), "payload must stay on one line")

	u, ok, err = ParseUpdateLine(line)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, u.Message)
	assert.Equal(t, msg, *u.Message)

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "duration")
}
