package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// UpdatePrefix tags status lines on stdout
const UpdatePrefix = "VSCODE_PYTEST_UPDATE:"

// Status values of an Update
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Update is the status of one test as sent to the editor
type Update struct {
	NodeID   string   `json:"nodeid"`
	File     string   `json:"file"`
	Status   string   `json:"status"`
	Duration *float64 `json:"duration,omitempty"`
	Message  *string  `json:"message,omitempty"`
	When     *string  `json:"when,omitempty"`
}

// RunningUpdate is the update sent when a test starts
func RunningUpdate(item *types.TestItem) Update {
	return Update{NodeID: item.NodeID, File: item.File, Status: StatusRunning}
}

// Apply sets the status fields of a finished test
func (u *Update) Apply(report *types.TestReport) {
	switch {
	case report.WasXFail:
		u.Status = StatusSkipped
	case report.Passed():
		u.Status = StatusPassed
	case report.Skipped():
		u.Status = StatusSkipped
	default:
		u.Status = StatusFailed
	}
	duration := report.Duration.Seconds()
	u.Duration = &duration
	when := string(report.When)
	u.When = &when
	u.Message = nil
	if u.Status == StatusFailed {
		msg := report.LongRepr
		u.Message = &msg
	}
}

// MarshalLine encodes the update as one tagged line, newline included
func (u Update) MarshalLine() ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	line := make([]byte, 0, len(UpdatePrefix)+len(data)+1)
	line = append(line, UpdatePrefix...)
	line = append(line, data...)
	return append(line, '\n'), nil
}

// ParseUpdateLine decodes a tagged line. ok is false for lines without the tag.
func ParseUpdateLine(line []byte) (update Update, ok bool, err error) {
	line = bytes.TrimRight(line, "\r\n")
	payload, found := bytes.CutPrefix(line, []byte(UpdatePrefix))
	if !found {
		return Update{}, false, nil
	}
	if err := json.Unmarshal(payload, &update); err != nil {
		return Update{}, true, fmt.Errorf("invalid update payload: %w", err)
	}
	return update, true, nil
}
