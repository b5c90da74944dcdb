package watch

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/ethereum-optimism/infra/op-reporter/reporting"
)

// RecordView is the part of a record file the watcher displays
type RecordView struct {
	NodeID   string
	Outcome  string
	Duration float64
	When     string
}

// ReadRecord loads and validates a record file
func ReadRecord(path string) (RecordView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RecordView{}, fmt.Errorf("failed to read record %s: %w", path, err)
	}
	return ParseRecord(data)
}

// ParseRecord validates a record document and extracts its fields
func ParseRecord(data []byte) (RecordView, error) {
	if err := reporting.ValidateRecord(data); err != nil {
		return RecordView{}, err
	}
	doc := gjson.ParseBytes(data)
	return RecordView{
		NodeID:   doc.Get("nodeid").String(),
		Outcome:  doc.Get("outcome").String(),
		Duration: doc.Get("duration").Float(),
		When:     doc.Get("when").String(),
	}, nil
}
