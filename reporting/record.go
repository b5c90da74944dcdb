package reporting

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

//go:embed record.schema.json
var recordSchemaJSON string

var recordSchema = gojsonschema.NewStringLoader(recordSchemaJSON)

// Record is the JSON document written for every finished test
type Record struct {
	NodeID    string  `json:"nodeid"`
	Outcome   string  `json:"outcome"`
	Duration  float64 `json:"duration"`
	When      string  `json:"when"`
	Timestamp float64 `json:"timestamp"`
}

// NewRecord builds the record of a report finished at now
func NewRecord(report *types.TestReport, now time.Time) Record {
	return Record{
		NodeID:    report.NodeID,
		Outcome:   string(report.Outcome),
		Duration:  report.Duration.Seconds(),
		When:      string(report.When),
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}
}

// Marshal encodes the record as a single JSON document
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// RecordSchema returns the JSON schema record files conform to
func RecordSchema() string {
	return recordSchemaJSON
}

// ValidateRecord checks a record document against the record schema
func ValidateRecord(data []byte) error {
	result, err := gojsonschema.Validate(recordSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid record document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("record does not match schema: %s", strings.Join(msgs, "; "))
}
