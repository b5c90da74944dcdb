package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
)

// IsSessionDir reports whether name is a session directory name
func IsSessionDir(name string) bool {
	_, err := time.Parse(logging.SessionTimeFormat, name)
	return err == nil
}

// LatestSession returns the newest session directory below reportDir, or ""
// when there is none
func LatestSession(reportDir string) (string, error) {
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		return "", fmt.Errorf("failed to read report directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && IsSessionDir(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(reportDir, names[len(names)-1]), nil
}

// RecordFiles returns the record files of a session directory in name order
func RecordFiles(sessionDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(sessionDir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
