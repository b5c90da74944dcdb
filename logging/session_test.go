package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	root := t.TempDir()
	started := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	session, err := NewSession(root, "", started, "run-1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "report"), session.ReportDir)
	assert.Equal(t, filepath.Join(root, "report", "20240309_140507"), session.Dir)
	assert.Equal(t, "run-1", session.RunID)
	assert.DirExists(t, session.Dir)
	assert.Equal(t, filepath.Join(session.Dir, "case.log"), session.Path(CaseLogFilename))
}

func TestNewSession_Idempotent(t *testing.T) {
	root := t.TempDir()
	started := time.Now()

	first, err := NewSession(root, "report", started, "")
	require.NoError(t, err)
	second, err := NewSession(root, "report", started, "")
	require.NoError(t, err)

	assert.Equal(t, first.Dir, second.Dir)
	assert.NotEqual(t, first.RunID, second.RunID, "run IDs are generated per session")
}

func TestNewSession_CustomReportDir(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	session, err := NewSession(root, abs, time.Now(), "x")
	require.NoError(t, err)
	assert.Equal(t, abs, session.ReportDir)

	session, err = NewSession(root, "out/reports", time.Now(), "x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "out", "reports"), session.ReportDir)
}

func TestNewSession_Errors(t *testing.T) {
	_, err := NewSession("", "report", time.Now(), "x")
	require.Error(t, err)

	// A file where the report directory should be
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "report"), []byte("x"), 0644))
	_, err = NewSession(root, "report", time.Now(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create directory")
}

func TestAsyncFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	af, err := NewAsyncFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, af.Name())

	buf := []byte("first\n")
	n, err := af.Write(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	copy(buf, "XXXXX\n") // the queued copy must be unaffected
	_, err = af.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, af.Close())

	_, err = af.Write([]byte("late"))
	require.Error(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(content))

	// Reopening appends
	af, err = NewAsyncFile(path)
	require.NoError(t, err)
	_, _ = af.Write([]byte("third\n"))
	require.NoError(t, af.Close())
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird\n", string(content))
}
