package runner

import "time"

// Go test2json (TestEvent) action constants for JSON test output
// See https://cs.opensource.google/go/go/+/master:src/cmd/test2json/main.go;l=34-60
const (
	ActionStart       = "start"
	ActionRun         = "run"
	ActionPause       = "pause"
	ActionCont        = "cont"
	ActionPass        = "pass"
	ActionFail        = "fail"
	ActionSkip        = "skip"
	ActionOutput      = "output"
	ActionBench       = "bench"
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

// Test execution constants
const (
	// Default go binary name
	DefaultGoBinary = "go"

	// Test command arguments
	TestCommand  = "test"
	JSONFlag     = "-json"
	VerboseFlag  = "-v"
	TimeoutFlag  = "-timeout"
	CountFlag    = "-count"
	RunFlag      = "-run"
	DisableCache = "1"

	// Directory patterns
	AllPackagesPattern = "./..."

	// IncompleteMessage is the long representation of tests that started but never finished
	IncompleteMessage = "test did not complete"

	// DefaultTestTimeout is passed to go test when no timeout is configured
	DefaultTestTimeout = 10 * time.Minute
)
