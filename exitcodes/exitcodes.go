// Package exitcodes defines the standard exit codes used by op-reporter.
package exitcodes

// Exit code constants used by op-reporter
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all tests pass successfully
// * TestFailure (1): Used when one or more tests or packages fail
// * RuntimeErr (2): Used for runtime errors such as unwritable report directories or a crashed go test
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
