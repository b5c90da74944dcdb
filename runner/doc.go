// Package runner is the host side of op-reporter: it turns a `go test -json`
// event stream into lifecycle hook calls on registered plugins.
//
// The main components are:
//   - PluginManager: Keeps plugins in registration order and dispatches hooks to them
//   - RunContext: Per-run state handed to every hook (session, printer, xfail rules)
//   - EventTranslator: Converts test2json events into test items and reports
//   - Source: Produces the event stream, either from a go test process or a reader
//   - Runner: Ties the above together for one run
package runner
