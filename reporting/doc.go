// Package reporting contains the plugins that publish test results: JSON
// record files for editors watching the report directory, tagged status
// lines on stdout, and the supporting capture, raw event, summary and
// metrics plugins.
package reporting
