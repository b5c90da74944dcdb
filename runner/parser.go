package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// TestEvent represents a test event from go test -json output
type TestEvent struct {
	Time       time.Time
	Action     string
	Package    string
	ImportPath string `json:",omitempty"` // Set on build-output and build-fail events
	Test       string `json:",omitempty"`
	Elapsed    float64
	Output     string `json:",omitempty"`
}

// NodeResolver maps go test packages and test names to node IDs and files
type NodeResolver interface {
	NodeID(pkg, test string) string
	TestFile(pkg, test string) string
}

type testKey struct {
	pkg  string
	test string
}

type runningTest struct {
	item    *types.TestItem
	started time.Time
	output  *tailBuffer
}

// EventTranslator turns test2json events into hook calls
type EventTranslator struct {
	ctx      context.Context
	rc       *RunContext
	plugins  *PluginManager
	resolver NodeResolver
	tracer   trace.Tracer

	running  map[testKey]*runningTest
	order    []testKey // start order, for reporting unfinished tests
	packages map[string]*runningTest
	spans    map[string]trace.Span
	lastSeen time.Time // latest event time, stream clock rather than wall clock
	summary  *types.RunSummary
}

func NewEventTranslator(ctx context.Context, rc *RunContext, plugins *PluginManager, resolver NodeResolver, tracer trace.Tracer) *EventTranslator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &EventTranslator{
		ctx:      ctx,
		rc:       rc,
		plugins:  plugins,
		resolver: resolver,
		tracer:   tracer,
		running:  make(map[testKey]*runningTest),
		packages: make(map[string]*runningTest),
		spans:    make(map[string]trace.Span),
		summary:  &types.RunSummary{RunID: rc.RunID},
	}
}

// HandleLine processes one line of the event stream
func (t *EventTranslator) HandleLine(line []byte) error {
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	if err := t.plugins.RawEvent(t.rc, line); err != nil {
		return err
	}

	event, err := parseTestEvent(line)
	if err != nil {
		// go build errors and anything else printed around the JSON stream
		t.rc.Print(string(line))
		return nil
	}
	return t.HandleEvent(event)
}

// HandleEvent processes a decoded event
func (t *EventTranslator) HandleEvent(event TestEvent) error {
	if event.Time.After(t.lastSeen) {
		t.lastSeen = event.Time
	}
	switch event.Action {
	case ActionBuildOutput:
		t.printOutput(event.Output)
		return nil
	case ActionBuildFail:
		return nil
	}

	if event.Test == "" {
		return t.handlePackageEvent(event)
	}

	key := testKey{pkg: event.Package, test: event.Test}
	switch event.Action {
	case ActionRun:
		return t.startTest(key, event)
	case ActionOutput:
		t.printOutput(event.Output)
		if rt, ok := t.running[key]; ok {
			_, _ = rt.output.Write([]byte(event.Output))
		}
	case ActionPass, ActionFail, ActionSkip:
		return t.finishTest(key, event)
	}
	return nil
}

func (t *EventTranslator) handlePackageEvent(event TestEvent) error {
	switch event.Action {
	case ActionStart:
		nodeID := t.resolver.NodeID(event.Package, "")
		t.packages[event.Package] = &runningTest{
			item:    &types.TestItem{NodeID: nodeID, Package: event.Package, File: t.resolver.TestFile(event.Package, "")},
			started: event.Time,
			output:  newTailBuffer(0),
		}
		_, span := t.tracer.Start(t.ctx, "go test "+event.Package,
			trace.WithAttributes(attribute.String("package", event.Package)))
		t.spans[event.Package] = span

		return t.report(&types.TestReport{
			NodeID:   nodeID,
			Location: t.packages[event.Package].item.File,
			When:     types.PhaseSetup,
			Outcome:  types.OutcomePassed,
		})
	case ActionOutput:
		t.printOutput(event.Output)
		if pkg, ok := t.packages[event.Package]; ok {
			_, _ = pkg.output.Write([]byte(event.Output))
		}
	case ActionPass, ActionFail, ActionSkip:
		report := &types.TestReport{
			NodeID:   t.resolver.NodeID(event.Package, ""),
			Location: t.resolver.TestFile(event.Package, ""),
			When:     types.PhaseTeardown,
			Outcome:  outcomeFromAction(event.Action),
		}
		pkg, ok := t.packages[event.Package]
		report.Duration = eventDuration(event, pkg)
		if ok && report.Failed() {
			report.LongRepr = strings.TrimSpace(pkg.output.String())
		}
		delete(t.packages, event.Package)

		if span, ok := t.spans[event.Package]; ok {
			if report.Failed() {
				span.SetStatus(codes.Error, "package failed")
			}
			span.End()
			delete(t.spans, event.Package)
		}
		return t.report(report)
	}
	return nil
}

func (t *EventTranslator) startTest(key testKey, event TestEvent) error {
	item := &types.TestItem{
		NodeID:  t.resolver.NodeID(key.pkg, key.test),
		File:    t.resolver.TestFile(key.pkg, key.test),
		Package: key.pkg,
		Name:    key.test,
	}
	if _, exists := t.running[key]; !exists {
		t.order = append(t.order, key)
	}
	t.running[key] = &runningTest{
		item:    item,
		started: event.Time,
		output:  newTailBuffer(0),
	}
	return t.plugins.TestStart(t.rc, item)
}

func (t *EventTranslator) finishTest(key testKey, event TestEvent) error {
	rt, ok := t.running[key]
	if !ok {
		// Terminal event without a run event, e.g. a truncated stream
		rt = &runningTest{
			item: &types.TestItem{
				NodeID:  t.resolver.NodeID(key.pkg, key.test),
				File:    t.resolver.TestFile(key.pkg, key.test),
				Package: key.pkg,
				Name:    key.test,
			},
			output: newTailBuffer(0),
		}
	}
	delete(t.running, key)

	report := &types.TestReport{
		NodeID:   rt.item.NodeID,
		Location: rt.item.File,
		When:     types.PhaseCall,
		Outcome:  outcomeFromAction(event.Action),
		Duration: eventDuration(event, rt),
	}
	if report.Failed() {
		report.LongRepr = strings.TrimSpace(rt.output.String())
	}
	t.applyXFail(report)
	return t.report(report)
}

func (t *EventTranslator) applyXFail(report *types.TestReport) {
	if report.Skipped() {
		return
	}
	reason, ok := t.rc.XFail.Match(report.NodeID)
	if !ok {
		return
	}
	report.WasXFail = true
	report.XFailReason = reason
	if report.Failed() {
		report.Outcome = types.OutcomeSkipped
	}
}

func (t *EventTranslator) report(report *types.TestReport) error {
	t.summary.Add(report)
	return t.plugins.TestReport(t.rc, report)
}

// Finish reports tests that never completed and returns the run summary
func (t *EventTranslator) Finish() (*types.RunSummary, error) {
	for _, key := range t.order {
		rt, ok := t.running[key]
		if !ok {
			continue
		}
		delete(t.running, key)

		longRepr := IncompleteMessage
		if out := strings.TrimSpace(rt.output.String()); out != "" {
			longRepr += "\n" + out
		}
		report := &types.TestReport{
			NodeID:   rt.item.NodeID,
			Location: rt.item.File,
			When:     types.PhaseCall,
			Outcome:  types.OutcomeFailed,
			LongRepr: longRepr,
		}
		if !rt.started.IsZero() && t.lastSeen.After(rt.started) {
			report.Duration = t.lastSeen.Sub(rt.started)
		}
		t.applyXFail(report)
		if err := t.report(report); err != nil {
			return t.summary, err
		}
	}
	t.order = nil

	for pkg, span := range t.spans {
		span.SetStatus(codes.Error, "package did not complete")
		span.End()
		delete(t.spans, pkg)
	}

	t.summary.Duration = time.Since(t.rc.Started)
	return t.summary, nil
}

// Summary returns the summary accumulated so far
func (t *EventTranslator) Summary() *types.RunSummary {
	return t.summary
}

func (t *EventTranslator) printOutput(output string) {
	output = strings.TrimSuffix(output, "\n")
	if output == "" {
		return
	}
	t.rc.Print(output)
}

func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if len(line) == 0 || line[0] != '{' {
		return event, fmt.Errorf("not a test event")
	}
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, fmt.Errorf("missing action")
	}
	return event, nil
}

func outcomeFromAction(action string) types.Outcome {
	switch action {
	case ActionPass:
		return types.OutcomePassed
	case ActionSkip:
		return types.OutcomeSkipped
	default:
		return types.OutcomeFailed
	}
}

// eventDuration prefers the Elapsed field, then the time since the start event
func eventDuration(event TestEvent, rt *runningTest) time.Duration {
	if event.Elapsed > 0 {
		return time.Duration(event.Elapsed * float64(time.Second))
	}
	if rt == nil || rt.started.IsZero() || event.Time.IsZero() {
		return 0
	}
	if d := event.Time.Sub(rt.started); d > 0 {
		return d
	}
	return 0
}
