package runner

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// RunStartHook is called once, before any test event is processed
type RunStartHook interface {
	OnRunStart(rc *RunContext) error
}

// TestStartHook is called when a test begins, before it produces any output
type TestStartHook interface {
	OnTestStart(rc *RunContext, item *types.TestItem) error
}

// TestReportHook is called for every setup, call and teardown report
type TestReportHook interface {
	OnTestReport(rc *RunContext, report *types.TestReport) error
}

// RawEventHook receives every line of the event stream, unmodified
type RawEventHook interface {
	OnRawEvent(rc *RunContext, line []byte) error
}

// RunFinishHook is called once after the event stream ended
type RunFinishHook interface {
	OnRunFinish(rc *RunContext, summary *types.RunSummary) error
}

type registeredPlugin struct {
	name   string
	plugin any
}

// PluginManager dispatches hooks to plugins in registration order
type PluginManager struct {
	plugins []registeredPlugin
}

func NewPluginManager() *PluginManager {
	return &PluginManager{}
}

// Register adds a plugin under a unique name. The plugin must implement at
// least one hook interface.
func (m *PluginManager) Register(name string, plugin any) error {
	if name == "" {
		return errors.New("plugin name cannot be empty")
	}
	if plugin == nil {
		return fmt.Errorf("plugin %s is nil", name)
	}
	if m.Has(name) {
		return fmt.Errorf("plugin %s already registered", name)
	}
	switch plugin.(type) {
	case RunStartHook, TestStartHook, TestReportHook, RawEventHook, RunFinishHook:
	default:
		return fmt.Errorf("plugin %s (%T) implements no hooks", name, plugin)
	}
	m.plugins = append(m.plugins, registeredPlugin{name: name, plugin: plugin})
	return nil
}

// Has reports whether a plugin is registered under name
func (m *PluginManager) Has(name string) bool {
	for _, p := range m.plugins {
		if p.name == name {
			return true
		}
	}
	return false
}

// Names returns the registered plugin names in order
func (m *PluginManager) Names() []string {
	names := make([]string, len(m.plugins))
	for i, p := range m.plugins {
		names[i] = p.name
	}
	return names
}

func (m *PluginManager) RunStart(rc *RunContext) error {
	for _, p := range m.plugins {
		if h, ok := p.plugin.(RunStartHook); ok {
			if err := h.OnRunStart(rc); err != nil {
				return fmt.Errorf("plugin %s: run start: %w", p.name, err)
			}
		}
	}
	return nil
}

func (m *PluginManager) TestStart(rc *RunContext, item *types.TestItem) error {
	for _, p := range m.plugins {
		if h, ok := p.plugin.(TestStartHook); ok {
			if err := h.OnTestStart(rc, item); err != nil {
				return fmt.Errorf("plugin %s: test start %s: %w", p.name, item.NodeID, err)
			}
		}
	}
	return nil
}

func (m *PluginManager) TestReport(rc *RunContext, report *types.TestReport) error {
	for _, p := range m.plugins {
		if h, ok := p.plugin.(TestReportHook); ok {
			if err := h.OnTestReport(rc, report); err != nil {
				return fmt.Errorf("plugin %s: test report %s: %w", p.name, report.NodeID, err)
			}
		}
	}
	return nil
}

func (m *PluginManager) RawEvent(rc *RunContext, line []byte) error {
	for _, p := range m.plugins {
		if h, ok := p.plugin.(RawEventHook); ok {
			if err := h.OnRawEvent(rc, line); err != nil {
				return fmt.Errorf("plugin %s: raw event: %w", p.name, err)
			}
		}
	}
	return nil
}

// RunFinish calls every finish hook, even after one failed, so that plugins
// can release their resources
func (m *PluginManager) RunFinish(rc *RunContext, summary *types.RunSummary) error {
	var errs []error
	for _, p := range m.plugins {
		if h, ok := p.plugin.(RunFinishHook); ok {
			if err := h.OnRunFinish(rc, summary); err != nil {
				errs = append(errs, fmt.Errorf("plugin %s: run finish: %w", p.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
