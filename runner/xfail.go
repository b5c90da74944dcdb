package runner

import (
	"fmt"
	"regexp"
)

// XFailRule marks tests whose failure is tolerated
type XFailRule struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason,omitempty"`
}

type compiledXFail struct {
	re     *regexp.Regexp
	reason string
}

// XFailRules matches node IDs against expected-failure patterns
type XFailRules struct {
	rules []compiledXFail
}

// NewXFailRules compiles the rule patterns as regular expressions
func NewXFailRules(rules []XFailRule) (*XFailRules, error) {
	x := &XFailRules{}
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("xfail rule %d: invalid pattern %q: %w", i, r.Pattern, err)
		}
		reason := r.Reason
		if reason == "" {
			reason = "expected failure"
		}
		x.rules = append(x.rules, compiledXFail{re: re, reason: reason})
	}
	return x, nil
}

// Match returns the reason of the first rule matching nodeID
func (x *XFailRules) Match(nodeID string) (string, bool) {
	if x == nil {
		return "", false
	}
	for _, r := range x.rules {
		if r.re.MatchString(nodeID) {
			return r.reason, true
		}
	}
	return "", false
}

// Len returns the number of rules
func (x *XFailRules) Len() int {
	if x == nil {
		return 0
	}
	return len(x.rules)
}
