package types

import (
	"strings"
)

// NodeSeparator splits the package part of a node ID from the test part
const NodeSeparator = "::"

// NodeID builds the identifier of a test, e.g. "internal/foo::TestBar/case_1".
// An empty test name yields the package node ID.
func NodeID(pkgDir, testName string) string {
	if testName == "" {
		return pkgDir
	}
	return pkgDir + NodeSeparator + testName
}

// SplitNodeID returns the package and test parts of a node ID
func SplitNodeID(nodeID string) (pkgDir, testName string) {
	pkgDir, testName, _ = strings.Cut(nodeID, NodeSeparator)
	return pkgDir, testName
}

// ParseTestNameHierarchy parses a Go test name and extracts hierarchy information
// Handles names like "TestParent/SubTest1/SubSubTest2"
// Returns depth (0=top-level, 1=first subtest, etc.) and the full hierarchy path
func ParseTestNameHierarchy(testName string) (depth int, path []string) {
	if testName == "" {
		return 0, []string{}
	}

	cleanPath := make([]string, 0, strings.Count(testName, "/")+1)
	for _, element := range strings.Split(testName, "/") {
		if element != "" {
			cleanPath = append(cleanPath, element)
		}
	}

	if len(cleanPath) == 0 {
		return 0, []string{}
	}
	return len(cleanPath) - 1, cleanPath
}

// TopLevelTest returns the test function name of a (sub)test name
func TopLevelTest(testName string) string {
	_, path := ParseTestNameHierarchy(testName)
	if len(path) == 0 {
		return ""
	}
	return path[0]
}
