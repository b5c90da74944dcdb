package reporting

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeNodeID(t *testing.T) {
	tests := []struct {
		nodeID string
		want   string
	}{
		{nodeID: "test_mod.py::test_ok", want: "test_mod.py.test_ok.json"},
		{nodeID: "internal/foo::TestBar/case_1", want: "internal-foo.TestBar-case_1.json"},
		{nodeID: `win\pkg::TestX`, want: "win-pkg.TestX.json"},
		{nodeID: "pkg", want: "pkg.json"},
	}
	for _, tt := range tests {
		t.Run(tt.nodeID, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeNodeID(tt.nodeID))
		})
	}
}

func TestNamer_Stable(t *testing.T) {
	n := NewNamer()
	first := n.Filename("pkg::TestA")
	assert.Equal(t, "pkg.TestA.json", first)
	assert.Equal(t, first, n.Filename("pkg::TestA"))
}

func TestNamer_Collision(t *testing.T) {
	n := NewNamer()
	a := n.Filename("a/b::TestC")
	b := n.Filename("a-b::TestC")
	assert.Equal(t, "a-b.TestC.json", a)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^a-b\.TestC~[0-9a-f]{8}\.json$`, b)

	// names stick to the node first given them
	assert.Equal(t, a, n.Filename("a/b::TestC"))
	assert.Equal(t, b, n.Filename("a-b::TestC"))
}

func TestNamer_UniqueAndSafe(t *testing.T) {
	n := NewNamer()
	seen := make(map[string]string)
	var nodeIDs []string
	for i := 0; i < 20; i++ {
		nodeIDs = append(nodeIDs,
			fmt.Sprintf("pkg/sub::Test%d", i),
			fmt.Sprintf("pkg-sub::Test%d", i),
			fmt.Sprintf(`pkg\sub::Test%d`, i),
			fmt.Sprintf("pkg/sub.Test%d", i),
		)
	}
	for _, id := range nodeIDs {
		name := n.Filename(id)
		require.NotContains(t, seen, name, "duplicate name for %s and %s", id, seen[name])
		seen[name] = id
		assert.False(t, strings.ContainsAny(name, `/\`), name)
		assert.NotContains(t, name, "::")
	}
}

func TestNamer_LongNames(t *testing.T) {
	n := NewNamer()
	long := "pkg::TestTable/" + strings.Repeat("a_very_descriptive_case_name_", 10)
	other := long + "x"

	name := n.Filename(long)
	assert.LessOrEqual(t, len(name), 255)
	assert.Regexp(t, `^pkg\.TestTable-a_very_descriptive_case_name_.*~[0-9a-f]{8}\.json$`, name)
	assert.Equal(t, name, n.Filename(long))

	// same truncated prefix, different node
	otherName := n.Filename(other)
	assert.NotEqual(t, name, otherName)
	assert.LessOrEqual(t, len(otherName), 255)

	// a base at the limit is kept as is
	atLimit := strings.Repeat("p", maxBaseLen)
	assert.Equal(t, atLimit+".json", n.Filename(atLimit))
}

func TestTruncateBase_KeepsRunes(t *testing.T) {
	base := strings.Repeat("a", maxBaseLen-1) + "é"
	got := truncateBase(base)
	assert.Equal(t, strings.Repeat("a", maxBaseLen-1), got)
	assert.True(t, utf8.ValidString(got))
}

func TestNamer_CollisionTerminates(t *testing.T) {
	n := NewNamer()
	const nodeID = "pkg::TestTarget"

	// other nodes already hold every hash-suffixed name the target could get
	n.taken[SanitizeNodeID(nodeID)] = "squatter-0"
	for attempt := 1; attempt <= 5; attempt++ {
		n.taken[collisionName(nodeID, attempt)] = fmt.Sprintf("squatter-%d", attempt)
	}

	name := n.Filename(nodeID)
	assert.Equal(t, collisionName(nodeID, 6), name)
	assert.Regexp(t, `^pkg\.TestTarget~[0-9a-f]{64}-2\.json$`, name)
	assert.LessOrEqual(t, len(collisionName(strings.Repeat("z", 1000), 1000)), 255)
}

func TestCollisionName_Lengths(t *testing.T) {
	tests := []struct {
		attempt int
		pattern string
	}{
		{attempt: 0, pattern: `^pkg\.TestA~[0-9a-f]{8}\.json$`},
		{attempt: 1, pattern: `^pkg\.TestA~[0-9a-f]{8}\.json$`},
		{attempt: 2, pattern: `^pkg\.TestA~[0-9a-f]{16}\.json$`},
		{attempt: 3, pattern: `^pkg\.TestA~[0-9a-f]{32}\.json$`},
		{attempt: 4, pattern: `^pkg\.TestA~[0-9a-f]{64}\.json$`},
		{attempt: 5, pattern: `^pkg\.TestA~[0-9a-f]{64}-1\.json$`},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.attempt), func(t *testing.T) {
			assert.Regexp(t, tt.pattern, collisionName("pkg::TestA", tt.attempt))
		})
	}
}
