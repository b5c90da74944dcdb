package reporting

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	recordExt       = ".json"
	collisionSep    = "~"
	collisionHexLen = 8

	// maxBaseLen keeps record names, collision suffix included, below NAME_MAX
	maxBaseLen = 160
)

var filenameReplacer = strings.NewReplacer(types.NodeSeparator, ".", "/", "-", "\\", "-")

// SanitizeNodeID maps a node ID to its base record filename,
// e.g. "pkg/a::TestB/c" becomes "pkg-a.TestB-c.json".
func SanitizeNodeID(nodeID string) string {
	return filenameReplacer.Replace(nodeID) + recordExt
}

// Namer assigns record filenames within one run. Distinct node IDs never share
// a name and a node ID keeps the name it was first given.
type Namer struct {
	mu     sync.Mutex
	byNode map[string]string
	taken  map[string]string // filename -> node ID
}

func NewNamer() *Namer {
	return &Namer{
		byNode: make(map[string]string),
		taken:  make(map[string]string),
	}
}

// Filename returns the record filename of nodeID. Names whose base exceeds
// maxBaseLen are shortened and made unique with the hash suffix.
func (n *Namer) Filename(nodeID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if name, ok := n.byNode[nodeID]; ok {
		return name
	}
	name := SanitizeNodeID(nodeID)
	if len(name)-len(recordExt) > maxBaseLen {
		name = collisionName(nodeID, 0)
	}
	for attempt := 1; n.isTaken(name, nodeID); attempt++ {
		name = collisionName(nodeID, attempt)
	}
	n.byNode[nodeID] = name
	n.taken[name] = nodeID
	return name
}

func (n *Namer) isTaken(name, nodeID string) bool {
	owner, ok := n.taken[name]
	return ok && owner != nodeID
}

// collisionName suffixes the shortened base of nodeID with its sha256. The
// first attempts use collisionHexLen hex chars, doubling up to the full hash;
// later attempts append a counter to the full hash.
func collisionName(nodeID string, attempt int) string {
	digest := sha256.Sum256([]byte(nodeID))
	sum := hex.EncodeToString(digest[:])

	hexLen := collisionHexLen
	step := 1
	for ; step < attempt && hexLen < len(sum); step++ {
		hexLen *= 2
	}
	suffix := sum[:hexLen]
	if extra := attempt - step; extra > 0 {
		suffix += "-" + strconv.Itoa(extra)
	}
	base := strings.TrimSuffix(SanitizeNodeID(nodeID), recordExt)
	return truncateBase(base) + collisionSep + suffix + recordExt
}

// truncateBase cuts base to at most maxBaseLen bytes without splitting a rune
func truncateBase(base string) string {
	if len(base) <= maxBaseLen {
		return base
	}
	cut := maxBaseLen
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut]
}
