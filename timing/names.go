package timing

import (
	"strings"

	"github.com/xlab/treeprint"
)

// Separator splits hierarchical event type identifiers, e.g. "encode/pack-0".
const Separator = "/"

var displaySegments = map[string]string{
	"encode":    "Encoding",
	"encrypt":   "Encryption",
	"load":      "Loading",
	"warmup":    "Warmup",
	"operation": "Operation",
	"store":     "Store",
	"decrypt":   "Decryption",
	"decode":    "Decoding",
	"pack":      "Pack",
}

// DisplayName maps an event type identifier to its presentation name, e.g.
// "encode/pack-0" becomes "Encoding > Pack 0". Stored events are not affected.
func DisplayName(eventType string) string {
	segments := strings.Split(eventType, Separator)
	for i, s := range segments {
		segments[i] = displaySegment(s)
	}
	return strings.Join(segments, " > ")
}

func displaySegment(segment string) string {
	if name, ok := displaySegments[segment]; ok {
		return name
	}
	words := strings.Split(segment, "-")
	for i, w := range words {
		if name, ok := displaySegments[w]; ok {
			words[i] = name
			continue
		}
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Tree renders event types as a hierarchy under root, e.g.
//
//	run
//	├── Encoding
//	│   ├── Pack 0
//	│   └── Pack 1
//	└── Operation
func Tree(root string, eventTypes []string) string {
	tree := treeprint.New()
	tree.SetValue(root)

	branches := make(map[string]treeprint.Tree)
	for _, eventType := range eventTypes {
		parent := tree
		prefix := ""
		for _, segment := range strings.Split(eventType, Separator) {
			if prefix == "" {
				prefix = segment
			} else {
				prefix += Separator + segment
			}
			branch, ok := branches[prefix]
			if !ok {
				branch = parent.AddBranch(displaySegment(segment))
				branches[prefix] = branch
			}
			parent = branch
		}
	}
	return tree.String()
}
