// Package pathtree builds the minimal tree of API path resources for a set
// of HTTP routes.
//
// Every distinct non-root path prefix becomes exactly one node, shared by
// all routes and methods that traverse it. The empty path is the API root
// and has no node of its own.
package pathtree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/lex00/wetwire-serverless-go/internal/naming"
)

var (
	// ErrGreedyNotTerminal is returned when a greedy segment is followed by
	// further segments.
	ErrGreedyNotTerminal = errors.New("greedy path segment must be the last segment")

	// ErrLogicalIDCollision is returned when two distinct paths normalize to
	// the same logical ID.
	ErrLogicalIDCollision = errors.New("path logical ID collision")
)

// Route is one declared HTTP route.
type Route struct {
	Method string
	Path   string
}

// Node is one path-segment resource.
type Node struct {
	// Segment is the last path segment, e.g. "{id}".
	Segment string
	// Path is the canonical full path, e.g. "users/{id}".
	Path string
	// LogicalID is the node's own logical ID.
	LogicalID string
	// ParentID is the parent's logical ID, or "" when the parent is the API root.
	ParentID string
	// Children lists child segments in creation order.
	Children []string
}

// Tree is the built path tree.
type Tree struct {
	nodes  []*Node
	byPath map[string]*Node
	roots  []string
}

// IsGreedy reports whether segment is a catch-all such as "{proxy+}".
func IsGreedy(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "+}")
}

// IsCapture reports whether segment is a parameter capture such as "{id}".
func IsCapture(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

// Canonicalize splits path into its segments, ignoring leading, trailing
// and repeated slashes.
func Canonicalize(path string) ([]string, error) {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	for i, s := range segments {
		if IsGreedy(s) && i != len(segments)-1 {
			return nil, fmt.Errorf("%w: %q", ErrGreedyNotTerminal, path)
		}
	}
	return segments, nil
}

// Build materializes one node per distinct non-root prefix of routes.
// The result does not depend on route order.
func Build(routes []Route) (*Tree, error) {
	seen := sets.New[string]()
	var sequences [][]string

	for _, r := range routes {
		segments, err := Canonicalize(r.Path)
		if err != nil {
			return nil, err
		}
		for n := 1; n <= len(segments); n++ {
			key := strings.Join(segments[:n], "/")
			if seen.Has(key) {
				continue
			}
			seen.Insert(key)
			sequences = append(sequences, segments[:n:n])
		}
	}

	sort.Slice(sequences, func(i, j int) bool {
		if len(sequences[i]) != len(sequences[j]) {
			return len(sequences[i]) < len(sequences[j])
		}
		return strings.Join(sequences[i], "/") < strings.Join(sequences[j], "/")
	})

	t := &Tree{byPath: make(map[string]*Node, len(sequences))}
	ids := make(map[string]string, len(sequences))

	for _, seq := range sequences {
		path := strings.Join(seq, "/")
		segment := seq[len(seq)-1]
		id := naming.PathResourceLogicalID(seq)
		if other, dup := ids[id]; dup {
			return nil, fmt.Errorf("%w: %q and %q both map to %s", ErrLogicalIDCollision, other, path, id)
		}
		ids[id] = path

		node := &Node{Segment: segment, Path: path, LogicalID: id}
		if len(seq) == 1 {
			t.roots = append(t.roots, segment)
		} else {
			parent := t.byPath[strings.Join(seq[:len(seq)-1], "/")]
			node.ParentID = parent.LogicalID
			parent.Children = append(parent.Children, segment)
		}
		t.nodes = append(t.nodes, node)
		t.byPath[path] = node
	}
	return t, nil
}

// Nodes returns every node, parents before children.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// Len returns the number of path resources.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Roots returns the segments attached directly to the API root.
func (t *Tree) Roots() []string {
	return t.roots
}

// Lookup returns the node for a path in any slash form.
func (t *Tree) Lookup(path string) (*Node, bool) {
	segments, err := Canonicalize(path)
	if err != nil || len(segments) == 0 {
		return nil, false
	}
	n, ok := t.byPath[strings.Join(segments, "/")]
	return n, ok
}

// IDs maps each canonical path to its logical ID.
func (t *Tree) IDs() map[string]string {
	out := make(map[string]string, len(t.nodes))
	for _, n := range t.nodes {
		out[n.Path] = n.LogicalID
	}
	return out
}
