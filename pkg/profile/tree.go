// Package profile stores named connection profiles that inherit fields from
// a parent profile.
//
// Each node either sets a field, explicitly unsets it, or inherits it. The
// effective configuration of a profile is computed by walking from its root
// down to the node and applying every override on the way. Nothing is
// cached: Resolve always reflects the current tree.
package profile

import (
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// FieldState is the per-field state of a node.
type FieldState uint8

const (
	Inherited FieldState = iota
	Set
	Unset
)

// Node is the external form of a profile.
type Node struct {
	ID     string
	Parent string
	Fields map[string]string
	Unset  []string
}

type field struct {
	state FieldState
	value string
}

type node struct {
	id     string
	parent string
	fields map[string]field
}

// Tree is a forest of profiles keyed by id. It is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*node)}
}

// Build inserts nodes in order. Parents may appear after their children.
func Build(nodes []Node) (*Tree, error) {
	t := NewTree()
	for _, n := range nodes {
		if err := t.Insert(n); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Insert adds a node. It fails when the id exists, when the parent chain
// leads back to the node, or when a field is both set and unset. A failed
// insert leaves the tree unchanged.
func (t *Tree) Insert(n Node) error {
	id := strings.TrimSpace(n.ID)
	if id == "" {
		return errors.New(errors.ErrorTypeProfile, "profile id is empty")
	}

	fields := make(map[string]field, len(n.Fields)+len(n.Unset))
	for k, v := range n.Fields {
		fields[k] = field{state: Set, value: v}
	}
	for _, k := range n.Unset {
		if f, ok := fields[k]; ok && f.state == Set {
			return errors.Newf(errors.ErrorTypeProfile, "field %q is both set and unset", k).
				WithDetail("profile", id)
		}
		fields[k] = field{state: Unset}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.nodes[id]; exists {
		return errors.Wrap(errors.ErrDuplicateID, errors.ErrorTypeProfile, "cannot insert profile").
			WithDetail("profile", id)
	}
	if t.reaches(n.Parent, id) {
		return errors.Wrap(errors.ErrCycle, errors.ErrorTypeProfile, "cannot insert profile").
			WithDetail("profile", id).
			WithDetail("parent", n.Parent)
	}

	t.nodes[id] = &node{id: id, parent: n.Parent, fields: fields}
	return nil
}

// reaches reports whether walking up from start passes through target.
// Missing ancestors end the walk; they may be inserted later.
func (t *Tree) reaches(start, target string) bool {
	for cur, steps := start, 0; cur != "" && steps <= len(t.nodes); steps++ {
		if cur == target {
			return true
		}
		n, ok := t.nodes[cur]
		if !ok {
			return false
		}
		cur = n.parent
	}
	return false
}

// chain returns the nodes from the root down to id.
func (t *Tree) chain(id string) ([]*node, error) {
	var path []*node
	for cur := id; cur != ""; {
		n, ok := t.nodes[cur]
		if !ok {
			err := errors.Wrap(errors.ErrUnknownID, errors.ErrorTypeProfile, "cannot resolve profile").
				WithDetail("profile", id)
			if cur != id {
				err.WithDetail("missing_parent", cur)
			}
			return nil, err
		}
		path = append(path, n)
		cur = n.parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Resolve returns the effective fields of id: for every field, the value of
// the nearest node on the path that sets it, unless a closer node unsets it.
func (t *Tree) Resolve(id string) (map[string]string, error) {
	origins, err := t.Explain(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(origins))
	for _, o := range origins {
		out[o.Field] = o.Value
	}
	return out, nil
}

// FieldOrigin records which profile supplied an effective field.
type FieldOrigin struct {
	Field  string
	Value  string
	Origin string
}

// Explain is Resolve with provenance, sorted by field name.
func (t *Tree) Explain(id string) ([]FieldOrigin, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	path, err := t.chain(id)
	if err != nil {
		return nil, err
	}
	eff := make(map[string]FieldOrigin)
	for _, n := range path {
		for k, f := range n.fields {
			switch f.state {
			case Set:
				eff[k] = FieldOrigin{Field: k, Value: f.value, Origin: n.id}
			case Unset:
				delete(eff, k)
			}
		}
	}
	out := make([]FieldOrigin, 0, len(eff))
	for _, o := range eff {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// Get returns the stored form of a node.
func (t *Tree) Get(id string) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.export(), true
}

// Nodes returns every node sorted by id.
func (t *Tree) Nodes() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Node, 0, len(t.nodes))
	for _, id := range t.sortedIDs() {
		out = append(out, t.nodes[id].export())
	}
	return out
}

func (n *node) export() Node {
	out := Node{ID: n.id, Parent: n.parent, Fields: map[string]string{}}
	for k, f := range n.fields {
		switch f.state {
		case Set:
			out.Fields[k] = f.value
		case Unset:
			out.Unset = append(out.Unset, k)
		}
	}
	sort.Strings(out.Unset)
	return out
}

// ChildrenOf returns the ids whose parent is id, sorted.
func (t *Tree) ChildrenOf(id string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.nodes[id]; !ok {
		return nil, errors.Wrap(errors.ErrUnknownID, errors.ErrorTypeProfile, "cannot list children").
			WithDetail("profile", id)
	}
	var out []string
	for _, n := range t.nodes {
		if n.parent == id {
			out = append(out, n.id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Roots returns the ids of nodes without a parent, sorted.
func (t *Tree) Roots() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, n := range t.nodes {
		if n.parent == "" {
			out = append(out, n.id)
		}
	}
	sort.Strings(out)
	return out
}

// IDs returns every id, sorted.
func (t *Tree) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedIDs()
}

func (t *Tree) sortedIDs() []string {
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}
