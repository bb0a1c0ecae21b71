package graph

import (
	"fmt"
	"io"
	"strings"

	"microbeads/internal/issue"
	"microbeads/internal/store"
)

// Tree is one node of a recursive dependency rendering. Cycle and Missing
// mark truncated leaves: a node already on the path from the root, or a
// dependency ID with no issue behind it.
type Tree struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Status   issue.Status   `json:"status,omitempty"`
	Priority issue.Priority `json:"priority"`
	Cycle    bool           `json:"cycle,omitempty"`
	Missing  bool           `json:"missing,omitempty"`
	Children []*Tree        `json:"dependencies,omitempty"`
}

// treeContext carries the per-walk state: path is the chain of ancestors
// above the node being expanded (for cycle truncation), memo holds fully
// expanded subtrees so a diamond-shaped graph expands each node once.
type treeContext struct {
	all  map[string]*issue.Issue
	path map[string]bool
	memo map[string]*Tree
}

// DependencyTree expands the issue's dependencies recursively.
func DependencyTree(s *store.Store, query string) (*Tree, error) {
	id, err := s.Resolve(query)
	if err != nil {
		return nil, err
	}
	all, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	ctx := &treeContext{
		all:  all,
		path: make(map[string]bool),
		memo: make(map[string]*Tree),
	}
	return ctx.expand(id), nil
}

func (ctx *treeContext) expand(id string) *Tree {
	iss, ok := ctx.all[id]
	if !ok {
		return &Tree{ID: id, Missing: true}
	}
	if ctx.path[id] {
		return &Tree{ID: id, Title: iss.Title, Status: iss.Status, Priority: iss.Priority, Cycle: true}
	}
	if memoized, ok := ctx.memo[id]; ok {
		return memoized
	}

	node := &Tree{ID: id, Title: iss.Title, Status: iss.Status, Priority: iss.Priority}
	ctx.path[id] = true
	for _, depID := range iss.Dependencies {
		node.Children = append(node.Children, ctx.expand(depID))
	}
	delete(ctx.path, id)

	ctx.memo[id] = node
	return node
}

// Render writes the tree in indented text form, two spaces per depth level.
func (t *Tree) Render(w io.Writer) {
	t.render(w, 0)
}

func (t *Tree) render(w io.Writer, depth int) {
	indent := strings.Repeat("  ", depth)
	switch {
	case t.Missing:
		fmt.Fprintf(w, "%s%s (not found)\n", indent, t.ID)
	case t.Cycle:
		fmt.Fprintf(w, "%s%s %s (cycle)\n", indent, t.ID, t.Title)
	default:
		fmt.Fprintf(w, "%s%s [%s] %s %s\n", indent, t.ID, t.Status, t.Priority.Display(), t.Title)
	}
	for _, child := range t.Children {
		child.render(w, depth+1)
	}
}
