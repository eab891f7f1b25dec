package collection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/artpar/requst/internal/core"
)

// This file holds pure functions over the flat collection layout. The layout
// is the source of truth; trees are derived from it and never stored.

// Node is one item of the derived collection tree.
type Node struct {
	Item     core.CollectionItem
	Children []*Node
}

// Row is a node flattened for display, with its depth in the tree.
type Row struct {
	Item  core.CollectionItem
	Depth int
}

// BuildTree materializes the nested view. Roots are items without a parent;
// children of a group keep their layout order.
func BuildTree(items []core.CollectionItem) []*Node {
	children := make(map[int64][]core.CollectionItem)
	var roots []core.CollectionItem
	for _, item := range items {
		if item.ParentID == nil {
			roots = append(roots, item)
			continue
		}
		children[*item.ParentID] = append(children[*item.ParentID], item)
	}

	visited := make(map[int64]bool)
	var build func(item core.CollectionItem) *Node
	build = func(item core.CollectionItem) *Node {
		node := &Node{Item: item}
		// A corrupt layout must not loop forever.
		if visited[item.ID] {
			return node
		}
		visited[item.ID] = true
		if item.IsGroup() {
			for _, child := range children[item.ID] {
				node.Children = append(node.Children, build(child))
			}
		}
		return node
	}

	out := make([]*Node, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

// Flatten walks the tree depth-first.
func Flatten(nodes []*Node) []Row {
	var rows []Row
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			rows = append(rows, Row{Item: n.Item, Depth: depth})
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
	return rows
}

// Find returns the item with id.
func Find(items []core.CollectionItem, id int64) (core.CollectionItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return core.CollectionItem{}, false
}

// WouldCycle reports whether attaching id under target would make an item
// its own ancestor. The walk follows target's parent chain.
func WouldCycle(items []core.CollectionItem, id, target int64) bool {
	if id == target {
		return true
	}
	parents := parentIndex(items)
	seen := map[int64]bool{target: true}
	for cur := parents[target]; cur != nil; cur = parents[*cur] {
		if *cur == id || seen[*cur] {
			return true
		}
		seen[*cur] = true
	}
	return false
}

// CheckReparent validates attaching id under parent. A nil parent is the root.
func CheckReparent(items []core.CollectionItem, id int64, parent *int64) error {
	if parent == nil {
		return nil
	}
	group, ok := Find(items, *parent)
	if !ok {
		return fmt.Errorf("%w: parent %d does not exist", ErrInvalidReparent, *parent)
	}
	if !group.IsGroup() {
		return fmt.Errorf("%w: parent %d is not a group", ErrInvalidReparent, *parent)
	}
	if WouldCycle(items, id, *parent) {
		return fmt.Errorf("%w: %d cannot be placed under its own descendant %d", ErrInvalidReparent, id, *parent)
	}
	return nil
}

// ValidateLayout checks a complete layout: ids are unique, every parent
// exists and is a group, and no ancestor chain revisits an item.
func ValidateLayout(items []core.CollectionItem) error {
	byID := make(map[int64]core.CollectionItem, len(items))
	for _, item := range items {
		if item.ID != 0 {
			if _, dup := byID[item.ID]; dup {
				return fmt.Errorf("%w: duplicate id %d", ErrInvalidLayout, item.ID)
			}
			byID[item.ID] = item
		}
	}

	for _, item := range items {
		if item.ParentID == nil {
			continue
		}
		parent, ok := byID[*item.ParentID]
		if !ok {
			return fmt.Errorf("%w: parent %d of %q does not exist", ErrInvalidReparent, *item.ParentID, item.Name)
		}
		if !parent.IsGroup() {
			return fmt.Errorf("%w: parent %d of %q is not a group", ErrInvalidReparent, *item.ParentID, item.Name)
		}

		seen := map[int64]bool{item.ID: true}
		for cur := item.ParentID; cur != nil; cur = byID[*cur].ParentID {
			if seen[*cur] {
				return fmt.Errorf("%w: %q is its own ancestor", ErrInvalidReparent, item.Name)
			}
			seen[*cur] = true
		}
	}
	return nil
}

// Descendants returns the ids of every item below id, in layout order.
func Descendants(items []core.CollectionItem, id int64) []int64 {
	below := map[int64]bool{id: true}
	// Repeat until no item joins; layouts are small and possibly unordered.
	for changed := true; changed; {
		changed = false
		for _, item := range items {
			if item.ParentID != nil && below[*item.ParentID] && !below[item.ID] {
				below[item.ID] = true
				changed = true
			}
		}
	}

	var out []int64
	for _, item := range items {
		if item.ID != id && below[item.ID] {
			out = append(out, item.ID)
		}
	}
	return out
}

// MoveItem returns a new layout with id attached under parent at position
// index among its new siblings. An index out of range appends. The input is
// not modified.
func MoveItem(items []core.CollectionItem, id int64, parent *int64, index int) ([]core.CollectionItem, error) {
	pos := slices.IndexFunc(items, func(item core.CollectionItem) bool { return item.ID == id })
	if pos < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err := CheckReparent(items, id, parent); err != nil {
		return nil, err
	}

	moved := items[pos]
	moved.ParentID = parent
	rest := slices.Delete(slices.Clone(items), pos, pos+1)

	var siblings []int
	for i, item := range rest {
		if sameParent(item.ParentID, parent) {
			siblings = append(siblings, i)
		}
	}

	var at int
	switch {
	case index >= 0 && index < len(siblings):
		at = siblings[index]
	case len(siblings) > 0:
		at = siblings[len(siblings)-1] + 1
	default:
		at = len(rest)
	}
	return slices.Insert(rest, at, moved), nil
}

// Filter returns the items whose name or URL contains query, ignoring case.
func Filter(items []core.CollectionItem, query string) []core.CollectionItem {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	var out []core.CollectionItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), q) || strings.Contains(strings.ToLower(item.URL), q) {
			out = append(out, item)
		}
	}
	return out
}

// Groups returns only the group items.
func Groups(items []core.CollectionItem) []core.CollectionItem {
	var out []core.CollectionItem
	for _, item := range items {
		if item.IsGroup() {
			out = append(out, item)
		}
	}
	return out
}

// UniqueName returns base, or base with the first free " (n)" suffix.
func UniqueName(items []core.CollectionItem, base string) string {
	taken := make(map[string]bool, len(items))
	for _, item := range items {
		taken[item.Name] = true
	}
	name := base
	for n := 1; taken[name]; n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return name
}

func parentIndex(items []core.CollectionItem) map[int64]*int64 {
	parents := make(map[int64]*int64, len(items))
	for _, item := range items {
		parents[item.ID] = item.ParentID
	}
	return parents
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
