package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aidanlsb/linkq/internal/slugs"
)

// TreeNode is a node of a tree produced by a traversal.
type TreeNode struct {
	Vertex   *Vertex
	Children []*TreeNode
}

// BFSTree builds a breadth-first spanning tree rooted at start.
// Every reachable vertex appears exactly once, even on cyclic graphs.
func BFSTree(g *Graph, start string) (*TreeNode, error) {
	v, ok := g.Vertex(start)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVertexNotFound, start)
	}

	root := &TreeNode{Vertex: v}
	visited := map[string]bool{start: true}
	queue := []*TreeNode{root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, e := range g.sortedNeighbors(node.Vertex.ID) {
			if visited[e.Target] {
				continue
			}
			// Marked on enqueue so a vertex reachable from two parents is only added once.
			visited[e.Target] = true
			child := &TreeNode{Vertex: g.vertices[e.Target]}
			node.Children = append(node.Children, child)
			queue = append(queue, child)
		}
	}
	return root, nil
}

// DFSTree builds a tree of every simple path from start.
//
// Only the current path is tracked as visited, so a vertex reachable via
// several distinct simple paths appears once per path. The tree grows
// exponentially on dense graphs; callers bound the graph size.
func DFSTree(g *Graph, start string) (*TreeNode, error) {
	v, ok := g.Vertex(start)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVertexNotFound, start)
	}
	return g.dfs(v, map[string]bool{}), nil
}

func (g *Graph) dfs(v *Vertex, onPath map[string]bool) *TreeNode {
	node := &TreeNode{Vertex: v}
	onPath[v.ID] = true
	for _, e := range g.sortedNeighbors(v.ID) {
		if onPath[e.Target] {
			continue
		}
		node.Children = append(node.Children, g.dfs(g.vertices[e.Target], onPath))
	}
	delete(onPath, v.ID)
	return node
}

// HasPath reports whether the tree contains a vertex with the given id.
func (n *TreeNode) HasPath(id string) bool {
	return n.FindPath(id) != nil
}

// FindPath returns the vertex ids from the root to the first node with the
// given id found breadth-first, or nil.
func (n *TreeNode) FindPath(id string) []string {
	if n == nil {
		return nil
	}
	type step struct {
		node *TreeNode
		path []string
	}
	queue := []step{{node: n, path: []string{n.Vertex.ID}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node.Vertex.ID == id {
			return cur.path
		}
		for _, child := range cur.node.Children {
			path := make([]string, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			queue = append(queue, step{node: child, path: append(path, child.Vertex.ID)})
		}
	}
	return nil
}

// Paths returns every root-to-leaf path in the tree.
func (n *TreeNode) Paths() [][]string {
	var out [][]string
	var walk func(node *TreeNode, prefix []string)
	walk = func(node *TreeNode, prefix []string) {
		path := append(append([]string(nil), prefix...), node.Vertex.ID)
		if len(node.Children) == 0 {
			out = append(out, path)
			return
		}
		for _, child := range node.Children {
			walk(child, path)
		}
	}
	walk(n, nil)
	return out
}

// Count returns how many nodes in the tree carry the given vertex id.
func (n *TreeNode) Count(id string) int {
	count := 0
	if n.Vertex.ID == id {
		count++
	}
	for _, child := range n.Children {
		count += child.Count(id)
	}
	return count
}

// Mermaid renders the tree as a Mermaid "graph TD" diagram.
// Edge lines are deduplicated and sorted so the output is stable.
func (n *TreeNode) Mermaid() string {
	seen := make(map[string]bool)
	var lines []string
	var walk func(node *TreeNode)
	walk = func(node *TreeNode) {
		for _, child := range node.Children {
			line := fmt.Sprintf("%s --> %s", slugs.DiagramID(node.Vertex.ID), slugs.DiagramID(child.Vertex.ID))
			if !seen[line] {
				seen[line] = true
				lines = append(lines, line)
			}
			walk(child)
		}
	}
	walk(n)
	sort.Strings(lines)

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, line := range lines {
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
