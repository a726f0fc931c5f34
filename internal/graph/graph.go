// Package graph implements a small labeled graph with deterministic
// breadth-first and depth-first tree builders.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrVertexNotFound indicates an operation referenced an id the graph does not hold.
	ErrVertexNotFound = errors.New("vertex not found")
	// ErrDuplicateVertex indicates a vertex id was added twice.
	ErrDuplicateVertex = errors.New("duplicate vertex")
)

// Vertex is a graph node. Identity is the ID.
type Vertex struct {
	ID   string
	Data any
}

// Edge connects two vertices by id. Only Data may change after creation.
type Edge struct {
	Source string
	Target string
	Type   string
	Data   any
}

// SetData replaces the edge payload.
func (e *Edge) SetData(data any) {
	e.Data = data
}

// Graph holds vertices keyed by id and an ordered adjacency list per vertex.
type Graph struct {
	vertices  map[string]*Vertex
	adjacency map[string][]*Edge
	directed  bool
}

// New creates an empty graph.
func New(directed bool) *Graph {
	return &Graph{
		vertices:  make(map[string]*Vertex),
		adjacency: make(map[string][]*Edge),
		directed:  directed,
	}
}

// Directed reports whether edges are one-way.
func (g *Graph) Directed() bool {
	return g.directed
}

// AddVertex inserts a vertex. Adding an id twice fails with ErrDuplicateVertex.
func (g *Graph) AddVertex(v *Vertex) error {
	if v == nil {
		return fmt.Errorf("nil vertex")
	}
	if _, exists := g.vertices[v.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateVertex, v.ID)
	}
	g.vertices[v.ID] = v
	g.adjacency[v.ID] = []*Edge{}
	return nil
}

// AddEdge inserts an edge between two existing vertices.
//
// An edge for an existing (source, target) pair is not added again. For
// undirected graphs the reverse edge is created with the same type and data
// unless one already exists.
func (g *Graph) AddEdge(e *Edge) error {
	if e == nil {
		return fmt.Errorf("nil edge")
	}
	if _, ok := g.vertices[e.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrVertexNotFound, e.Source)
	}
	if _, ok := g.vertices[e.Target]; !ok {
		return fmt.Errorf("%w: %s", ErrVertexNotFound, e.Target)
	}

	if !g.hasEdge(e.Source, e.Target) {
		g.adjacency[e.Source] = append(g.adjacency[e.Source], e)
	}
	if !g.directed && !g.hasEdge(e.Target, e.Source) {
		g.adjacency[e.Target] = append(g.adjacency[e.Target], &Edge{
			Source: e.Target,
			Target: e.Source,
			Type:   e.Type,
			Data:   e.Data,
		})
	}
	return nil
}

func (g *Graph) hasEdge(source, target string) bool {
	for _, existing := range g.adjacency[source] {
		if existing.Target == target {
			return true
		}
	}
	return false
}

// Neighbors returns the outgoing edges of a vertex in insertion order.
func (g *Graph) Neighbors(id string) ([]*Edge, error) {
	if _, ok := g.vertices[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrVertexNotFound, id)
	}
	return g.adjacency[id], nil
}

// Vertex looks up a vertex by id.
func (g *Graph) Vertex(id string) (*Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Vertices returns all vertices sorted by id.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(g.vertices))
	for _, v := range g.vertices {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgeCount returns the number of stored edges (mirrored edges count separately).
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.adjacency {
		n += len(edges)
	}
	return n
}

// sortedNeighbors returns a copy of the vertex's edges ordered by target id.
func (g *Graph) sortedNeighbors(id string) []*Edge {
	edges := append([]*Edge(nil), g.adjacency[id]...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Target < edges[j].Target })
	return edges
}
