package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aidanlsb/linkq/internal/graph"
)

// Hop is one resolved relationship step of a dotted path.
type Hop struct {
	Relationship *Relationship
	From         *Model
	To           *Model
	Local        string // join column on From
	Related      string // join column on To
}

// ResolvePath splits a dotted attribute into relationship hops and the
// trailing attribute.
//
// Hops are the longest prefix of segments that name relationships, starting
// from model. The last segment is never a hop. Whatever is left, joined with
// dots, is the attribute on the final model. A segment that names a
// relationship whose related model is unknown is an error.
func ResolvePath(reg Registry, model, path string) ([]Hop, string, error) {
	cur, err := reg.Model(model)
	if err != nil {
		return nil, "", err
	}

	segments := strings.Split(path, ".")
	var hops []Hop
	i := 0
	for ; i < len(segments)-1; i++ {
		rel, err := reg.Relationship(cur.Name, segments[i])
		if errors.Is(err, ErrRelationshipNotFound) {
			break
		}
		if err != nil {
			return nil, "", err
		}
		to, err := reg.Model(rel.Model)
		if err != nil {
			return nil, "", fmt.Errorf("relationship '%s' on model '%s': %w", rel.Name, cur.Name, err)
		}
		local, related, err := rel.JoinColumns()
		if err != nil {
			return nil, "", err
		}
		hops = append(hops, Hop{Relationship: rel, From: cur, To: to, Local: local, Related: related})
		cur = to
	}
	return hops, strings.Join(segments[i:], "."), nil
}

// EdgeData is the payload of a relationship graph edge.
type EdgeData struct {
	Name       string
	LocalKey   string
	RelatedKey string
}

// Graph returns the relationship graph: one vertex per model and one
// directed edge per relationship. It is built on first use.
func (s *Schema) Graph() (*graph.Graph, error) {
	s.graphOnce.Do(func() {
		s.graph, s.graphErr = s.buildGraph()
	})
	return s.graph, s.graphErr
}

func (s *Schema) buildGraph() (*graph.Graph, error) {
	g := graph.New(true)
	for _, name := range s.ModelNames() {
		if err := g.AddVertex(&graph.Vertex{ID: name, Data: s.Models[name]}); err != nil {
			return nil, err
		}
	}
	for _, name := range s.ModelNames() {
		m := s.Models[name]
		for _, relName := range m.RelationshipNames() {
			rel := m.Relationships[relName]
			local, related, err := rel.JoinColumns()
			if err != nil {
				return nil, fmt.Errorf("model '%s': %w", name, err)
			}
			err = g.AddEdge(&graph.Edge{
				Source: name,
				Target: rel.Model,
				Type:   string(rel.Kind),
				Data:   EdgeData{Name: relName, LocalKey: local, RelatedKey: related},
			})
			if err != nil {
				return nil, fmt.Errorf("model '%s' relationship '%s': %w", name, relName, err)
			}
		}
	}
	return g, nil
}
