// Package schema handles model and relationship metadata.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aidanlsb/linkq/internal/graph"
)

var (
	// ErrModelNotFound indicates a model name is not registered.
	ErrModelNotFound = errors.New("model not found")
	// ErrRelationshipNotFound indicates a model declares no relationship with the given name.
	ErrRelationshipNotFound = errors.New("relationship not found")
	// ErrUnsupportedRelationship indicates a relationship kind outside belongs_to/has_one/has_many.
	ErrUnsupportedRelationship = errors.New("unsupported relationship type")
)

// Kind is the relationship kind.
type Kind string

const (
	BelongsTo Kind = "belongs_to" // current model holds the foreign key
	HasOne    Kind = "has_one"    // related model holds the foreign key, at most one row
	HasMany   Kind = "has_many"   // related model holds the foreign key, any number of rows
)

// Schema is the set of registered models, loaded from models.yaml.
type Schema struct {
	Models map[string]*Model `yaml:"models"`

	graphOnce sync.Once
	graph     *graph.Graph
	graphErr  error
}

// Model describes one entity and the table that stores it.
type Model struct {
	Name          string                   `yaml:"-" json:"name"`
	Table         string                   `yaml:"table,omitempty" json:"table"`
	PrimaryKey    string                   `yaml:"primary_key,omitempty" json:"primary_key"`
	Attributes    []string                 `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Relationships map[string]*Relationship `yaml:"relationships,omitempty" json:"relationships,omitempty"`
}

// Relationship describes a foreign-key link from a model to a related model.
type Relationship struct {
	Name       string `yaml:"-" json:"name"`
	Kind       Kind   `yaml:"type" json:"type"`
	Model      string `yaml:"model" json:"model"`                             // related model name
	ForeignKey string `yaml:"foreign_key" json:"foreign_key"`                 // on the current model (belongs_to) or the related model (has_*)
	OwnerKey   string `yaml:"owner_key,omitempty" json:"owner_key,omitempty"` // belongs_to: referenced column on the related model
	LocalKey   string `yaml:"local_key,omitempty" json:"local_key,omitempty"` // has_*: referenced column on the current model
}

// JoinColumns returns the column on the declaring model and the column on the
// related model that join the two.
func (r *Relationship) JoinColumns() (local, related string, err error) {
	switch r.Kind {
	case BelongsTo:
		return r.ForeignKey, r.OwnerKey, nil
	case HasOne, HasMany:
		return r.LocalKey, r.ForeignKey, nil
	default:
		return "", "", fmt.Errorf("%w '%s' on relationship '%s'", ErrUnsupportedRelationship, r.Kind, r.Name)
	}
}

// ToOne reports whether the relationship yields at most one related row.
func (r *Relationship) ToOne() bool {
	return r.Kind == BelongsTo || r.Kind == HasOne
}

// Columns returns the columns selected when the model is loaded.
//
// The primary key comes first, then the declared attributes, then every join
// column the model owns that was not declared.
func (m *Model) Columns() []string {
	cols := []string{m.PrimaryKey}
	seen := map[string]bool{m.PrimaryKey: true}
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, a := range m.Attributes {
		add(a)
	}
	for _, name := range m.RelationshipNames() {
		if local, _, err := m.Relationships[name].JoinColumns(); err == nil {
			add(local)
		}
	}
	return cols
}

// RelationshipNames returns relationship names in sorted order.
func (m *Model) RelationshipNames() []string {
	names := make([]string, 0, len(m.Relationships))
	for name := range m.Relationships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{Models: make(map[string]*Model)}
}

// Model implements Registry.
func (s *Schema) Model(name string) (*Model, error) {
	m, ok := s.Models[name]
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrModelNotFound, name)
	}
	return m, nil
}

// Relationship implements Registry.
func (s *Schema) Relationship(model, name string) (*Relationship, error) {
	m, err := s.Model(model)
	if err != nil {
		return nil, err
	}
	rel, ok := m.Relationships[name]
	if !ok || rel == nil {
		return nil, fmt.Errorf("%w: model '%s' has no relationship '%s'", ErrRelationshipNotFound, model, name)
	}
	return rel, nil
}

// ModelNames returns registered model names in sorted order.
func (s *Schema) ModelNames() []string {
	names := make([]string, 0, len(s.Models))
	for name := range s.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry is the read-only lookup the resolver and expander depend on.
type Registry interface {
	Model(name string) (*Model, error)
	Relationship(model, name string) (*Relationship, error)
}
