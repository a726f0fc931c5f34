package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/linkq/internal/atomicfile"
)

// DefaultFile is the models file name looked up when no path is configured.
const DefaultFile = "models.yaml"

// Load loads the schema from a models YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse models file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema from YAML and fills in defaults.
func Parse(data []byte) (*Schema, error) {
	s := NewSchema()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Models == nil {
		s.Models = make(map[string]*Model)
	}
	s.applyDefaults()
	return s, nil
}

// applyDefaults fills names and conventional key names.
func (s *Schema) applyDefaults() {
	for name, m := range s.Models {
		if m == nil {
			m = &Model{}
			s.Models[name] = m
		}
		m.Name = name
		if m.Table == "" {
			m.Table = name
		}
		if m.PrimaryKey == "" {
			m.PrimaryKey = "id"
		}
		if m.Relationships == nil {
			m.Relationships = make(map[string]*Relationship)
		}
		for relName, rel := range m.Relationships {
			if rel == nil {
				rel = &Relationship{}
				m.Relationships[relName] = rel
			}
			rel.Name = relName
			switch rel.Kind {
			case BelongsTo:
				if rel.OwnerKey == "" {
					rel.OwnerKey = "id"
				}
			case HasOne, HasMany:
				if rel.LocalKey == "" {
					rel.LocalKey = m.PrimaryKey
				}
			}
		}
	}
}

// CreateDefault writes an example models file.
func CreateDefault(path string) error {
	defaultModels := `# linkq models
# Each model maps to a table. Relationships are traversed with dotted
# paths in filters (locality.city.name) and expansions (locality.city).
#
# Relationship types:
#   belongs_to: this model holds foreign_key, pointing at owner_key (default id)
#   has_one:    related model holds foreign_key, pointing at local_key (default primary key)
#   has_many:   same as has_one, any number of related rows

models:
  property:
    table: properties
    attributes: [id, name, locality_id]
    relationships:
      locality:
        type: belongs_to
        model: locality
        foreign_key: locality_id

  locality:
    table: localities
    attributes: [id, name, city_id]
    relationships:
      city:
        type: belongs_to
        model: city
        foreign_key: city_id
      properties:
        type: has_many
        model: property
        foreign_key: locality_id

  city:
    table: cities
    attributes: [id, name]
`
	if err := atomicfile.WriteFile(path, []byte(defaultModels), 0o644); err != nil {
		return fmt.Errorf("failed to write models file: %w", err)
	}
	return nil
}
