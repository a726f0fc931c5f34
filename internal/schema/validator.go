package schema

import (
	"fmt"
	"sort"
)

// Issue is a metadata inconsistency found by Validate.
type Issue struct {
	Model        string `json:"model"`
	Relationship string `json:"relationship,omitempty"`
	Message      string `json:"message"`
}

func (i Issue) Error() string {
	if i.Relationship != "" {
		return fmt.Sprintf("model '%s' relationship '%s': %s", i.Model, i.Relationship, i.Message)
	}
	return fmt.Sprintf("model '%s': %s", i.Model, i.Message)
}

// Validate checks that every relationship points at a registered model with
// a supported kind and complete join columns.
func Validate(s *Schema) []Issue {
	var issues []Issue

	tables := make(map[string]string)
	for _, name := range s.ModelNames() {
		m := s.Models[name]

		if other, ok := tables[m.Table]; ok {
			issues = append(issues, Issue{
				Model:   name,
				Message: fmt.Sprintf("table '%s' is already used by model '%s'", m.Table, other),
			})
		} else {
			tables[m.Table] = name
		}

		for _, relName := range m.RelationshipNames() {
			rel := m.Relationships[relName]
			issue := func(msg string, args ...any) {
				issues = append(issues, Issue{Model: name, Relationship: relName, Message: fmt.Sprintf(msg, args...)})
			}

			if _, ok := s.Models[rel.Model]; !ok {
				issue("related model '%s' is not defined", rel.Model)
			}
			local, related, err := rel.JoinColumns()
			if err != nil {
				issue("unsupported type '%s' (use belongs_to, has_one or has_many)", rel.Kind)
				continue
			}
			if rel.ForeignKey == "" {
				issue("foreign_key is required")
			}
			if local == "" || related == "" {
				issue("join columns are incomplete")
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Model != issues[j].Model {
			return issues[i].Model < issues[j].Model
		}
		return issues[i].Relationship < issues[j].Relationship
	})
	return issues
}
