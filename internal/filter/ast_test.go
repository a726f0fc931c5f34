package filter

import (
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	rels, field := SplitPath("locality.city.state.name")
	if !reflect.DeepEqual(rels, []string{"locality", "city", "state"}) || field != "name" {
		t.Errorf("SplitPath() = %v, %q", rels, field)
	}

	rels, field = SplitPath("name")
	if len(rels) != 0 || field != "name" {
		t.Errorf("SplitPath(name) = %v, %q", rels, field)
	}

	if Root("locality.name") != "locality" || Root("name") != "" {
		t.Error("unexpected Root()")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := NewAnd(
		AnyOf("id", []any{1, 2}),
		NewOr(Where("name", OpEquals, "a")),
		Equals("status", "active"),
	)
	copied := Clone(original).(*Group)

	copied.Conditions[0].(*Condition).Value.([]any)[0] = 99
	copied.Conditions[1].(*Group).Conditions[0].(*Condition).Attribute = "changed"
	copied.Conditions[2].(*PrimitiveSet).Set("status", "paused")

	if original.Conditions[0].(*Condition).Value.([]any)[0] != 1 {
		t.Error("clone shares list values")
	}
	if original.Conditions[1].(*Group).Conditions[0].(*Condition).Attribute != "name" {
		t.Error("clone shares nested groups")
	}
	if original.Conditions[2].(*PrimitiveSet).Values["status"] != "active" {
		t.Error("clone shares primitive set values")
	}
}

func TestConditionsFlattens(t *testing.T) {
	g := NewAnd(
		Where("a", OpEquals, 1),
		NewOr(Where("b", OpEquals, 2), Equals("c", 3, "d", 4)),
	)
	var attrs []string
	for _, c := range Conditions(g) {
		attrs = append(attrs, c.Attribute)
	}
	if !reflect.DeepEqual(attrs, []string{"a", "b", "c", "d"}) {
		t.Errorf("Conditions() attributes = %v", attrs)
	}
}

func TestPrimitiveSetKeepsOrder(t *testing.T) {
	ps := Equals("b", 1, "a", 2)
	ps.Set("b", 3)
	g := ps.Group()
	if len(g.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(g.Conditions))
	}
	first := g.Conditions[0].(*Condition)
	if first.Attribute != "b" || first.Value != 3 {
		t.Errorf("first condition = %+v", first)
	}
}

func TestGroupOperatorBase(t *testing.T) {
	if BatchedAnd.Base() != And || BatchedOr.Base() != Or || Or.Base() != Or {
		t.Error("unexpected Base()")
	}
}

func TestListValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []any
		ok   bool
	}{
		{"any slice", []any{1, "a"}, []any{1, "a"}, true},
		{"string slice", []string{"a", "b"}, []any{"a", "b"}, true},
		{"int64 slice", []int64{1, 2}, []any{int64(1), int64(2)}, true},
		{"array", [2]int{3, 4}, []any{3, 4}, true},
		{"scalar", "a", nil, false},
		{"nil", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ListValues(tt.in)
			if ok != tt.ok || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ListValues(%v) = %v, %v", tt.in, got, ok)
			}
		})
	}
}
