package ops

import (
	"errors"
	"fmt"
)

// ErrTableRevisited indicates a join path reaches a table that is already
// part of the operation.
var ErrTableRevisited = errors.New("table revisited")

// JoinSet accumulates the joins of one operation. Each relationship path is
// joined at most once, so paths that share a prefix reuse its joins.
type JoinSet struct {
	typ    JoinType
	built  map[string]bool
	tables map[string]string // joined table -> path that joined it
	joins  []Join
}

// NewJoinSet starts a join set for an operation on mainTable.
func NewJoinSet(typ JoinType, mainTable string) *JoinSet {
	return &JoinSet{
		typ:    typ,
		built:  make(map[string]bool),
		tables: map[string]string{mainTable: ""},
	}
}

// Add joins table for path unless path was already joined. left and right
// are the qualified columns of the join condition.
//
// Tables are not aliased, so joining the same table under two different
// paths is an error.
func (s *JoinSet) Add(path, table, left, right string) error {
	if s.built[path] {
		return nil
	}
	if owner, taken := s.tables[table]; taken {
		if owner == "" {
			return fmt.Errorf("%w: join path '%s' revisits the main table '%s'", ErrTableRevisited, path, table)
		}
		return fmt.Errorf("%w: join path '%s' revisits table '%s' already joined for '%s'", ErrTableRevisited, path, table, owner)
	}
	s.built[path] = true
	s.tables[table] = path
	s.joins = append(s.joins, NewJoin(s.typ, table, left, right))
	return nil
}

// Joins returns the joins in the order they were added.
func (s *JoinSet) Joins() []Join {
	return append([]Join(nil), s.joins...)
}

// Len returns the number of joins.
func (s *JoinSet) Len() int {
	return len(s.joins)
}
