package expand

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/slugs"
)

// path is one resolved expansion path.
type path struct {
	Name    string // dotted, e.g. "posts.comments"
	Parent  string // "" for a relationship of the main model
	Segment string // last segment, the key written onto the parent record
	Depth   int
	Rel     *schema.Relationship
	From    *schema.Model
	To      *schema.Model
	Local   string // join column on From
	Related string // join column on To
}

// group is a set of paths fetched with one query.
type group struct {
	ID    string
	Paths []*path // parents before children
	Safe  bool
}

func nonEmpty(paths []string) []string {
	var out []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// collectPaths resolves the requested paths and their ancestors, ordered by
// depth and then request order.
func collectPaths(reg schema.Registry, main *schema.Model, requested []string) ([]*path, error) {
	var out []*path
	seen := make(map[string]*path)
	for _, raw := range nonEmpty(requested) {
		segments := strings.Split(raw, ".")
		cur := main
		parent := ""
		for i, seg := range segments {
			name := strings.Join(segments[:i+1], ".")
			if p, ok := seen[name]; ok {
				cur, parent = p.To, name
				continue
			}
			if seg == "" {
				return nil, fmt.Errorf("invalid expand path '%s'", raw)
			}
			rel, err := reg.Relationship(cur.Name, seg)
			if err != nil {
				return nil, fmt.Errorf("cannot expand '%s': %w", raw, err)
			}
			to, err := reg.Model(rel.Model)
			if err != nil {
				return nil, fmt.Errorf("cannot expand '%s': relationship '%s': %w", raw, seg, err)
			}
			local, related, err := rel.JoinColumns()
			if err != nil {
				return nil, err
			}
			p := &path{
				Name:    name,
				Parent:  parent,
				Segment: seg,
				Depth:   i + 1,
				Rel:     rel,
				From:    cur,
				To:      to,
				Local:   local,
				Related: related,
			}
			seen[name] = p
			out = append(out, p)
			cur, parent = to, name
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out, nil
}

// groupExpandPaths partitions paths by their first segment. A root with a
// single one-segment to-one path is safe to join alongside other such roots;
// every other root gets a group of its own. Joined tables are not aliased, so
// a to-one path whose table is already in the safe group is isolated, and a
// root whose chain revisits a table is split into one group per path.
// The safe group comes first, followed by the others in request order.
func groupExpandPaths(paths []*path) []*group {
	var roots []string
	byRoot := make(map[string][]*path)
	for _, p := range paths {
		root, _, _ := strings.Cut(p.Name, ".")
		if _, ok := byRoot[root]; !ok {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], p)
	}

	safe := &group{Safe: true}
	var safeTables []string
	var isolated []*group
	for _, root := range roots {
		members := byRoot[root]
		if len(members) == 1 && members[0].Depth == 1 && members[0].Rel.ToOne() {
			p := members[0]
			if safeTables == nil {
				safeTables = []string{p.From.Table}
			}
			if !slices.Contains(safeTables, p.To.Table) {
				safe.Paths = append(safe.Paths, p)
				safeTables = append(safeTables, p.To.Table)
				continue
			}
		}
		if len(members) > 1 && revisitsTable(members) {
			for _, p := range members {
				isolated = append(isolated, &group{Paths: []*path{p}})
			}
			continue
		}
		isolated = append(isolated, &group{Paths: members})
	}

	var out []*group
	if len(safe.Paths) > 0 {
		out = append(out, safe)
	}
	out = append(out, isolated...)
	for _, g := range out {
		names := make([]string, len(g.Paths))
		for i, p := range g.Paths {
			names[i] = p.Name
		}
		g.ID = slugs.GroupID(names)
	}
	return out
}

// revisitsTable reports whether joining members onto the main table would
// join some table twice.
func revisitsTable(members []*path) bool {
	seen := map[string]bool{members[0].From.Table: true}
	for _, p := range members {
		if seen[p.To.Table] {
			return true
		}
		seen[p.To.Table] = true
	}
	return false
}
