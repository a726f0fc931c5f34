package expand

import (
	"maps"
	"strings"

	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

// bucket holds the related records of one parent, unique by primary key.
type bucket struct {
	records []map[string]any
	seen    map[string]bool
}

func (b *bucket) add(rec map[string]any, pk any) {
	if pk != nil {
		k := ops.Key(pk)
		if b.seen[k] {
			return
		}
		b.seen[k] = true
	}
	b.records = append(b.records, rec)
}

// mapAliasedResults folds flat rows into per-parent related records and
// writes them onto records, parents before nested paths.
func mapAliasedResults(p *plan, rows []ops.Row, records []map[string]any) {
	for _, ep := range p.group.Paths {
		buckets := foldRows(ep, p.columns[ep.Name], p.keys[ep.Name], rows, !p.joined)

		// A single-path group is keyed by the parent's join value; joined
		// rows are keyed by the parent's primary key.
		parentKey := ep.Local
		if p.joined {
			parentKey = ep.From.PrimaryKey
		}
		for _, container := range containers(records, ep.Parent) {
			var related []map[string]any
			if v := container[parentKey]; v != nil {
				if b := buckets[ops.Key(v)]; b != nil {
					related = b.records
				}
			}
			write(container, ep, related)
		}
	}
}

// foldRows groups the related records found in rows by parent key.
// Rows whose related columns are all null are LEFT JOIN misses and skipped.
// Rows of a single-table query may come back keyed by bare column names.
func foldRows(ep *path, cols []column, key string, rows []ops.Row, bare bool) map[string]*bucket {
	buckets := make(map[string]*bucket)
	for _, row := range rows {
		parent, ok := row[key]
		if !ok && bare {
			parent = row[ep.Related]
		}
		if parent == nil {
			continue
		}
		rec, ok := extract(row, cols, bare)
		if !ok {
			continue
		}
		k := ops.Key(parent)
		b := buckets[k]
		if b == nil {
			b = &bucket{seen: make(map[string]bool)}
			buckets[k] = b
		}
		b.add(rec, rec[ep.To.PrimaryKey])
	}
	return buckets
}

// extract reads one model's columns out of an aliased row. Columns missing
// from the row are left out of the record.
func extract(row ops.Row, cols []column, bare bool) (map[string]any, bool) {
	rec := make(map[string]any, len(cols))
	found := false
	for _, c := range cols {
		v, ok := row[c.Alias]
		if !ok && bare {
			v, ok = row[c.Name]
		}
		if !ok {
			continue
		}
		if v != nil {
			found = true
		}
		rec[c.Name] = v
	}
	return rec, found
}

// write sets the related records of ep on container.
func write(container map[string]any, ep *path, related []map[string]any) {
	if ep.Rel.Kind == schema.HasMany {
		list := make([]map[string]any, len(related))
		for i, rec := range related {
			list[i] = maps.Clone(rec)
		}
		container[ep.Segment] = list
		return
	}
	if len(related) == 0 {
		container[ep.Segment] = nil
		return
	}
	container[ep.Segment] = maps.Clone(related[0])
}

// containers returns the records found at a dotted path below records.
// An empty path returns records themselves.
func containers(records []map[string]any, dotted string) []map[string]any {
	if dotted == "" {
		return records
	}
	cur := records
	for _, seg := range strings.Split(dotted, ".") {
		var next []map[string]any
		for _, rec := range cur {
			switch v := rec[seg].(type) {
			case map[string]any:
				next = append(next, v)
			case []map[string]any:
				next = append(next, v...)
			case []any:
				for _, item := range v {
					if m, ok := item.(map[string]any); ok {
						next = append(next, m)
					}
				}
			}
		}
		cur = next
	}
	return cur
}
