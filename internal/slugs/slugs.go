// Package slugs provides identifier helpers built on gosimple/slug.
package slugs

import (
	"sort"
	"strings"

	goslug "github.com/gosimple/slug"
)

// PathSlug slugifies a dotted relationship path: "posts.comments" -> "posts-comments".
func PathSlug(path string) string {
	slugged := goslug.Make(path)
	if slugged == "" {
		slugged = strings.ToLower(strings.NewReplacer(".", "-", " ", "-").Replace(path))
	}
	return slugged
}

// GroupID returns a stable id for a set of expansion paths. The id does not
// depend on the order paths are given in.
//
//	GroupID([]string{"posts.comments", "posts"}) == "posts+posts-comments"
func GroupID(paths []string) string {
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = PathSlug(p)
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

// DiagramID makes id usable as a Mermaid node id. Runes outside
// [A-Za-z0-9_] become underscores. Case is kept.
func DiagramID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
