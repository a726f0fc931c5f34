package testutil

import (
	"testing"

	"github.com/aidanlsb/linkq/internal/schema"
)

// ModelsYAML describes two small domains: properties located in localities,
// cities and states, and users with posts, comments, profiles and companies.
const ModelsYAML = `models:
  property:
    table: properties
    attributes: [id, name, price, locality_id, owner_id]
    relationships:
      locality:
        type: belongs_to
        model: locality
        foreign_key: locality_id
      owner:
        type: belongs_to
        model: user
        foreign_key: owner_id
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
    attributes: [id, name, state_id]
    relationships:
      state:
        type: belongs_to
        model: state
        foreign_key: state_id
  state:
    table: states
    attributes: [id, name]
  user:
    table: users
    attributes: [id, name, company_id]
    relationships:
      posts:
        type: has_many
        model: post
        foreign_key: user_id
      profile:
        type: has_one
        model: profile
        foreign_key: user_id
      company:
        type: belongs_to
        model: company
        foreign_key: company_id
  post:
    table: posts
    attributes: [id, user_id, title, status]
    relationships:
      comments:
        type: has_many
        model: comment
        foreign_key: post_id
  comment:
    table: comments
    attributes: [id, post_id, body]
  profile:
    table: profiles
    attributes: [id, user_id, bio]
  company:
    table: companies
    attributes: [id, name]
`

// FixtureSQL creates and seeds the tables described by ModelsYAML.
var FixtureSQL = []string{
	`CREATE TABLE states (id INTEGER PRIMARY KEY, name TEXT)`,
	`CREATE TABLE cities (id INTEGER PRIMARY KEY, name TEXT, state_id INTEGER)`,
	`CREATE TABLE localities (id INTEGER PRIMARY KEY, name TEXT, city_id INTEGER)`,
	`CREATE TABLE properties (id INTEGER PRIMARY KEY, name TEXT, price INTEGER, locality_id INTEGER, owner_id INTEGER)`,
	`CREATE TABLE companies (id INTEGER PRIMARY KEY, name TEXT)`,
	`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, company_id INTEGER)`,
	`CREATE TABLE profiles (id INTEGER PRIMARY KEY, user_id INTEGER, bio TEXT)`,
	`CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT, status TEXT)`,
	`CREATE TABLE comments (id INTEGER PRIMARY KEY, post_id INTEGER, body TEXT)`,

	`INSERT INTO states (id, name) VALUES (1, 'Maharashtra'), (2, 'Karnataka')`,
	`INSERT INTO cities (id, name, state_id) VALUES (1, 'Mumbai', 1), (2, 'Pune', 1), (3, 'Bengaluru', 2)`,
	`INSERT INTO localities (id, name, city_id) VALUES (1, 'Bandra', 1), (2, 'Andheri', 1), (3, 'Kothrud', 2), (4, 'Indiranagar', 3)`,
	`INSERT INTO companies (id, name) VALUES (1, 'Acme'), (2, 'Globex')`,
	`INSERT INTO users (id, name, company_id) VALUES (1, 'Asha', 1), (2, 'Ravi', 2), (3, 'Meera', NULL)`,
	`INSERT INTO properties (id, name, price, locality_id, owner_id) VALUES
		(1, 'Sea View', 500, 1, 1),
		(2, 'Hill Top', 300, 2, 2),
		(3, 'Garden', 200, 3, 1),
		(4, 'Lakeside', 400, 4, 3),
		(5, 'Studio', 150, 1, NULL)`,
	`INSERT INTO profiles (id, user_id, bio) VALUES (1, 1, 'writer')`,
	`INSERT INTO posts (id, user_id, title, status) VALUES (1, 1, 'a', 'published'), (2, 1, 'b', 'draft'), (3, 3, 'c', 'published')`,
	`INSERT INTO comments (id, post_id, body) VALUES (1, 1, 'nice'), (2, 1, 'agreed'), (3, 3, 'hello')`,
}

// Schema parses ModelsYAML.
func Schema(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(ModelsYAML))
	if err != nil {
		t.Fatalf("failed to parse fixture models: %v", err)
	}
	return s
}
