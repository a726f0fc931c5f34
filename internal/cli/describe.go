package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/ui"
)

type describeResult struct {
	Model         *schema.Model `json:"model"`
	Columns       []string      `json:"columns"`
	Relationships []string      `json:"relationships"`
	ReachableFrom []string      `json:"reachable_from"`
}

var describeCmd = &cobra.Command{
	Use:   "describe <model>",
	Short: "Describe a model, its columns and relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema()
		if s == nil {
			return err
		}
		m, err := s.Model(args[0])
		if err != nil {
			return handleQueryError(err)
		}
		tree, _, err := traverse(s, m.Name, false)
		if err != nil {
			return handleQueryError(err)
		}

		result := describeResult{
			Model:         m,
			Columns:       m.Columns(),
			Relationships: m.RelationshipNames(),
			ReachableFrom: referencedBy(s, m.Name),
		}
		if isJSONOutput() {
			outputSuccess(result, nil)
			return nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", m.Name)
		fmt.Fprintf(&b, "Table `%s`, primary key `%s`.\n\n", m.Table, m.PrimaryKey)
		fmt.Fprintf(&b, "## Columns\n\n")
		for _, c := range result.Columns {
			fmt.Fprintf(&b, "- `%s`\n", c)
		}
		if len(result.Relationships) > 0 {
			fmt.Fprintf(&b, "\n## Relationships\n\n| name | type | model | join |\n|---|---|---|---|\n")
			for _, name := range result.Relationships {
				rel := m.Relationships[name]
				local, related, _ := rel.JoinColumns()
				fmt.Fprintf(&b, "| %s | %s | %s | %s = %s |\n", name, rel.Kind, rel.Model, local, related)
			}
		}
		if len(result.ReachableFrom) > 0 {
			fmt.Fprintf(&b, "\n## Referenced by\n\n")
			for _, r := range result.ReachableFrom {
				fmt.Fprintf(&b, "- %s\n", r)
			}
		}
		fmt.Fprintf(&b, "\n## Graph\n\n```mermaid\n%s```\n", tree.Mermaid())

		display := ui.NewDisplayContext()
		if !display.IsTTY {
			fmt.Print(b.String())
			return nil
		}
		out, err := ui.RenderMarkdown(b.String(), display.TermWidth)
		if err != nil {
			fmt.Print(b.String())
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

// referencedBy lists "model.relationship" for every relationship targeting name.
func referencedBy(s *schema.Schema, name string) []string {
	var out []string
	for _, other := range s.ModelNames() {
		m := s.Models[other]
		for _, relName := range m.RelationshipNames() {
			if m.Relationships[relName].Model == name {
				out = append(out, other+"."+relName)
			}
		}
	}
	sort.Strings(out)
	return out
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
