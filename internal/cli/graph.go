package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/graph"
	"github.com/aidanlsb/linkq/internal/schema"
)

var (
	graphDFS   bool
	graphPaths bool
)

type graphResult struct {
	Model   string     `json:"model"`
	Mode    string     `json:"mode"`
	Mermaid string     `json:"mermaid"`
	Paths   [][]string `json:"paths"`
}

var graphCmd = &cobra.Command{
	Use:   "graph <model>",
	Short: "Print the relationships reachable from a model as a Mermaid diagram",
	Long: `Walks the relationship graph from a model and prints the traversal tree as
Mermaid. The default breadth-first walk visits each model once; --dfs
follows every simple path, so a model may appear under several parents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema()
		if s == nil {
			return err
		}
		tree, mode, err := traverse(s, args[0], graphDFS)
		if err != nil {
			return handleQueryError(err)
		}

		result := graphResult{Model: args[0], Mode: mode, Mermaid: tree.Mermaid(), Paths: tree.Paths()}
		if isJSONOutput() {
			outputSuccess(result, &Meta{Count: len(result.Paths)})
			return nil
		}
		if graphPaths {
			for _, p := range result.Paths {
				fmt.Println(strings.Join(p, " -> "))
			}
			return nil
		}
		fmt.Print(result.Mermaid)
		return nil
	},
}

// traverse builds the BFS or DFS tree of the relationship graph from model.
func traverse(s *schema.Schema, model string, dfs bool) (*graph.TreeNode, string, error) {
	g, err := s.Graph()
	if err != nil {
		return nil, "", err
	}
	mode := "bfs"
	var tree *graph.TreeNode
	if dfs {
		mode = "dfs"
		tree, err = graph.DFSTree(g, model)
	} else {
		tree, err = graph.BFSTree(g, model)
	}
	if errors.Is(err, graph.ErrVertexNotFound) {
		return nil, mode, fmt.Errorf("%w: '%s'", schema.ErrModelNotFound, model)
	}
	return tree, mode, err
}

func init() {
	graphCmd.Flags().BoolVar(&graphDFS, "dfs", false, "Depth-first: include every simple path")
	graphCmd.Flags().BoolVar(&graphPaths, "paths", false, "Print root-to-leaf paths instead of Mermaid")
	rootCmd.AddCommand(graphCmd)
}
