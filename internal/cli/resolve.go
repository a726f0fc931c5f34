package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/ui"
)

var resolveFilter string

type resolveResult struct {
	Model      string           `json:"model"`
	Filters    any              `json:"filters"`
	Resolved   any              `json:"resolved"`
	Operations []map[string]any `json:"operations"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <model>",
	Short: "Show how relationship conditions resolve to key lookups",
	Long: `Resolves the relationship conditions of a filter without selecting the main
records. Prints the rewritten filter and every operation sent to the
database along the way.`,
	Example: `  linkq resolve property --filter '[{"attribute": "locality.city.name", "op": "eq", "value": "Mumbai"}]'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parseFilterFlag(resolveFilter)
		if err != nil {
			return handleQueryError(err)
		}
		if f == nil {
			return handleErrorMsg(ErrMissingArgument, "--filter is required", "Pass a filter as JSON")
		}

		env, err := openRuntime()
		if env == nil {
			return err
		}
		defer env.Close()

		resolved, err := env.engine.Resolve(context.Background(), args[0], f)
		if err != nil {
			return handleQueryError(err)
		}

		operations := env.recorder.Operations()
		result := resolveResult{
			Model:      args[0],
			Filters:    f.Map(),
			Resolved:   resolved.Map(),
			Operations: make([]map[string]any, len(operations)),
		}
		for i, op := range operations {
			result.Operations[i] = op.Map()
		}

		if isJSONOutput() {
			outputSuccess(result, &Meta{Operations: len(operations)})
			return nil
		}

		fmt.Println(ui.Header("Filter"))
		fmt.Printf("  %s\n\n", f.String())
		fmt.Println(ui.Header("Resolved"))
		fmt.Printf("  %s\n\n", resolved.String())
		fmt.Printf("%s %s\n", ui.Header("Operations"), ui.Count(len(operations), "operation", "operations"))
		for i, op := range result.Operations {
			data, err := json.MarshalIndent(op, "  ", "  ")
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			fmt.Printf("  %s %s\n", ui.Hint(fmt.Sprintf("%d.", i+1)), data)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveFilter, "filter", "f", "", "Filter as JSON")
	rootCmd.AddCommand(resolveCmd)
}
