package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/engine"
	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/ui"
)

var (
	queryFilter string
	queryExpand []string
)

var queryCmd = &cobra.Command{
	Use:   "query <model>",
	Short: "Query a model, filtering and expanding across relationships",
	Long: `Selects records of a model.

--filter takes JSON in any of these shapes:
  {"op": "and", "conditions": [{"attribute": "locality.city.name", "op": "eq", "value": "Mumbai"}]}
  [{"attribute": "price", "op": "gt", "value": 100}]
  {"status": "active"}

--expand loads related records onto each result; nested paths such as
posts.comments load their parents too.`,
	Example: `  linkq query property --filter '{"locality.city.name": "Mumbai"}' --expand locality
  linkq query user --expand posts.comments,profile --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parseFilterFlag(queryFilter)
		if err != nil {
			return handleQueryError(err)
		}

		env, err := openRuntime()
		if env == nil {
			return err
		}
		defer env.Close()

		start := time.Now()
		resp, err := env.engine.Query(context.Background(), engine.Request{
			Model:   args[0],
			Filters: f,
			Expand:  splitExpand(queryExpand),
		})
		if err != nil {
			return handleQueryError(err)
		}
		elapsed := time.Since(start).Milliseconds()

		if isJSONOutput() {
			outputSuccess(resp, &Meta{
				Count:       len(resp.Records),
				Operations:  len(env.recorder.Operations()),
				QueryTimeMs: elapsed,
			})
			return nil
		}

		if len(resp.Records) == 0 {
			fmt.Println(ui.Hint(fmt.Sprintf("No %s records matched.", resp.Model)))
			return nil
		}
		model, _ := env.schema.Model(resp.Model)
		tbl := ui.NewRecordsTable(ui.NewDisplayContext(), model.Columns(), resp.Records)
		fmt.Printf("%s %s\n\n", ui.Header(ui.Model(resp.Model)), ui.Count(len(resp.Records), "record", "records"))
		fmt.Println(tbl.Render())
		fmt.Println(ui.Hint(fmt.Sprintf("%d operations in %dms", len(env.recorder.Operations()), elapsed)))
		return nil
	},
}

// parseFilterFlag parses a --filter value. An empty value means no filter.
func parseFilterFlag(raw string) (*filter.Group, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return filter.ParseJSON([]byte(raw))
}

// splitExpand accepts repeated and comma-separated --expand values.
func splitExpand(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func init() {
	queryCmd.Flags().StringVarP(&queryFilter, "filter", "f", "", "Filter as JSON")
	queryCmd.Flags().StringSliceVarP(&queryExpand, "expand", "e", nil, "Relationship paths to load (comma-separated)")
	rootCmd.AddCommand(queryCmd)
}
