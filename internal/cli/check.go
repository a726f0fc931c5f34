package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/ui"
)

type checkResult struct {
	ModelsPath string         `json:"models_path"`
	Models     []string       `json:"models"`
	Issues     []schema.Issue `json:"issues"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate models.yaml",
	Long:  `Checks every relationship for an existing target model, a supported type and complete join columns.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema()
		if s == nil {
			return err
		}
		issues := schema.Validate(s)
		result := checkResult{ModelsPath: modelsPath(), Models: s.ModelNames(), Issues: issues}
		if result.Issues == nil {
			result.Issues = []schema.Issue{}
		}

		warnings := isolatedModels(s)

		if isJSONOutput() {
			if len(issues) > 0 {
				return handleErrorWithDetails(ErrSchemaInvalid,
					fmt.Sprintf("%d issues in %s", len(issues), result.ModelsPath), "", result)
			}
			outputSuccessWithWarnings(result, warnings, &Meta{Count: len(result.Models)})
			return nil
		}

		fmt.Printf("Checking models: %s %s\n", result.ModelsPath, ui.Count(len(result.Models), "model", "models"))
		for _, w := range warnings {
			fmt.Println(ui.Warning(w.Message))
		}
		if len(issues) == 0 {
			fmt.Println(ui.Success("No issues found"))
			return nil
		}
		for _, issue := range issues {
			fmt.Println(ui.Error(issue.Error()))
		}
		return fmt.Errorf("found %d issues", len(issues))
	},
}

// isolatedModels warns about models that declare no relationships and are
// not the target of any. Filters on them can never traverse anywhere.
func isolatedModels(s *schema.Schema) []Warning {
	var warnings []Warning
	for _, name := range s.ModelNames() {
		if len(s.Models[name].Relationships) == 0 && len(referencedBy(s, name)) == 0 {
			warnings = append(warnings, Warning{
				Code:    WarnIsolatedModel,
				Message: fmt.Sprintf("model '%s' has no relationships and is not referenced", name),
			})
		}
	}
	return warnings
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
