package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/config"
	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/ui"
)

var initForce bool

type initResult struct {
	ConfigPath string `json:"config_path"`
	ModelsPath string `json:"models_path"`
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a config file and an example models.yaml",
	Long: `Writes config.toml and models.yaml into dir (default: the current
directory). With no dir and no --config, the config goes to the default
location (~/.config/linkq/config.toml).

An existing config is only replaced with --force or after confirming at the
prompt. An existing models.yaml is kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfgPath string
		switch {
		case configPath != "":
			cfgPath = configPath
		case len(args) == 1:
			cfgPath = filepath.Join(args[0], "config.toml")
		}

		if cfgPath == "" {
			path, err := config.CreateDefault()
			if err != nil {
				return handleError(ErrFileWriteError, err, "")
			}
			cfgPath = path
		} else {
			if _, err := os.Stat(cfgPath); err == nil && !initForce && !confirmOverwrite(cfgPath) {
				return handleErrorMsg(ErrFileExists, fmt.Sprintf("config already exists: %s", cfgPath), "Use --force to overwrite")
			}
			c := &config.Config{
				Models:   config.DefaultModels,
				Database: config.DatabaseConfig{Driver: config.DefaultDriver},
				Log:      config.LogConfig{Level: "warn"},
				Server:   config.ServerConfig{Addr: config.DefaultAddr},
			}
			if err := config.SaveTo(cfgPath, c); err != nil {
				return handleError(ErrFileWriteError, err, "")
			}
		}

		modelsFile := filepath.Join(filepath.Dir(cfgPath), config.DefaultModels)
		if modelsFlag != "" {
			modelsFile = modelsFlag
		}
		if _, err := os.Stat(modelsFile); os.IsNotExist(err) || initForce {
			if err := schema.CreateDefault(modelsFile); err != nil {
				return handleError(ErrFileWriteError, err, "")
			}
		}

		if isJSONOutput() {
			outputSuccess(initResult{ConfigPath: cfgPath, ModelsPath: modelsFile}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Wrote %s", cfgPath))
		fmt.Println(ui.Successf("Wrote %s", modelsFile))
		fmt.Println(ui.Hint("Set [database] dsn, then run 'linkq check'."))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}
