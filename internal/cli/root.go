package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/config"
	"github.com/aidanlsb/linkq/internal/engine"
	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
	"github.com/aidanlsb/linkq/internal/sqlbackend"
	"github.com/aidanlsb/linkq/internal/ui"
)

var (
	// Global flags
	configPath string
	modelsFlag string
	driverFlag string
	dsnFlag    string
	verbose    bool

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "linkq",
	Short: "linkq - relationship-aware queries over relational data",
	Long: `linkq resolves filters on related models into key lookups and eager-loads
related records onto query results.

Models and their relationships are declared in models.yaml. Filters can
reach across relationships with dotted paths such as locality.city.name.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "init", "completion", "help", "version":
			return nil
		}

		var err error
		cfg, resolvedConfigPath, err = loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, fmt.Errorf("failed to load config: %w", err), "")
		}
		if accent := strings.TrimSpace(cfg.UI.Accent); accent != "" {
			ui.ConfigureTheme(accent)
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&modelsFlag, "models", "", "Path to models.yaml (overrides config)")
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: sqlite or postgres (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "Database DSN (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log every operation sent to the database")
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := config.ResolvePath(configPath)

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(configPath)
	} else {
		loadedCfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	if loadedCfg == nil {
		loadedCfg = &config.Config{}
	}

	return loadedCfg, resolvedPath, nil
}

// modelsPath returns the models file to load: the flag, then the config.
func modelsPath() string {
	if p := strings.TrimSpace(modelsFlag); p != "" {
		return p
	}
	return getConfig().ModelsPath()
}

// loadSchema loads and reports the models file.
func loadSchema() (*schema.Schema, error) {
	path := modelsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, handleErrorMsg(ErrSchemaNotFound,
			fmt.Sprintf("models file not found: %s", path),
			"Run 'linkq init' to create one, or pass --models")
	}
	s, err := schema.Load(path)
	if err != nil {
		return nil, handleError(ErrSchemaInvalid, err, "")
	}
	return s, nil
}

// newLogger builds the stderr logger. --verbose forces debug.
func newLogger() (*slog.Logger, error) {
	level, err := getConfig().LogLevel()
	if err != nil {
		return nil, handleError(ErrConfigInvalid, err, "")
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// openDatabase opens the configured database. Flags override config.
func openDatabase() (*sql.DB, sqlbackend.Dialect, error) {
	c := getConfig()
	driver := c.Driver()
	if strings.TrimSpace(driverFlag) != "" {
		driver = driverFlag
	}
	dsn := c.Database.DSN
	if strings.TrimSpace(dsnFlag) != "" {
		dsn = dsnFlag
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, "", handleErrorMsg(ErrMissingArgument, "no database configured",
			"Set [database] dsn in config.toml or pass --dsn")
	}
	db, dialect, err := sqlbackend.Open(driver, dsn)
	if err != nil {
		return nil, "", handleError(ErrDatabaseError, err, "")
	}
	return db, dialect, nil
}

// runtimeEnv is everything a query command needs.
type runtimeEnv struct {
	schema   *schema.Schema
	db       *sql.DB
	dialect  sqlbackend.Dialect
	recorder *ops.Recorder
	engine   *engine.Engine
	logger   *slog.Logger
}

func (r *runtimeEnv) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

// openRuntime loads models, opens the database and builds an engine whose
// backend calls are recorded.
func openRuntime() (*runtimeEnv, error) {
	s, err := loadSchema()
	if err != nil || s == nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil || logger == nil {
		return nil, err
	}
	db, dialect, err := openDatabase()
	if err != nil || db == nil {
		return nil, err
	}
	backend := sqlbackend.New(db, s, dialect, sqlbackend.WithLogger(logger))
	rec := ops.NewRecorder(backend)
	return &runtimeEnv{
		schema:   s,
		db:       db,
		dialect:  dialect,
		recorder: rec,
		engine:   engine.New(s, rec, engine.WithLogger(logger)),
		logger:   logger,
	}, nil
}
