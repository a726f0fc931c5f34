package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/linkq/internal/buildinfo"
	"github.com/aidanlsb/linkq/internal/sqlbackend"
	"github.com/aidanlsb/linkq/internal/ui"
)

const defaultModulePath = "github.com/aidanlsb/linkq"

type versionInfo struct {
	Version    string   `json:"version"`
	ModulePath string   `json:"module_path"`
	Commit     string   `json:"commit,omitempty"`
	CommitTime string   `json:"commit_time,omitempty"`
	Modified   bool     `json:"modified"`
	GoVersion  string   `json:"go_version"`
	Platform   string   `json:"platform"`
	Drivers    []string `json:"drivers"`
}

var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show linkq version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersionInfo()
		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}

		fmt.Printf("%s %s\n", ui.Header("linkq"), info.Version)
		rows := [][2]string{
			{"module", info.ModulePath},
			{"commit", info.Commit},
			{"commit_time", info.CommitTime},
			{"go", info.GoVersion},
			{"platform", info.Platform},
			{"drivers", strings.Join(info.Drivers, ", ")},
		}
		for _, row := range rows {
			if row[1] != "" {
				fmt.Printf("%s %s\n", ui.Muted.Render(row[0]+":"), row[1])
			}
		}
		if info.Modified {
			fmt.Println(ui.Hint("built from a modified working tree"))
		}
		return nil
	},
}

// currentVersionInfo merges module build info with values stamped into
// buildinfo. Build info wins where both are set.
func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:    "devel",
		ModulePath: defaultModulePath,
		GoVersion:  runtime.Version(),
		Drivers:    []string{string(sqlbackend.SQLite), string(sqlbackend.Postgres)},
	}
	goos, goarch := runtime.GOOS, runtime.GOARCH

	if bi, ok := readBuildInfo(); ok && bi != nil {
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
		if bi.Main.Path != "" {
			info.ModulePath = bi.Main.Path
		}
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		info.Version = normalizeVersion(bi.Main.Version)
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = strings.EqualFold(settings["vcs.modified"], "true")
		goos = firstNonEmpty(settings["GOOS"], goos)
		goarch = firstNonEmpty(settings["GOARCH"], goarch)
	}

	if info.Version == "devel" {
		info.Version = normalizeVersion(buildinfo.Version)
	}
	info.Commit = firstNonEmpty(info.Commit, buildinfo.Commit)
	info.CommitTime = firstNonEmpty(info.CommitTime, buildinfo.Date)
	info.Platform = goos + "/" + goarch
	return info
}

func normalizeVersion(version string) string {
	if version == "" || version == "(devel)" {
		return "devel"
	}
	return version
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
