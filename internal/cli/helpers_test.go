package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/aidanlsb/linkq/internal/testutil"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = orig
	return <-done
}

// setupCLI writes a config pointing at a fixture database and returns its path.
func setupCLI(t *testing.T) string {
	t.Helper()
	tdb := testutil.NewTestDB(t).WithFixtures().Build()
	path := filepath.Join(tdb.Dir, "config.toml")
	content := "models = \"models.yaml\"\n\n[database]\ndriver = \"sqlite\"\ndsn = \"" + filepath.ToSlash(tdb.DBPath) + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI executes the root command with args, returning stdout and the error.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	var err error
	out := captureStdout(t, func() {
		rootCmd.SetArgs(args)
		err = rootCmd.Execute()
	})
	return out, err
}

// resetFlags restores flag state left over from a previous run.
func resetFlags(t *testing.T) {
	t.Helper()
	configPath, modelsFlag, driverFlag, dsnFlag = "", "", "", ""
	jsonOutput, verbose = false, false
	queryFilter, resolveFilter = "", ""
	graphDFS, graphPaths = false, false
	initForce, serveAddr, serveWatch = false, "", false
	cfg = nil

	if sv, ok := queryCmd.Flags().Lookup("expand").Value.(pflag.SliceValue); ok {
		_ = sv.Replace(nil)
	}
	queryExpand = nil
}
