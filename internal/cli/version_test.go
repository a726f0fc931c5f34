package cli

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	t.Cleanup(func() { readBuildInfo = prev })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return bi, bi != nil
	}
}

func releaseBuild(version string, modified bool) *debug.BuildInfo {
	dirty := "false"
	if modified {
		dirty = "true"
	}
	return &debug.BuildInfo{
		GoVersion: "go1.24.2",
		Main:      debug.Module{Path: "github.com/aidanlsb/linkq", Version: version},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-09-30T08:00:00Z"},
			{Key: "vcs.modified", Value: dirty},
			{Key: "GOOS", Value: "linux"},
			{Key: "GOARCH", Value: "arm64"},
		},
	}
}

func TestCurrentVersionInfo(t *testing.T) {
	tests := []struct {
		name     string
		build    *debug.BuildInfo
		version  string
		commit   string
		platform string
		modified bool
	}{
		{"release", releaseBuild("v0.4.1", false), "v0.4.1", "abc123", "linux/arm64", false},
		{"modified tree", releaseBuild("(devel)", true), "devel", "abc123", "linux/arm64", true},
		{"no build info", nil, "devel", "", runtime.GOOS + "/" + runtime.GOARCH, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubBuildInfo(t, tt.build)
			info := currentVersionInfo()
			if info.Version != tt.version {
				t.Errorf("Version = %q, want %q", info.Version, tt.version)
			}
			if info.Commit != tt.commit {
				t.Errorf("Commit = %q, want %q", info.Commit, tt.commit)
			}
			if info.Platform != tt.platform {
				t.Errorf("Platform = %q, want %q", info.Platform, tt.platform)
			}
			if info.Modified != tt.modified {
				t.Errorf("Modified = %v, want %v", info.Modified, tt.modified)
			}
			if info.ModulePath != defaultModulePath {
				t.Errorf("ModulePath = %q", info.ModulePath)
			}
			if len(info.Drivers) != 2 {
				t.Errorf("Drivers = %v", info.Drivers)
			}
		})
	}
}

func TestVersionCommandJSON(t *testing.T) {
	stubBuildInfo(t, releaseBuild("v0.4.1", false))
	prevJSON := jsonOutput
	t.Cleanup(func() { jsonOutput = prevJSON })
	jsonOutput = true

	out := captureStdout(t, func() {
		if err := versionCmd.RunE(versionCmd, nil); err != nil {
			t.Fatalf("versionCmd.RunE: %v", err)
		}
	})

	var resp struct {
		OK   bool        `json:"ok"`
		Data versionInfo `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON output, got parse error: %v; out=%s", err, out)
	}
	if !resp.OK || resp.Data.Version != "v0.4.1" || resp.Data.GoVersion != "go1.24.2" {
		t.Errorf("unexpected response: %s", out)
	}
}
