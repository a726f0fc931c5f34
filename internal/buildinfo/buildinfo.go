// Package buildinfo holds version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/aidanlsb/linkq/internal/buildinfo.Version=v0.3.0"
//
// Empty values mean a development build.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
