// Package version identifies the ila binary.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"runtime/debug"
	"sync"
)

// Version is the analyzer release. Commit and Date are stamped by the
// release build:
//
//	go build -ldflags "-X github.com/standardbeagle/ila/internal/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "0.2.0"
	Commit  = ""
	Date    = ""
)

// Info is the short version shown by --version and reported to MCP
// clients, e.g. "0.2.0" or "0.2.0+3f2c1ab".
func Info() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}

// FullInfo adds the build date and build id.
func FullInfo() string {
	date := Date
	if date == "" {
		date = "dev"
	}
	return "ila typed-logger analyzer " + Info() + " (" + date + ", build " + BuildID() + ")"
}

var buildID = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info()
	}
	h := sha256.New()
	h.Write([]byte(info.GoVersion + "\x00" + info.Main.Path + "\x00" + info.Main.Version))
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" || s.Key == "vcs.modified" {
			h.Write([]byte("\x00" + s.Key + "=" + s.Value))
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
})

// BuildID fingerprints the running binary. Preview tokens carry it, so a
// token minted by another build of the fixer is refused.
func BuildID() string {
	return buildID()
}
