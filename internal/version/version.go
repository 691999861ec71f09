package version

// Version is the assetrev release, set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/assetrev/internal/version.Version=v0.3.0".
var Version = "unknown"

// Build metadata, also injected through ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
