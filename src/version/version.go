package version

// Flag contains extra info about the version. It is helpful for tracking
// versions while developing. It should always be empty on the master branch.
// This will be enforced in a continuous integration test.
const Flag = ""

// Maj, Min and Fix make up the semantic version of the library.
const (
	Maj = "0"
	Min = "1"
	Fix = "0"
)

var (
	// Version is the full version string
	Version = Maj + "." + Min + "." + Fix

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/hgclient/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}
