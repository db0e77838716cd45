//go:build !unit

package version

import (
	"strings"
	"testing"
)

// TestFlagEmpty fails if version.Flag is not empty. We use this to enforce an
// empty flag on the master branch, which separates dev builds from releases.
func TestFlagEmpty(t *testing.T) {
	if len(Flag) > 0 {
		t.Fatalf("Version Flag is not empty: %s", Flag)
	}
}

func TestVersion(t *testing.T) {
	if !strings.HasPrefix(Version, Maj+"."+Min+"."+Fix) {
		t.Fatalf("Version %s does not start with %s.%s.%s", Version, Maj, Min, Fix)
	}
}
