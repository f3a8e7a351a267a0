package version

import (
	"strings"
	"testing"
)

// TestBannerCarriesVersion confirms the banner embeds the version
// string, so the two can never drift apart.
func TestBannerCarriesVersion(t *testing.T) {
	v := GetVersionString()
	banner := GetVersionBanner()

	if v == "" {
		t.Fatalf("version string is empty")
	}
	if !strings.Contains(banner, v) {
		t.Fatalf("banner %q doesn't contain version %q", banner, v)
	}
}
