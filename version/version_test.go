package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, "qlink/"+Version) {
		t.Errorf("unexpected user agent %q", ua)
	}
	if !strings.Contains(ua, runtime.GOOS) {
		t.Errorf("expected platform in user agent %q", ua)
	}
}

func TestInfoString(t *testing.T) {
	s := GetInfo().String()
	if !strings.Contains(s, "Go Version:\t"+runtime.Version()) {
		t.Errorf("missing go version in %q", s)
	}
}
