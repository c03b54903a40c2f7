package utils

import (
	"strings"
	"testing"
)

func TestParseKeyValues(t *testing.T) {
	settings, err := ParseKeyValues([]string{"path=/srv/repo", "token=a=b", " host =h"})
	if err != nil {
		t.Fatalf("ParseKeyValues failed: %v", err)
	}
	if settings["path"] != "/srv/repo" {
		t.Errorf("Expected path '/srv/repo', got %q", settings["path"])
	}
	if settings["token"] != "a=b" {
		t.Errorf("Expected value with '=' preserved, got %q", settings["token"])
	}
	if settings["host"] != "h" {
		t.Errorf("Expected trimmed key 'host', got %v", settings)
	}

	for _, bad := range [][]string{{"novalue"}, {"=x"}, {"a=1", "a=2"}} {
		if _, err := ParseKeyValues(bad); err == nil {
			t.Errorf("Expected error for %v", bad)
		}
	}
}

func TestFormatPaths(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	out := FormatPaths([]string{".syncany/cache", ".syncany/db"})
	if !strings.Contains(out, "    - .syncany/cache\n") || !strings.Contains(out, "    - .syncany/db\n") {
		t.Errorf("Unexpected output: %q", out)
	}
}

func TestMaskSecret(t *testing.T) {
	if MaskSecret("pässword") != "********" {
		t.Errorf("Expected 8 stars, got %q", MaskSecret("pässword"))
	}
}
