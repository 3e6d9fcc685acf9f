package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "scout", want: "scout"},
		{name: "surrounding whitespace", in: "  scout \t", want: "scout"},
		{name: "decomposed accent folds to composed", in: "rémy", want: "rémy"},
		{name: "already composed unchanged", in: "rémy", want: "rémy"},
		{name: "empty stays empty", in: "   ", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeName(tc.in)
			if got != tc.want {
				t.Fatalf("%s: NormalizeName(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	type cfg struct {
		Mission struct {
			URL   string `yaml:"url"`
			Count int    `yaml:"count"`
		} `yaml:"mission"`
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "mission:\n  url: ws://localhost:8090\n  count: 3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	c, err := LoadConfig[cfg](path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Mission.URL != "ws://localhost:8090" || c.Mission.Count != 3 {
		t.Fatalf("config mismatch: %+v", c)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	type cfg struct{}
	if _, err := LoadConfig[cfg](filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
