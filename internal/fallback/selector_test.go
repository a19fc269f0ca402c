package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"lucidify/internal/domain"
)

func TestSelectorPrecedence(t *testing.T) {
	s := NewSelector(DefaultCatalog())
	tests := []struct {
		name     string
		category domain.Category
		input    string
		lucid    bool
		want     string
	}{
		{name: "fly category", category: domain.CategoryFly, input: "a quiet room", want: DefaultFlightRef},
		{name: "keyword beats transform", category: domain.CategoryTransform, input: "I was flying through a transforming sky", want: DefaultFlightRef},
		{name: "keyword is case insensitive", category: domain.CategoryExplore, input: "Golden WINGS", want: DefaultFlightRef},
		{name: "transform category", category: domain.CategoryTransform, input: "my hands became glass", want: DefaultLucidRef},
		{name: "lucid mode", category: domain.CategoryNightmare, input: "open the door", lucid: true, want: DefaultLucidRef},
		{name: "default", category: domain.CategoryExplore, input: "an endless library", want: DefaultDreamRef},
		{name: "unrefined job", category: "", input: "a forest", want: DefaultDreamRef},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Select(tc.category, tc.input, tc.lucid); got != tc.want {
				t.Fatalf("Select() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSelectorIsDeterministic(t *testing.T) {
	s := NewSelector(DefaultCatalog())
	first := s.Select(domain.CategoryNightmare, "falling teeth", false)
	for i := 0; i < 50; i++ {
		if got := s.Select(domain.CategoryNightmare, "falling teeth", false); got != first {
			t.Fatalf("iteration %d: Select() = %q, want %q", i, got, first)
		}
	}
}

func TestLoadCatalogOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := "flight: s3://dreams/fly.mp4\nflight_keywords: [\" Clouds \", clouds, birds]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if cat.Flight != "s3://dreams/fly.mp4" {
		t.Fatalf("Flight = %q", cat.Flight)
	}
	if cat.Lucid != DefaultLucidRef || cat.Default != DefaultDreamRef {
		t.Fatalf("defaults not kept: %#v", cat)
	}
	if len(cat.FlightKeywords) != 2 || cat.FlightKeywords[0] != "clouds" || cat.FlightKeywords[1] != "birds" {
		t.Fatalf("FlightKeywords = %#v", cat.FlightKeywords)
	}
	s := NewSelector(cat)
	if got := s.Select(domain.CategoryExplore, "a sky full of lanterns", false); got != DefaultDreamRef {
		t.Fatalf("overridden keywords should drop sky, got %q", got)
	}
}

func TestLoadCatalogEmptyPath(t *testing.T) {
	cat, err := LoadCatalog("  ")
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if cat.Flight != DefaultFlightRef {
		t.Fatalf("Flight = %q", cat.Flight)
	}
}

func TestLoadCatalogInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("flight: [unterminated"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}
