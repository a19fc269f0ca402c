// Package fallback picks canned dream videos when real generation is not
// available. Selection is pure: the same inputs always give the same reference.
package fallback

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lucidify/internal/domain"
)

const (
	DefaultFlightRef = "/videos/demo_fly.mp4"
	DefaultLucidRef  = "/videos/demo_lucid.mp4"
	DefaultDreamRef  = "/videos/demo_dream.mp4"
)

// DefaultFlightKeywords trigger the flight video regardless of category.
var DefaultFlightKeywords = []string{"sky", "wings", "float"}

// Catalog lists the canned references and the keywords that route to flight.
type Catalog struct {
	Flight         string   `yaml:"flight"`
	Lucid          string   `yaml:"lucid"`
	Default        string   `yaml:"default"`
	FlightKeywords []string `yaml:"flight_keywords"`
}

// DefaultCatalog returns the built-in demo videos.
func DefaultCatalog() Catalog {
	return Catalog{
		Flight:         DefaultFlightRef,
		Lucid:          DefaultLucidRef,
		Default:        DefaultDreamRef,
		FlightKeywords: append([]string(nil), DefaultFlightKeywords...),
	}
}

// LoadCatalog reads a YAML catalog. Missing fields keep their defaults; an
// empty path returns the defaults.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	path = strings.TrimSpace(path)
	if path == "" {
		return cat, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("fallback: read catalog: %w", err)
	}
	var file Catalog
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("fallback: parse catalog: %w", err)
	}
	if v := strings.TrimSpace(file.Flight); v != "" {
		cat.Flight = v
	}
	if v := strings.TrimSpace(file.Lucid); v != "" {
		cat.Lucid = v
	}
	if v := strings.TrimSpace(file.Default); v != "" {
		cat.Default = v
	}
	if len(file.FlightKeywords) > 0 {
		cat.FlightKeywords = normalizeKeywords(file.FlightKeywords)
	}
	if len(cat.FlightKeywords) == 0 {
		return Catalog{}, errors.New("fallback: catalog has no usable flight keywords")
	}
	return cat, nil
}

// Selector maps a job's classification onto a canned reference.
type Selector struct {
	catalog Catalog
}

func NewSelector(catalog Catalog) *Selector {
	catalog.FlightKeywords = normalizeKeywords(catalog.FlightKeywords)
	return &Selector{catalog: catalog}
}

// Select applies the precedence flight > lucid/transform > default. A flight
// keyword in the input beats a TRANSFORM category.
func (s *Selector) Select(category domain.Category, input string, lucid bool) string {
	lower := strings.ToLower(input)
	if category == domain.CategoryFly || s.hasFlightKeyword(lower) {
		return s.catalog.Flight
	}
	if category == domain.CategoryTransform || lucid {
		return s.catalog.Lucid
	}
	return s.catalog.Default
}

func (s *Selector) hasFlightKeyword(lower string) bool {
	for _, kw := range s.catalog.FlightKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
