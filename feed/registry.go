package feed

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPerSourceCap is the number of new articles accepted per ingestion call.
const DefaultPerSourceCap = 5

// Source is a named feed.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Key returns the lowercased source name used in marker keys and metadata.
func (s Source) Key() string {
	return strings.ToLower(s.Name)
}

// Registry is the configured set of feed sources.
type Registry struct {
	Sources      []Source `yaml:"sources"`
	PerSourceCap int      `yaml:"perSourceCap"`
}

// DefaultRegistry returns the built-in news sources.
func DefaultRegistry() *Registry {
	return &Registry{
		Sources: []Source{
			{Name: "NBC Tech", URL: "https://feeds.nbcnews.com/nbcnews/public/tech"},
			{Name: "The New Yorker", URL: "https://www.newyorker.com/feed/news"},
			{Name: "Wired Business", URL: "https://www.wired.com/feed/category/business/latest/rss"},
			{Name: "The Guardian Science", URL: "https://www.theguardian.com/science/rss"},
		},
		PerSourceCap: DefaultPerSourceCap,
	}
}

// LoadRegistry reads a YAML registry file. An empty path yields the default registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("feed: read registry %s: %w", path, err)
	}
	return ParseRegistry(raw)
}

// ParseRegistry decodes and validates a YAML registry:
//
//	perSourceCap: 5
//	sources:
//	  - name: NBC Tech
//	    url: https://feeds.nbcnews.com/nbcnews/public/tech
func ParseRegistry(raw []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("feed: parse registry: %w", err)
	}
	if r.PerSourceCap == 0 {
		r.PerSourceCap = DefaultPerSourceCap
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks that sources are named, unique and have absolute URLs.
func (r *Registry) Validate() error {
	if r == nil || len(r.Sources) == 0 {
		return errors.New("feed: registry has no sources")
	}
	if r.PerSourceCap < 1 {
		return errors.New("feed: perSourceCap must be positive")
	}
	seen := make(map[string]bool, len(r.Sources))
	for _, s := range r.Sources {
		if strings.TrimSpace(s.Name) == "" {
			return errors.New("feed: source without name")
		}
		if seen[s.Key()] {
			return fmt.Errorf("feed: duplicate source %q", s.Name)
		}
		seen[s.Key()] = true
		u, err := url.Parse(s.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("feed: source %q has invalid url %q", s.Name, s.URL)
		}
	}
	return nil
}

// Lookup finds a source by name, ignoring case and surrounding spaces.
func (r *Registry) Lookup(name string) (Source, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, s := range r.Sources {
		if s.Key() == key {
			return s, true
		}
	}
	return Source{}, false
}
