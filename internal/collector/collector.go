package collector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"ContentRadar/internal/ports"
)

// Registry keeps a mapping from source tags to their collector
// implementations.
type Registry struct {
	collectors map[string]ports.Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]ports.Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c ports.Collector) {
	if r.collectors == nil {
		r.collectors = map[string]ports.Collector{}
	}
	r.collectors[c.Name()] = c
}

// Resolve returns a collector by source tag or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Collector, error) {
	if c, ok := r.collectors[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector %s is not registered", name)
}

// Names lists registered source tags, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// shortHash derives a stable, collision-resistant dedup key component for
// upstream items without a native ID (hash of the canonical URL).
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// parseTimestamp tries each layout in turn; unparseable input yields nil
// rather than failing the item.
func parseTimestamp(raw string, layouts ...string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t := parsed.UTC()
			return &t
		}
	}
	return nil
}

// tagRule associates an inferred tag with title keywords matched by
// substring, lowercase.
type tagRule struct {
	tag      string
	keywords []string
}

func matchTitleTags(title string, rules []tagRule) []string {
	var tags []string
	titleLower := strings.ToLower(title)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(titleLower, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}

// seenSet tracks source_ids already emitted within one collection run, so
// overlapping upstream queries self-dedup before they reach the store.
type seenSet map[string]struct{}

// add reports whether id was new.
func (s seenSet) add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}
