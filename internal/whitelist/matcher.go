// Package whitelist decides whether a candidate indicator is covered by a
// whitelist entry and therefore must never be written to the indicator store.
package whitelist

import (
	"context"
	"net/netip"
	"strings"

	"intelfeed/internal/database"
	"intelfeed/internal/domain"
)

// Matcher evaluates candidates against a fixed snapshot of whitelist entries.
// Ingestion loads one snapshot per run so every candidate in a batch sees the
// same rules.
type Matcher struct {
	exact    map[string]domain.WhitelistEntry
	prefixes []prefixEntry
	domains  []domain.WhitelistEntry
}

type prefixEntry struct {
	prefix netip.Prefix
	entry  domain.WhitelistEntry
}

// NewMatcher indexes the given entries for matching.
func NewMatcher(entries []domain.WhitelistEntry) *Matcher {
	m := &Matcher{exact: make(map[string]domain.WhitelistEntry, len(entries))}

	for _, entry := range entries {
		switch entry.Type {
		case string(domain.TypeIP):
			if prefix, err := netip.ParsePrefix(entry.Value); err == nil {
				m.prefixes = append(m.prefixes, prefixEntry{prefix: prefix, entry: entry})
				continue
			}
			m.exact[key(entry.Value, entry.Type)] = entry
		case string(domain.TypeDomain):
			m.domains = append(m.domains, entry)
			m.exact[key(entry.Value, entry.Type)] = entry
		default:
			m.exact[key(entry.Value, entry.Type)] = entry
		}
	}

	return m
}

// Load builds a matcher from the current whitelist store contents.
func Load(ctx context.Context) (*Matcher, error) {
	entries, err := database.ListWhitelistEntries(ctx)
	if err != nil {
		return nil, err
	}
	return NewMatcher(entries), nil
}

// Match returns the covering entry for a candidate, if any. IPs match on
// exact value or CIDR containment, domains on exact value or dot-boundary
// suffix, hashes and URLs on exact value only.
func (m *Matcher) Match(value, indicatorType string) (domain.WhitelistEntry, bool) {
	if entry, ok := m.exact[key(value, indicatorType)]; ok {
		return entry, true
	}

	switch indicatorType {
	case string(domain.TypeIP):
		return m.matchIP(value)
	case string(domain.TypeDomain):
		return m.matchDomainSuffix(value)
	}
	return domain.WhitelistEntry{}, false
}

func (m *Matcher) matchIP(value string) (domain.WhitelistEntry, bool) {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return domain.WhitelistEntry{}, false
	}
	for _, candidate := range m.prefixes {
		if candidate.prefix.Contains(addr) {
			return candidate.entry, true
		}
	}
	return domain.WhitelistEntry{}, false
}

// matchDomainSuffix treats a whitelist domain as covering itself plus every
// subdomain: entry example.com matches mail.example.com but never
// notexample.com.
func (m *Matcher) matchDomainSuffix(value string) (domain.WhitelistEntry, bool) {
	lowered := strings.ToLower(value)
	for _, entry := range m.domains {
		suffix := strings.ToLower(entry.Value)
		if lowered == suffix || strings.HasSuffix(lowered, "."+suffix) {
			return entry, true
		}
	}
	return domain.WhitelistEntry{}, false
}

func key(value, indicatorType string) string {
	return indicatorType + "|" + strings.ToLower(value)
}
