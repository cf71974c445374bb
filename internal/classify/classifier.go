// Package classify decides which indicator type a raw feed value belongs to.
// Detection runs an ordered list of independent grammar detectors so the same
// value always resolves to the same type no matter how many grammars it
// happens to satisfy: ip literals and CIDRs first, then hex digests, then
// URLs, then domain names.
package classify

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"intelfeed/internal/domain"
)

// Result is one successful classification.
type Result struct {
	Type     domain.IndicatorType
	HashType domain.HashType
}

// Options restricts classification to what the owning data source declared
// and carries the system-wide soar-url switch.
type Options struct {
	Declared    map[domain.IndicatorType]struct{}
	SoarEnabled bool
}

var (
	hexRegex    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	domainRegex = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)
)

var hashLengths = map[int]domain.HashType{
	32:  domain.HashMD5,
	40:  domain.HashSHA1,
	64:  domain.HashSHA256,
	128: domain.HashSHA512,
}

type detector func(value string, opts Options) (Result, bool)

// detectors is evaluated in order; the first grammar match wins and no later
// detector is consulted, even if the declared type set would have accepted it.
var detectors = []detector{
	detectIP,
	detectHash,
	detectURL,
	detectDomain,
}

// Classify resolves a trimmed, non-empty value against the declared type set.
// The second return is false when the value matches no grammar or when the
// matched type is not declared on the source.
func Classify(value string, opts Options) (Result, bool) {
	for _, detect := range detectors {
		result, ok := detect(value, opts)
		if !ok {
			continue
		}
		if _, declared := opts.Declared[result.Type]; !declared {
			return Result{}, false
		}
		return result, true
	}
	return Result{}, false
}

func detectIP(value string, _ Options) (Result, bool) {
	if _, err := netip.ParseAddr(value); err == nil {
		return Result{Type: domain.TypeIP}, true
	}
	if _, err := netip.ParsePrefix(value); err == nil {
		return Result{Type: domain.TypeIP}, true
	}
	return Result{}, false
}

func detectHash(value string, _ Options) (Result, bool) {
	hashType, known := hashLengths[len(value)]
	if !known || !hexRegex.MatchString(value) {
		return Result{}, false
	}
	return Result{Type: domain.TypeHash, HashType: hashType}, true
}

func detectURL(value string, opts Options) (Result, bool) {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{}, false
	}

	// The custom soar-url type takes the slot only when the source declares
	// it and the system-wide switch is on.
	if opts.SoarEnabled {
		if _, declared := opts.Declared[domain.TypeSoarURL]; declared {
			return Result{Type: domain.TypeSoarURL}, true
		}
	}
	return Result{Type: domain.TypeURL}, true
}

func detectDomain(value string, _ Options) (Result, bool) {
	if len(value) > 253 || !domainRegex.MatchString(value) {
		return Result{}, false
	}
	return Result{Type: domain.TypeDomain}, true
}

// NormalizeLine trims a raw feed line and strips trailing comments. The
// second return is false for lines ingestion should drop silently: blanks
// and comment-only lines.
func NormalizeLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "//") {
		return "", false
	}
	if idx := strings.IndexAny(trimmed, " \t"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed, true
}
